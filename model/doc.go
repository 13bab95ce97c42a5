// Package model defines the contract between agents and language model
// providers plus provider-independent helpers.
//
// Agents build a Request holding the resolved instruction, the full ordered
// history and the function definitions of their registry. A Model answers with
// exactly one core.Content. Provider adapters live in subpackages (openai,
// anthropic, gemini, ollama) and provider.New builds one from configuration.
//
// Middleware:
//
//	m = model.WithCallLimit(m, 20)                          // budget per model value
//	m = model.WithRateLimit(m, rate.NewLimiter(rate.Every(time.Second), 1))
//
// MockModel returns scripted contents. It backs the tests and the "mock"
// provider.
package model
