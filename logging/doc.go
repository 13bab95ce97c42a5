// Package logging provides a minimal logging interface and adapters for agentchat.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that agents, stores and the chat loop use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping go.uber.org/zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json")
//	chat := agentchat.New(func(o *agentchat.Options) { o.Logger = logger })
package logging
