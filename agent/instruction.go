package agent

import (
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/function"
	"github.com/hupe1980/agentchat/internal/util"
)

// InstructionContext is what a Provider (or a templated instruction) can see
// when the system message is resolved for a model call.
type InstructionContext struct {
	Name         string
	Counterpart  string
	Turn         int // number of messages recorded so far, staged ones included
	Conversation *core.Conversation
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(InstructionContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(InstructionContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ic InstructionContext) (string, error) { return f(ic) }

// Instruction is the static configuration shaping every model call of an
// agent: a system message (static text or provider) plus a function registry.
type Instruction struct {
	text      string
	provider  Provider
	functions *function.Registry
}

// NewInstructionFromText creates an Instruction from a static string. The text
// may reference {{.Name}}, {{.Counterpart}} and {{.Turn}}.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(InstructionContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// WithRegistry returns a copy using r as its function registry.
func (i Instruction) WithRegistry(r *function.Registry) Instruction {
	i.functions = r
	return i
}

// WithFunctions returns a copy whose registry additionally holds fns. A fresh
// registry is created when none is set.
func (i Instruction) WithFunctions(fns ...*function.AgentFunction) (Instruction, error) {
	if i.functions == nil {
		i.functions = function.NewRegistry()
	}
	if err := i.functions.Register(fns...); err != nil {
		return i, err
	}
	return i, nil
}

// Functions returns the registry, or nil when none was configured.
func (i Instruction) Functions() *function.Registry { return i.functions }

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the system message, invoking the provider or rendering the
// template as needed.
func (i Instruction) Resolve(ic InstructionContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ic)
	}
	return util.RenderTemplate(i.text, map[string]any{
		"Name":        ic.Name,
		"Counterpart": ic.Counterpart,
		"Turn":        ic.Turn,
	})
}
