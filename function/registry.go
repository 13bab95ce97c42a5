package function

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/model"
)

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	// Logger receives function.call.* events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry is an ordered collection of uniquely named functions. Registration
// must finish before a conversation starts; dispatch only reads.
type Registry struct {
	mu        sync.RWMutex
	functions []*AgentFunction
	index     map[string]int
	logger    logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		index:  make(map[string]int),
		logger: opts.Logger,
	}
}

// Register adds functions in order. A name already present (or repeated within
// fns) fails with ErrDuplicateFunction and nothing from fns is added.
func (r *Registry) Register(fns ...*AgentFunction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]struct{}, len(fns))
	for _, fn := range fns {
		if fn == nil {
			return errors.New("register: nil function")
		}
		if fn.name == "" {
			return errors.New("register: function name is empty")
		}
		if _, exists := r.index[fn.name]; exists {
			return fmt.Errorf("register %s: %w", fn.name, ErrDuplicateFunction)
		}
		if _, exists := pending[fn.name]; exists {
			return fmt.Errorf("register %s: %w", fn.name, ErrDuplicateFunction)
		}
		pending[fn.name] = struct{}{}
	}

	for _, fn := range fns {
		r.index[fn.name] = len(r.functions)
		r.functions = append(r.functions, fn)
	}

	return nil
}

// MustRegister is like Register but panics on error. Intended for static setup.
func (r *Registry) MustRegister(fns ...*AgentFunction) *Registry {
	if err := r.Register(fns...); err != nil {
		panic(err)
	}
	return r
}

// Unregister removes the function registered under name and reports whether
// it was present. Remaining functions keep their relative order.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[name]
	if !ok {
		return false
	}

	r.functions = append(r.functions[:i], r.functions[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.functions); j++ {
		r.index[r.functions[j].name] = j
	}

	return true
}

// Clone returns an independent registry holding the same functions in the
// same order. Registering into the clone leaves r untouched.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{
		functions: make([]*AgentFunction, len(r.functions)),
		index:     make(map[string]int, len(r.index)),
		logger:    r.logger,
	}
	copy(c.functions, r.functions)
	for name, i := range r.index {
		c.index[name] = i
	}

	return c
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*AgentFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return nil, false
	}

	return r.functions[i], true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Names returns function names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.functions))
	for i, fn := range r.functions {
		names[i] = fn.name
	}

	return names
}

// Definitions returns the model-facing declarations in registration order.
func (r *Registry) Definitions() []model.FunctionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.FunctionDefinition, len(r.functions))
	for i, fn := range r.functions {
		defs[i] = model.FunctionDefinition{
			Name:        fn.name,
			Description: fn.description,
			Parameters:  fn.parameters,
		}
	}

	return defs
}

// Call dispatches fc to the function registered under fc.Name.
//
// Outcomes:
//
//	no function with that name  -> ("", false, nil), nothing is invoked
//	arguments fail the schema   -> *FunctionError{Code: VALIDATION_ERROR}
//	callback returns an error   -> *FunctionError{Code: EXECUTION_ERROR} (or the callback's own *FunctionError)
//	success                     -> (result, true, nil)
func (r *Registry) Call(ctx context.Context, fc core.FunctionCall) (string, bool, error) {
	fn, ok := r.Lookup(fc.Name)
	if !ok {
		r.logger.Debug("function.call.unresolved", "function", fc.Name)
		return "", false, nil
	}

	if err := ctx.Err(); err != nil {
		return "", true, err
	}

	start := time.Now()
	r.logger.Debug("function.call.start", "function", fc.Name)

	result, err := fn.call(ctx, r, fc.Arguments)
	if err != nil {
		var ferr *FunctionError
		if errors.As(err, &ferr) {
			r.logger.Warn("function.call.error", "function", fc.Name, "code", ferr.Code, "error", ferr.Message)
			return "", true, err
		}

		r.logger.Error("function.call.error", "function", fc.Name, "error", err.Error())

		return "", true, &FunctionError{
			Function: fc.Name,
			Message:  err.Error(),
			Code:     CodeExecution,
			Err:      err,
		}
	}

	r.logger.Info("function.call.success", "function", fc.Name, "duration_ms", time.Since(start).Milliseconds())

	return result, true, nil
}
