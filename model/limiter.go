package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ErrCallLimitExceeded is returned once a limited model spends its budget.
var ErrCallLimitExceeded = errors.New("exceeded max model calls")

// limitedModel rejects completions once max calls have been issued. Rejected
// calls do not count against the budget.
type limitedModel struct {
	next Model
	max  int

	mu    sync.Mutex
	calls int
}

// WithCallLimit wraps m so that at most n completions are issued. n == 0 means
// unlimited and returns m as is. The budget is shared by everything using the
// returned Model.
func WithCallLimit(m Model, n int) Model {
	if n <= 0 {
		return m
	}
	return &limitedModel{next: m, max: n}
}

func (l *limitedModel) reserve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.calls >= l.max {
		return fmt.Errorf("%w: %d", ErrCallLimitExceeded, l.max)
	}
	l.calls++

	return nil
}

func (l *limitedModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := l.reserve(); err != nil {
		return nil, NewError(l.next.Info().Name, err)
	}
	return l.next.Complete(ctx, req)
}

func (l *limitedModel) Info() Info { return l.next.Info() }

// rateLimitedModel waits on a token bucket before each completion.
type rateLimitedModel struct {
	next    Model
	limiter *rate.Limiter
}

// WithRateLimit wraps m so that completions respect limiter. Waiting honours
// ctx cancellation.
func WithRateLimit(m Model, limiter *rate.Limiter) Model {
	if limiter == nil {
		return m
	}
	return &rateLimitedModel{next: m, limiter: limiter}
}

func (r *rateLimitedModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NewError(r.next.Info().Name, fmt.Errorf("rate limit wait: %w", err))
	}
	return r.next.Complete(ctx, req)
}

func (r *rateLimitedModel) Info() Info { return r.next.Info() }
