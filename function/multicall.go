package function

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

// MulticallName is the registered name of the multicall function.
const MulticallName = model.MulticallFunction

// MulticallSeparator joins nested results.
const MulticallSeparator = ", "

// MissingPolicy decides what multicall does with a nested call that names no
// registered function.
type MissingPolicy int

const (
	// MissingOmit drops the nested call from the joined result.
	MissingOmit MissingPolicy = iota
	// MissingFail fails the whole multicall with ErrUnknownFunction.
	MissingFail
)

// String returns the policy name used in configuration.
func (p MissingPolicy) String() string {
	switch p {
	case MissingOmit:
		return "omit"
	case MissingFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseMissingPolicy converts a configuration value into a policy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "omit":
		return MissingOmit, nil
	case "fail":
		return MissingFail, nil
	default:
		return MissingOmit, fmt.Errorf("unknown multicall missing policy %q", s)
	}
}

// MulticallParameters is the declared parameter shape of multicall.
type MulticallParameters struct {
	Calls []core.FunctionCall `json:"calls" description:"Function calls to execute in order"`
}

// MulticallOptions configures NewMulticall.
type MulticallOptions struct {
	Missing MissingPolicy
}

// NewMulticall returns the multicall meta-function. Each nested call re-enters
// the registry multicall was dispatched from. Results are kept in input order
// and joined with ", ".
func NewMulticall(optFns ...func(o *MulticallOptions)) *AgentFunction {
	opts := MulticallOptions{Missing: MissingOmit}
	for _, fn := range optFns {
		fn(&opts)
	}

	return New(
		MulticallName,
		"Call several functions at once. Results are returned in call order, separated by commas.",
		func(ctx context.Context, r *Registry, params MulticallParameters) (string, error) {
			results := make([]string, 0, len(params.Calls))
			for _, call := range params.Calls {
				result, ok, err := r.Call(ctx, call)
				if err != nil {
					return "", err
				}
				if !ok {
					if opts.Missing == MissingFail {
						return "", newUnknownFunction(call.Name)
					}
					continue
				}
				results = append(results, result)
			}
			return strings.Join(results, MulticallSeparator), nil
		},
	)
}
