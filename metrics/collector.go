// Package metrics exposes conversation activity as Prometheus metrics.
//
// A Collector is both an agent.Recorder (model and function call timings) and
// a core.Observer (messages and terminations). Register it once and attach it
// to every conversation and agent that should be measured.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/agentchat/agent"
	"github.com/hupe1980/agentchat/core"
)

const (
	statusOK         = "ok"
	statusError      = "error"
	statusUnresolved = "unresolved"
)

var (
	_ agent.Recorder           = (*Collector)(nil)
	_ core.Observer            = (*Collector)(nil)
	_ core.TerminationObserver = (*Collector)(nil)
)

// Collector records conversation metrics.
type Collector struct {
	modelCallsTotal       *prometheus.CounterVec
	modelCallDuration     *prometheus.HistogramVec
	functionCallsTotal    *prometheus.CounterVec
	functionCallDuration  *prometheus.HistogramVec
	messagesTotal         *prometheus.CounterVec
	conversationsFinished prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg. A nil
// reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		modelCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Total number of model completions",
			},
			[]string{"agent", "model", "status"},
		),
		modelCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Model completion duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent", "model"},
		),
		functionCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "function_calls_total",
				Help:      "Total number of dispatched function calls",
			},
			[]string{"agent", "function", "status"}, // status: ok, error, unresolved
		),
		functionCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "function_call_duration_seconds",
				Help:      "Function execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent", "function"},
		),
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Total number of messages appended to conversations",
			},
			[]string{"from", "to", "kind"}, // kind: text, function_call
		),
		conversationsFinished: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversations_terminated_total",
				Help:      "Total number of terminated conversations",
			},
		),
	}
}

// ModelCall implements agent.Recorder.
func (c *Collector) ModelCall(agentName, model string, d time.Duration, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	c.modelCallsTotal.WithLabelValues(agentName, model, status).Inc()
	c.modelCallDuration.WithLabelValues(agentName, model).Observe(d.Seconds())
}

// FunctionCall implements agent.Recorder.
func (c *Collector) FunctionCall(agentName, function string, d time.Duration, resolved bool, err error) {
	status := statusOK
	switch {
	case err != nil:
		status = statusError
	case !resolved:
		status = statusUnresolved
	}
	c.functionCallsTotal.WithLabelValues(agentName, function, status).Inc()
	if resolved {
		c.functionCallDuration.WithLabelValues(agentName, function).Observe(d.Seconds())
	}
}

// MessageAppended implements core.Observer.
func (c *Collector) MessageAppended(_ *core.Conversation, msg core.Message) {
	kind := "text"
	if _, ok := core.AsFunctionCall(msg.Content); ok {
		kind = "function_call"
	}
	c.messagesTotal.WithLabelValues(msg.From, msg.To, kind).Inc()
}

// ConversationTerminated implements core.TerminationObserver.
func (c *Collector) ConversationTerminated(*core.Conversation) {
	c.conversationsFinished.Inc()
}
