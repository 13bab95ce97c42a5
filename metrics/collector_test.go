package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	chattest "github.com/hupe1980/agentchat/internal/testutil"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg), reg
}

func TestCollector_ModelCall(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ModelCall("Dealer", "gpt-4", 200*time.Millisecond, nil)
	c.ModelCall("Dealer", "gpt-4", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelCallsTotal.WithLabelValues("Dealer", "gpt-4", statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelCallsTotal.WithLabelValues("Dealer", "gpt-4", statusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.modelCallDuration))
}

func TestCollector_FunctionCall(t *testing.T) {
	c, _ := newTestCollector(t)

	c.FunctionCall("Dealer", "quote_amount", time.Millisecond, true, nil)
	c.FunctionCall("Dealer", "quote_amount", time.Millisecond, true, errors.New("schema"))
	c.FunctionCall("Dealer", "weather", 0, false, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.functionCallsTotal.WithLabelValues("Dealer", "quote_amount", statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.functionCallsTotal.WithLabelValues("Dealer", "quote_amount", statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.functionCallsTotal.WithLabelValues("Dealer", "weather", statusUnresolved)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.functionCallDuration), "unresolved calls are not timed")
}

func TestCollector_Observer(t *testing.T) {
	c, reg := newTestCollector(t)

	conv := core.NewConversation()
	conv.Observe(c)
	for _, msg := range chattest.DealerHistory().Messages() {
		conv.AddMessage(msg)
	}
	conv.Terminate()
	conv.Terminate()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("Dealer", "Dealer", "function_call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("Dealer", "Dealer", "text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("Customer", "Dealer", "text")))

	expected := `
# HELP test_conversations_terminated_total Total number of terminated conversations
# TYPE test_conversations_terminated_total counter
test_conversations_terminated_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_conversations_terminated_total"))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector("dup", reg)

	assert.Panics(t, func() { NewCollector("dup", reg) })
}
