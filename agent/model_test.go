package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/function"
	"github.com/hupe1980/agentchat/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockModelImpl is a testify double for model.Model.
type MockModelImpl struct{ mock.Mock }

func (m *MockModelImpl) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*model.Response)
	return resp, args.Error(1)
}

func (m *MockModelImpl) Info() model.Info {
	args := m.Called()
	return args.Get(0).(model.Info)
}

type recordedCall struct {
	agent, name string
	resolved    bool
	err         error
}

type spyRecorder struct {
	models    []recordedCall
	functions []recordedCall
}

func (s *spyRecorder) ModelCall(agent, m string, _ time.Duration, err error) {
	s.models = append(s.models, recordedCall{agent: agent, name: m, err: err})
}

func (s *spyRecorder) FunctionCall(agent, fn string, _ time.Duration, resolved bool, err error) {
	s.functions = append(s.functions, recordedCall{agent: agent, name: fn, resolved: resolved, err: err})
}

func TestModelAgent_NewAgentDefaults(t *testing.T) {
	m := model.NewMockModel("m")
	a := NewModelAgent("Test Agent", m)

	assert.Equal(t, "Test Agent", a.Name())
	assert.Equal(t, "Agent Test Agent", a.Description())
	assert.Same(t, m, a.Model())
	require.NotNil(t, a.Functions())
	assert.Equal(t, 0, a.Functions().Len())
	assert.Equal(t, UnresolvedHalt, a.unresolved)
}

func TestModelAgent_MulticallIsOptIn(t *testing.T) {
	plain := NewModelAgent("plain", model.NewMockModel("m"), WithFunctions(quoteAmount()))
	assert.False(t, plain.Functions().Has(function.MulticallName))

	multi := NewModelAgent("multi", model.NewMockModel("m"), WithFunctions(quoteAmount()), WithMulticall())
	assert.Equal(t, []string{"quote_amount", function.MulticallName}, multi.Functions().Names())
}

func TestModelAgent_MulticallDoesNotLeakIntoSharedRegistry(t *testing.T) {
	shared := function.NewRegistry().MustRegister(quoteAmount())
	useShared := func(o *ModelAgentOptions) { o.Instruction = o.Instruction.WithRegistry(shared) }

	plain := NewModelAgent("plain", model.NewMockModel("m"), useShared)
	multi := NewModelAgent("multi", model.NewMockModel("m"), useShared, WithMulticall())

	assert.Equal(t, []string{"quote_amount"}, plain.Functions().Names())
	assert.Equal(t, []string{"quote_amount"}, shared.Names())
	assert.Equal(t, []string{"quote_amount", function.MulticallName}, multi.Functions().Names())
}

func TestModelAgent_MulticallOptionReplacesRegisteredOne(t *testing.T) {
	nested := call(t, function.MulticallName, function.MulticallParameters{Calls: []core.FunctionCall{
		{Name: "lookup_weather", Arguments: []byte(`{}`)},
	}})

	dealer := NewModelAgent("Dealer", model.NewMockModel("m", nested),
		WithFunctions(quoteAmount(), function.NewMulticall()),
		WithMulticall(),
		func(o *ModelAgentOptions) { o.MulticallMissing = function.MissingFail },
	)
	customer := NewModelAgent("Customer", model.NewMockModel("c"))

	conv, err := InitiateChat(context.Background(), customer, dealer, core.Text("weather?"))

	assert.ErrorIs(t, err, function.ErrUnknownFunction)
	assert.Equal(t, 1, conv.Len())
}

func TestModelAgent_MulticallFanOut(t *testing.T) {
	multicall := call(t, function.MulticallName, function.MulticallParameters{Calls: []core.FunctionCall{
		call(t, "quote_amount", map[string]any{"amount": 100, "from": "USD", "to": "EUR"}),
		call(t, "quote_amount", map[string]any{"amount": 10, "from": "BRL", "to": "JPY"}),
	}})
	m := model.NewMockModel("m", multicall, core.Text("done"))

	dealer := NewModelAgent("Dealer", m, WithFunctions(quoteAmount()), WithMulticall())
	customer := NewModelAgent("Customer", model.NewMockModel("c"), WithHook(TerminateOnText("done")))

	conv, err := InitiateChat(context.Background(), customer, dealer, core.Text("quotes please"))
	require.NoError(t, err)

	history := conv.History()
	require.Len(t, history, 4)
	assert.Equal(t, core.Text("110 EUR, 300 JPY"), history[2].Content)
}

func TestModelAgent_WithoutMulticallTreatsItAsUnknown(t *testing.T) {
	multicall := call(t, function.MulticallName, function.MulticallParameters{})
	dealer := NewModelAgent("Dealer", model.NewMockModel("m", multicall), WithFunctions(quoteAmount()))
	customer := NewModelAgent("Customer", model.NewMockModel("c"))

	conv, err := InitiateChat(context.Background(), customer, dealer, core.Text("quotes please"))
	require.NoError(t, err)

	assert.Equal(t, 2, conv.Len())
}

func TestModelAgent_UnresolvedPolicies(t *testing.T) {
	unknown := core.FunctionCall{Name: "lookup_weather", Arguments: []byte(`{"city":"Lisbon"}`)}

	t.Run("halt records the call and stops", func(t *testing.T) {
		a := NewModelAgent("A", model.NewMockModel("a", unknown))
		b := NewModelAgent("B", model.NewMockModel("b"))

		conv, err := InitiateChat(context.Background(), b, a, core.Text("weather?"))
		require.NoError(t, err)

		history := conv.History()
		require.Len(t, history, 2)
		assert.True(t, history[1].IsSelfAddressed())
		assert.Equal(t, "A", history[1].From)
		assert.False(t, conv.HasTerminated())
	})

	t.Run("forward passes the raw call", func(t *testing.T) {
		a := NewModelAgent("A", model.NewMockModel("a", unknown), WithUnresolvedPolicy(UnresolvedForward))
		b := NewModelAgent("B", model.NewMockModel("b"), WithHook(func(conv *core.Conversation) {
			if last, ok := conv.LastMessage(); ok {
				if _, isCall := last.Content.(core.FunctionCall); isCall {
					conv.Terminate()
				}
			}
		}))

		conv, err := InitiateChat(context.Background(), b, a, core.Text("weather?"))
		require.NoError(t, err)

		history := conv.History()
		require.Len(t, history, 2)
		assert.Equal(t, "A", history[1].From)
		assert.Equal(t, "B", history[1].To)
		assert.Equal(t, unknown.Name, history[1].Content.(core.FunctionCall).Name)
	})

	t.Run("fail aborts without recording", func(t *testing.T) {
		a := NewModelAgent("A", model.NewMockModel("a", unknown), WithUnresolvedPolicy(UnresolvedFail))
		b := NewModelAgent("B", model.NewMockModel("b"))

		conv, err := InitiateChat(context.Background(), b, a, core.Text("weather?"))

		assert.ErrorIs(t, err, function.ErrUnknownFunction)
		assert.Equal(t, 1, conv.Len())
	})
}

func TestModelAgent_HookRunsEvenWhenTerminated(t *testing.T) {
	runs := 0
	a := NewModelAgent("A", model.NewMockModel("a"), WithHook(func(*core.Conversation) { runs++ }))
	b := NewModelAgent("B", model.NewMockModel("b"))

	conv := core.NewConversation()
	conv.Terminate()

	outcome, err := a.Receive(context.Background(), b, conv)

	require.NoError(t, err)
	assert.Equal(t, Halt, outcome)
	assert.Equal(t, 1, runs)
}

func TestModelAgent_ReceiveWithTestifyMock(t *testing.T) {
	m := &MockModelImpl{}
	m.On("Info").Return(model.Info{Name: "mocked", Provider: "mock"})
	m.On("Complete", mock.Anything, mock.MatchedBy(func(req model.Request) bool {
		return req.Speaker == "A" && req.Counterpart == "B" && len(req.Messages) == 1
	})).Return(&model.Response{Content: core.Text("pong"), FinishReason: "stop"}, nil).Once()

	rec := &spyRecorder{}
	a := NewModelAgent("A", m, func(o *ModelAgentOptions) { o.Recorder = rec })
	b := NewModelAgent("B", model.NewMockModel("b"))

	conv := core.NewConversation()
	conv.AddMessage(core.NewMessage(core.Text("ping")).Sign(b, a))

	outcome, err := a.Receive(context.Background(), b, conv)

	require.NoError(t, err)
	assert.Equal(t, Pass, outcome)
	last, _ := conv.LastMessage()
	assert.Equal(t, core.Text("pong"), last.Content)
	require.Len(t, rec.models, 1)
	assert.Equal(t, "mocked", rec.models[0].name)
	m.AssertExpectations(t)
}

func TestModelAgent_EmptyResponseIsModelFailure(t *testing.T) {
	m := &MockModelImpl{}
	m.On("Info").Return(model.Info{Name: "mocked"})
	m.On("Complete", mock.Anything, mock.Anything).Return(&model.Response{}, nil)

	a := NewModelAgent("A", m)
	b := NewModelAgent("B", model.NewMockModel("b"))

	_, err := a.Receive(context.Background(), b, core.NewConversation())

	assert.ErrorIs(t, err, model.ErrModelFailure)
}

func TestModelAgent_RecorderSeesFunctionCalls(t *testing.T) {
	rec := &spyRecorder{}
	m := model.NewMockModel("m",
		call(t, "quote_amount", map[string]any{"amount": 1, "from": "USD", "to": "EUR"}),
		core.Text("1.1 EUR"),
	)
	a := NewModelAgent("A", m, WithFunctions(quoteAmount()), func(o *ModelAgentOptions) { o.Recorder = rec })
	b := NewModelAgent("B", model.NewMockModel("b"))

	_, err := a.Receive(context.Background(), b, core.NewConversation())
	require.NoError(t, err)

	require.Len(t, rec.functions, 1)
	assert.Equal(t, recordedCall{agent: "A", name: "quote_amount", resolved: true}, rec.functions[0])
	assert.Len(t, rec.models, 2)
}

func TestModelAgent_InstructionProvider(t *testing.T) {
	m := model.NewMockModel("m", core.Text("ok"))
	inst := NewInstructionFromFunc(func(ic InstructionContext) (string, error) {
		return strings.Repeat("x", ic.Turn), nil
	})
	a := NewModelAgent("A", m, func(o *ModelAgentOptions) { o.Instruction = inst })
	b := NewModelAgent("B", model.NewMockModel("b"))

	conv := core.NewConversation()
	conv.AddMessage(core.NewMessage(core.Text("1")).Sign(b, a))
	conv.AddMessage(core.NewMessage(core.Text("2")).Sign(b, a))

	_, err := a.Receive(context.Background(), b, conv)
	require.NoError(t, err)

	assert.Equal(t, "xx", m.Requests()[0].Instructions)
}

func TestParseUnresolvedPolicy(t *testing.T) {
	for _, p := range []UnresolvedPolicy{UnresolvedHalt, UnresolvedForward, UnresolvedFail} {
		parsed, err := ParseUnresolvedPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParseUnresolvedPolicy("ignore")
	assert.Error(t, err)
}

func TestWithFunctions_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewModelAgent("A", model.NewMockModel("m"), WithFunctions(quoteAmount(), quoteAmount()))
	})
}
