package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Append(ctx context.Context, conversationID string, msg core.Message) error {
	return m.Called(ctx, conversationID, msg).Error(0)
}

func (m *MockStore) Load(ctx context.Context, conversationID string) ([]core.Message, error) {
	args := m.Called(ctx, conversationID)
	msgs, _ := args.Get(0).([]core.Message)
	return msgs, args.Error(1)
}

func (m *MockStore) MarkTerminated(ctx context.Context, conversationID string) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *MockStore) Terminated(ctx context.Context, conversationID string) (bool, error) {
	args := m.Called(ctx, conversationID)
	return args.Bool(0), args.Error(1)
}

func TestObserver_MirrorsConversation(t *testing.T) {
	store := NewMemoryStore()
	obs := NewObserver(store)

	conv := core.NewConversation(func(o *core.ConversationOptions) {
		o.ID = "dealer"
		o.Observers = []core.Observer{obs}
	})
	for _, msg := range testutil.DealerHistory().Messages() {
		conv.AddMessage(msg)
	}
	conv.Terminate()

	got, err := store.Load(context.Background(), "dealer")
	require.NoError(t, err)
	assert.Equal(t, conv.History(), got)

	terminated, err := store.Terminated(context.Background(), "dealer")
	require.NoError(t, err)
	assert.True(t, terminated)
}

func TestObserver_ReportsErrors(t *testing.T) {
	store := new(MockStore)
	boom := errors.New("boom")
	store.On("Append", mock.Anything, "c", mock.Anything).Return(boom)
	store.On("MarkTerminated", mock.Anything, "c").Return(boom)

	var reported []error
	obs := NewObserver(store, func(o *ObserverOptions) {
		o.OnError = func(conversationID string, err error) {
			assert.Equal(t, "c", conversationID)
			reported = append(reported, err)
		}
	})

	conv := core.NewConversation(func(o *core.ConversationOptions) {
		o.ID = "c"
		o.Observers = []core.Observer{obs}
	})
	conv.AddMessage(testutil.NewConversationBuilder().Say("A", "B", "hi").Messages()[0])
	conv.Terminate()

	assert.Equal(t, 1, conv.Len(), "store failures do not interrupt the dialogue")
	assert.Equal(t, []error{boom, boom}, reported)
	store.AssertExpectations(t)
}

func TestRestore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	history := testutil.DealerHistory().Messages()
	for _, msg := range history {
		require.NoError(t, store.Append(ctx, "dealer", msg))
	}
	require.NoError(t, store.MarkTerminated(ctx, "dealer"))

	var seen []core.Message
	conv, err := Restore(ctx, store, "dealer", core.ObserverFunc(func(_ *core.Conversation, msg core.Message) {
		seen = append(seen, msg)
	}))
	require.NoError(t, err)

	assert.Equal(t, "dealer", conv.ID())
	assert.Equal(t, history, conv.History())
	assert.True(t, conv.HasTerminated())
	assert.Empty(t, seen, "restored messages are not replayed to observers")

	conv.AddMessage(history[0])
	assert.Len(t, seen, 1)
}

func TestRestore_LoadError(t *testing.T) {
	store := new(MockStore)
	store.On("Load", mock.Anything, "c").Return(nil, errors.New("unavailable"))

	_, err := Restore(context.Background(), store, "c")

	assert.ErrorContains(t, err, "load transcript c: unavailable")
}

func TestRestore_UnknownConversation(t *testing.T) {
	_, err := Restore(context.Background(), NewMemoryStore(), "missing")

	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Type: "sql", SQL: config.SQLConfig{Driver: "sqlite", DSN: t.TempDir() + "/t.db"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Type: "s3"})
	assert.ErrorContains(t, err, "unsupported store type: s3")
}
