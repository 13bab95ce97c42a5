package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
)

func newTestStore(t *testing.T, optFns ...func(o *Options)) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, optFns...), mr
}

func TestStore_AppendAndLoad(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	history := testutil.DealerHistory().Messages()
	for _, msg := range history {
		require.NoError(t, store.Append(ctx, "conv-1", msg))
	}

	got, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got, len(history))

	for i := range history {
		assert.Equal(t, history[i].ID, got[i].ID)
		assert.Equal(t, history[i].From, got[i].From)
		assert.Equal(t, history[i].To, got[i].To)
		assert.Equal(t, history[i].Content.String(), got[i].Content.String())
	}
	_, isCall := core.AsFunctionCall(got[1].Content)
	assert.True(t, isCall)

	assert.True(t, mr.Exists("agentchat:conversation:conv-1:messages"))
}

func TestStore_LoadUnknown(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Load(context.Background(), "nope")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Termination(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	terminated, err := store.Terminated(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, terminated)

	require.NoError(t, store.MarkTerminated(ctx, "conv-1"))
	require.NoError(t, store.MarkTerminated(ctx, "conv-1"))

	terminated, err = store.Terminated(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, terminated)
}

func TestStore_TTLAndPrefix(t *testing.T) {
	store, mr := newTestStore(t, func(o *Options) {
		o.KeyPrefix = "test"
		o.TTL = time.Minute
	})
	ctx := context.Background()

	msg := testutil.DealerHistory().Messages()[0]
	require.NoError(t, store.Append(ctx, "c", msg))
	require.NoError(t, store.MarkTerminated(ctx, "c"))

	assert.Equal(t, time.Minute, mr.TTL("test:conversation:c:messages"))

	mr.FastForward(2 * time.Minute)

	got, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, got)
	terminated, err := store.Terminated(ctx, "c")
	require.NoError(t, err)
	assert.False(t, terminated)
}

func TestStore_CorruptEntry(t *testing.T) {
	store, mr := newTestStore(t)
	_, err := mr.Lpush("agentchat:conversation:bad:messages", "{not json")
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "bad")
	assert.ErrorContains(t, err, "decode message 0")
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Dial(context.Background(), config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "dial"})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, "dial", store.opts.KeyPrefix)
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
