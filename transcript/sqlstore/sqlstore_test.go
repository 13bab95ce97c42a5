package sqlstore

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second pooled connection would see a fresh in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := New(db)
	require.NoError(t, err)

	return store
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	history := testutil.DealerHistory().Messages()
	for _, msg := range history {
		require.NoError(t, store.Append(ctx, "conv-1", msg))
	}

	got, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got, len(history))

	for i := range history {
		assert.Equal(t, history[i].String(), got[i].String())
		assert.Equal(t, history[i].ID, got[i].ID)
	}

	fc, isCall := core.AsFunctionCall(got[1].Content)
	require.True(t, isCall)
	assert.Equal(t, "quote_amount", fc.Name)
}

func TestStore_ConversationsAreIsolated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testutil.NewConversationBuilder().Say("A", "B", "hi").Messages()
	b := testutil.NewConversationBuilder().Say("X", "Y", "one").Say("Y", "X", "two").Messages()

	require.NoError(t, store.Append(ctx, "a", a[0]))
	for _, msg := range b {
		require.NoError(t, store.Append(ctx, "b", msg))
	}

	gotA, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, gotA, 1)

	gotB, err := store.Load(ctx, "b")
	require.NoError(t, err)
	require.Len(t, gotB, 2)
	assert.Equal(t, core.Text("two"), gotB[1].Content)

	ids, err := store.Conversations(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestStore_Termination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	terminated, err := store.Terminated(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, terminated)

	msg := testutil.NewConversationBuilder().Say("A", "B", "hi").Messages()[0]
	require.NoError(t, store.Append(ctx, "c", msg))

	terminated, err = store.Terminated(ctx, "c")
	require.NoError(t, err)
	assert.False(t, terminated)

	require.NoError(t, store.MarkTerminated(ctx, "c"))
	require.NoError(t, store.MarkTerminated(ctx, "c"))

	terminated, err = store.Terminated(ctx, "c")
	require.NoError(t, err)
	assert.True(t, terminated)
}

func TestStore_LoadUnknown(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.Load(context.Background(), "nope")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			d, err := Dialector(driver, "dsn")
			require.NoError(t, err)
			assert.Equal(t, driver, d.Name())
		})
	}

	_, err := Dialector("oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver: oracle")
}

func TestOpen_SQLiteFile(t *testing.T) {
	dsn := t.TempDir() + "/transcripts.db"

	store, err := Open(config.SQLConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	msg := testutil.NewConversationBuilder().Say("A", "B", "persisted").Messages()[0]
	require.NoError(t, store.Append(context.Background(), "c", msg))
	require.NoError(t, store.Close())

	reopened, err := Open(config.SQLConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Text("persisted"), got[0].Content)
}
