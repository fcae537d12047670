package convo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewckor/kip-ai/internal/log"
	"github.com/andrewckor/kip-ai/internal/testutil"
)

// TestPostgresStore exercises the full backend against a disposable
// container: migration on construction, snapshot round-trip, upsert, clear,
// and domain listing. Skipped in -short mode.
func TestPostgresStore(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, db.ConnStr, log.NewNop())
	require.NoError(t, err)
	defer store.Close()

	t.Run("load missing domain", func(t *testing.T) {
		got, err := store.Load(ctx, "never.seen.com")
		require.NoError(t, err)
		assert.Empty(t, got.Messages)
		assert.Empty(t, got.Turns)
	})

	t.Run("save and load", func(t *testing.T) {
		want := testSnapshot()
		require.NoError(t, store.Save(ctx, "shop.example.com", want))

		got, err := store.Load(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Equal(t, want.Messages, got.Messages)
		assert.Equal(t, want.Turns, got.Turns)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		updated := testSnapshot()
		updated.Messages = append(updated.Messages,
			Message{Content: "more", IsUser: true, Timestamp: "2026-01-02T03:05:00Z"})
		require.NoError(t, store.Save(ctx, "shop.example.com", updated))

		got, err := store.Load(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Len(t, got.Messages, 3)
	})

	t.Run("domain isolation", func(t *testing.T) {
		got, err := store.Load(ctx, "other.example.com")
		require.NoError(t, err)
		assert.Empty(t, got.Messages)
	})

	t.Run("domains listing", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "a.example.com", testSnapshot()))

		domains, err := store.Domains(ctx)
		require.NoError(t, err)
		assert.Contains(t, domains, "shop.example.com")
		assert.Contains(t, domains, "a.example.com")
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "shop.example.com"))

		got, err := store.Load(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Empty(t, got.Messages)

		require.NoError(t, store.Clear(ctx, "shop.example.com"))
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		second, err := NewPostgresStore(ctx, db.ConnStr, log.NewNop())
		require.NoError(t, err)
		second.Close()
	})
}
