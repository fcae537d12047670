package convo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewckor/kip-ai/internal/log"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), log.NewNop())
	require.NoError(t, err)
	return store
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Version: SchemaVersion,
		Messages: []Message{
			{Content: "hi", IsUser: true, Timestamp: "2026-01-02T03:04:05Z"},
			{Content: "hello", IsUser: false, Timestamp: "2026-01-02T03:04:07Z"},
		},
		Turns: []Turn{
			{Role: RoleUser, Parts: []TextPart{{Text: "hi"}}},
			{Role: RoleModel, Parts: []TextPart{{Text: "hello"}}},
		},
	}
}

func TestFileStoreSaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFileStore(t)

	want := testSnapshot()
	require.NoError(t, store.Save(ctx, "shop.example.com", want))

	got, err := store.Load(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, want.Messages, got.Messages)
	assert.Equal(t, want.Turns, got.Turns)
	assert.Equal(t, SchemaVersion, got.Version)
}

func TestFileStoreLoadMissingDomain(t *testing.T) {
	t.Parallel()
	store := newTestFileStore(t)

	got, err := store.Load(context.Background(), "never.seen.com")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Empty(t, got.Turns)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := NewFileStore(dir, log.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kip_bad.example.com.json"),
		[]byte("{not json"), 0o600))

	_, err = store.Load(context.Background(), "bad.example.com")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Save(ctx, "shop.example.com", testSnapshot()))

	updated := testSnapshot()
	updated.Messages = append(updated.Messages,
		Message{Content: "more", IsUser: true, Timestamp: "2026-01-02T03:05:00Z"})
	require.NoError(t, store.Save(ctx, "shop.example.com", updated))

	got, err := store.Load(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestFileStoreClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Save(ctx, "shop.example.com", testSnapshot()))
	require.NoError(t, store.Clear(ctx, "shop.example.com"))

	got, err := store.Load(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)

	// Clearing again is a no-op.
	require.NoError(t, store.Clear(ctx, "shop.example.com"))
}

func TestFileStoreDomains(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Save(ctx, "b.example.com", testSnapshot()))
	require.NoError(t, store.Save(ctx, "a.example.com", testSnapshot()))

	domains, err := store.Domains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, domains)
}

func TestFileStoreDomainIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, store.Save(ctx, "a.example.com", testSnapshot()))

	got, err := store.Load(ctx, "b.example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}

func TestFileStoreNoTempFilesLeftBehind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, log.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "shop.example.com", testSnapshot()))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
