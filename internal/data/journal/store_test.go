package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pathwatch/internal/core/ports"
	"pathwatch/internal/core/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	events := []watcher.Event{
		watcher.Translate(1, "/notes/a.md", ports.FlagItemCreated|ports.FlagItemIsFile),
		watcher.Translate(2, "/notes/a.md", ports.FlagItemModified),
		watcher.Translate(3, "/notes/b.md", ports.FlagItemRemoved),
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, "w-1", e))
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, uint64(3), recent[0].EventID)
	assert.Equal(t, "removed", recent[0].Kind)
	assert.Equal(t, "/notes/b.md", recent[0].Path)
	assert.Equal(t, "w-1", recent[0].WatcherID)
	assert.True(t, recent[0].ObservedAt.Equal(base.Add(3*time.Second)))

	assert.Equal(t, uint64(2), recent[1].EventID)
	assert.Equal(t, uint32(ports.FlagItemModified), recent[1].Flags)
	assert.Greater(t, recent[0].Seq, recent[1].Seq)
}

func TestRecentDefaultsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for id := uint64(1); id <= 60; id++ {
		require.NoError(t, store.Append(ctx, "w", watcher.Translate(id, "/x", ports.FlagItemModified)))
	}

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, defaultLimit)
}

func TestCountByKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	flags := []ports.EventFlags{
		ports.FlagItemCreated, ports.FlagItemCreated, ports.FlagItemRenamed, ports.FlagItemXattrMod,
	}
	for i, f := range flags {
		require.NoError(t, store.Append(ctx, "w", watcher.Translate(uint64(i+1), "/x", f)))
	}

	counts, err := store.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"created": 2, "renamed": 1, "metadata": 1}, counts)
}

func TestOpenRejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)

	_, err = Open("  ")
	assert.Error(t, err)
}

func TestReopenKeepsEventsAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), "w", watcher.Translate(9, "/x", ports.FlagItemCreated)))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, uint64(9), recent[0].EventID)
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open(driverName, "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, EnsureSchema(db))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
