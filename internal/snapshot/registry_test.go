package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/storage"
)

func newRegistryStore(t *testing.T) storage.ObjectStore {
	t.Helper()
	store, err := storage.NewLocalObjectStore(&storage.LocalConfig{
		BasePath: t.TempDir(),
		Bucket:   "bucket",
	})
	require.NoError(t, err)
	return store
}

func putSnapshot(t *testing.T, store storage.ObjectStore, snap *Snapshot) {
	t.Helper()
	data, err := snap.Marshal()
	require.NoError(t, err)
	require.NoError(t, store.PutString(context.Background(), snap.ManifestKey(), string(data)))
}

func TestRegistry_ListAllSortedDescending(t *testing.T) {
	store := newRegistryStore(t)
	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1"}})
	putSnapshot(t, store, &Snapshot{Name: "20230601120000", BasePath: "prod/backups", Hosts: []string{"h1"}})
	putSnapshot(t, store, &Snapshot{Name: "20220315080000", BasePath: "prod/backups", Hosts: []string{"h1"}})

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	all, err := registry.ListAll(context.Background())
	require.NoError(t, err)

	require.Len(t, all, 3)
	assert.Equal(t, "20230601120000", all[0].Name)
	assert.Equal(t, "20230101000000", all[1].Name)
	assert.Equal(t, "20220315080000", all[2].Name)
}

func TestRegistry_SkipsCorruptManifests(t *testing.T) {
	store := newRegistryStore(t)
	ctx := context.Background()

	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1"}})
	require.NoError(t, store.PutString(ctx, "prod/backups/20230201000000/manifest.json", "{{{not json"))
	// Entry with data files but no manifest at all.
	require.NoError(t, store.PutString(ctx, "prod/backups/20230301000000/h1/ks1/cf1/data.db", "x"))

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	all, err := registry.ListAll(ctx)
	require.NoError(t, err)

	require.Len(t, all, 1)
	assert.Equal(t, "20230101000000", all[0].Name)
}

func TestRegistry_Latest(t *testing.T) {
	store := newRegistryStore(t)
	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1"}})
	putSnapshot(t, store, &Snapshot{Name: "20230601120000", BasePath: "prod/backups", Hosts: []string{"h1"}})

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	latest, err := registry.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20230601120000", latest.Name)
}

func TestRegistry_LatestEmpty(t *testing.T) {
	store := newRegistryStore(t)

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	_, err := registry.Latest(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistry_ByName(t *testing.T) {
	store := newRegistryStore(t)
	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1"}})

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	ctx := context.Background()

	found, err := registry.ByName(ctx, "20230101000000")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "20230101000000", found.Name)

	missing, err := registry.ByName(ctx, "20991231235959")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegistry_CompatibleReturnsMostRecentMatch(t *testing.T) {
	store := newRegistryStore(t)
	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1", "h2"}, Keyspaces: "ks1"})
	putSnapshot(t, store, &Snapshot{Name: "20230601120000", BasePath: "prod/backups", Hosts: []string{"h1", "h2"}, Keyspaces: "ks1"})
	putSnapshot(t, store, &Snapshot{Name: "20230701120000", BasePath: "prod/backups", Hosts: []string{"h1", "h2"}, Keyspaces: "ks1", Table: "cf9"})

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	ctx := context.Background()

	match, err := registry.Compatible(ctx, []string{"h1", "h2"}, "ks1", "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "20230601120000", match.Name)

	none, err := registry.Compatible(ctx, []string{"h1", "h2"}, "ks1", "cf1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRegistry_CachesListing(t *testing.T) {
	store := newRegistryStore(t)
	putSnapshot(t, store, &Snapshot{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"h1"}})

	registry := NewRegistry(store, "prod/backups", logging.NewNopLogger())
	ctx := context.Background()

	first, err := registry.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A snapshot added after the first listing is not visible to this instance.
	putSnapshot(t, store, &Snapshot{Name: "20230601120000", BasePath: "prod/backups", Hosts: []string{"h1"}})

	second, err := registry.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
}
