package snapshot

import (
	"context"
	"sort"
	"strings"

	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/storage"
)

// Registry discovers the snapshots stored under a base path. Population
// happens at most once per instance; the first access triggers a full listing
// and subsequent accesses reuse the cached, sorted result. A Registry is not
// safe for concurrent use.
type Registry struct {
	store    storage.ObjectStore
	basePath string
	logger   *logging.Logger

	snapshots []*Snapshot
	loaded    bool
}

// NewRegistry creates a registry over the snapshots stored under basePath.
func NewRegistry(store storage.ObjectStore, basePath string, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Registry{
		store:    store,
		basePath: basePath,
		logger:   logger,
	}
}

func (r *Registry) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	prefix := r.basePath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	entries, err := r.store.List(ctx, prefix, "/")
	if err != nil {
		return errors.NewStorage("failed to list snapshots", err).WithContext("base_path", r.basePath)
	}

	snapshots := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		// A delimiter listing can return the base path itself as a
		// pseudo-entry with no manifest behind it.
		if !entry.IsPrefix || entry.Key == prefix {
			continue
		}

		manifestKey := entry.Key + "manifest.json"
		data, err := r.store.GetString(ctx, manifestKey)
		if err != nil {
			r.logger.Warnf("Skipping %s: %v", manifestKey, err)
			continue
		}

		snap, err := Unmarshal([]byte(data), r.store.Bucket())
		if err != nil {
			r.logger.Warnf("Skipping unparseable manifest %s: %v", manifestKey, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	// Most recent first. Names are fixed-width timestamps, so string order
	// is chronological order.
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name > snapshots[j].Name
	})

	r.snapshots = snapshots
	r.loaded = true
	return nil
}

// ListAll returns all snapshots under the base path, most recent first.
func (r *Registry) ListAll(ctx context.Context) ([]*Snapshot, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r.snapshots, nil
}

// Latest returns the most recent snapshot. An empty registry yields NOT_FOUND.
func (r *Registry) Latest(ctx context.Context) (*Snapshot, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	if len(r.snapshots) == 0 {
		return nil, errors.NewNotFound("no snapshots found", nil).WithContext("base_path", r.basePath)
	}
	return r.snapshots[0], nil
}

// ByName returns the snapshot with the exact name, or nil when absent.
func (r *Registry) ByName(ctx context.Context, name string) (*Snapshot, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	for _, snap := range r.snapshots {
		if snap.Name == name {
			return snap, nil
		}
	}
	return nil, nil
}

// Compatible returns the most recent snapshot whose hosts, keyspaces and table
// match exactly, or nil when none does. A nil result tells the backup
// orchestrator to start a brand-new snapshot instead of extending one.
func (r *Registry) Compatible(ctx context.Context, hosts []string, keyspaces, table string) (*Snapshot, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	for _, snap := range r.snapshots {
		if snap.Compatible(hosts, keyspaces, table) {
			return snap, nil
		}
	}
	return nil, nil
}
