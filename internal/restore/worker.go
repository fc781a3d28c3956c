package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cassandra-cluster-backup/internal/codec"
	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/snapshot"
	"cassandra-cluster-backup/internal/storage"
)

// Config configures one restore run.
type Config struct {
	// Keyspace to restore. Required.
	Keyspace string
	// Table restricts the restore to one column family. Empty restores the
	// whole keyspace.
	Table string
	// Hosts restricts which source nodes' files are restored. Empty means
	// every host recorded in the snapshot manifest.
	Hosts []string
	// TargetHosts are the nodes sstableloader streams into.
	TargetHosts []string
	// MergeDir is the local staging directory. Its per-keyspace subtree is
	// recreated from scratch on every run.
	MergeDir string
	// LocalSource, when set, restores from a local directory tree instead
	// of the object store.
	LocalSource string
	// SSTableLoader is the bulk loader invocation path.
	SSTableLoader string
	// Compression is the algorithm the node agent used on upload.
	Compression codec.Algorithm
	// PoolSize bounds simultaneous transfers.
	PoolSize int
	// ProgressOutput receives the transfer progress line.
	ProgressOutput io.Writer
}

// LoaderRunner executes the bulk loader. Separated from the worker so tests
// can assert the exact invocation without a Cassandra installation.
type LoaderRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Worker drives one restore run.
type Worker struct {
	cfg    Config
	store  storage.ObjectStore
	runner LoaderRunner
	logger *logging.Logger
}

// NewWorker creates a restore worker. store may be nil when restoring from a
// local source; runner defaults to executing sstableloader locally.
func NewWorker(cfg Config, store storage.ObjectStore, runner LoaderRunner, logger *logging.Logger) *Worker {
	if cfg.MergeDir == "" {
		cfg.MergeDir = "."
	}
	if cfg.SSTableLoader == "" {
		cfg.SSTableLoader = "sstableloader"
	}
	if cfg.Compression == "" {
		cfg.Compression = codec.DefaultAlgorithm
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.ProgressOutput == nil {
		cfg.ProgressOutput = os.Stdout
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Worker{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logger,
	}
}

// Restore fetches the snapshot's files for the configured keyspace, merges
// them per table and bulk-loads each table into the target cluster. snap may
// be nil when restoring a local source with an explicit host list; the stored
// manifest is not consulted in that mode.
func (w *Worker) Restore(ctx context.Context, snap *snapshot.Snapshot) error {
	fields := map[string]interface{}{
		"run_id":   logging.NewRunID(),
		"keyspace": w.cfg.Keyspace,
	}
	if snap != nil {
		fields["snapshot"] = snap.Name
	}
	done := w.logger.LogOperationStart("restore", fields)
	err := w.restore(ctx, snap)
	done(err)
	return err
}

func (w *Worker) restore(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil && w.cfg.LocalSource == "" {
		return errors.NewValidation("a snapshot is required unless restoring from a local source", nil)
	}

	hosts := w.cfg.Hosts
	if len(hosts) == 0 {
		if snap == nil {
			return errors.NewValidation("restoring without a snapshot requires explicit source hosts", nil)
		}
		hosts = snap.Hosts
	}

	matcher, err := buildMatcher(hosts, w.cfg.Keyspace, w.cfg.Table)
	if err != nil {
		return err
	}

	var items []*transferItem
	if w.cfg.LocalSource != "" {
		items, err = w.discoverLocal(matcher)
	} else {
		items, err = w.discoverStored(ctx, snap, matcher)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		notFound := errors.NewNotFound("no backup files match the restore filter", nil).
			WithContext("keyspace", w.cfg.Keyspace)
		if snap != nil {
			notFound = notFound.WithContext("snapshot", snap.Name)
		}
		return notFound
	}

	if err := w.prepareMergeDir(items); err != nil {
		return err
	}

	var total int64
	for _, item := range items {
		total += item.size
		item.destination = filepath.Join(w.cfg.MergeDir, item.keyspace, item.table,
			item.host+"_"+path.Base(item.source))
	}

	w.logger.Infof("Transferring %d files (%s)", len(items), humanSize(total))
	prog := newProgress(total, w.cfg.ProgressOutput)
	if err := w.transferAll(ctx, items, prog); err != nil {
		return err
	}
	prog.finish()

	return w.bulkLoad(ctx, items)
}

// buildMatcher compiles the file filter. Group 1 is the source host, group 2
// the keyspace, group 3 the table.
func buildMatcher(hosts []string, keyspace, table string) (*regexp.Regexp, error) {
	if keyspace == "" {
		return nil, errors.NewValidation("restore keyspace cannot be empty", nil)
	}
	if table == "" {
		table = ".*?"
	}

	pattern := "(" + strings.Join(hosts, "|") + ").*/(" + keyspace + ")/(" + table + ")/"
	matcher, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidation("invalid restore filter", err).WithContext("pattern", pattern)
	}
	return matcher, nil
}

func (w *Worker) discoverStored(ctx context.Context, snap *snapshot.Snapshot, matcher *regexp.Regexp) ([]*transferItem, error) {
	entries, err := w.store.List(ctx, snap.Path()+"/", "")
	if err != nil {
		return nil, err
	}

	var items []*transferItem
	for _, entry := range entries {
		m := matcher.FindStringSubmatch(entry.Key)
		if m == nil {
			continue
		}
		items = append(items, &transferItem{
			source:   entry.Key,
			host:     m[1],
			keyspace: m[2],
			table:    m[3],
			size:     entry.Size,
		})
	}
	return items, nil
}

func (w *Worker) discoverLocal(matcher *regexp.Regexp) ([]*transferItem, error) {
	var items []*transferItem
	err := filepath.Walk(w.cfg.LocalSource, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		m := matcher.FindStringSubmatch(filepath.ToSlash(filePath))
		if m == nil {
			return nil
		}
		items = append(items, &transferItem{
			source:   filePath,
			host:     m[1],
			keyspace: m[2],
			table:    m[3],
			size:     info.Size(),
			local:    true,
		})
		return nil
	})
	if err != nil {
		return nil, errors.NewTransfer("failed to walk local source", err).
			WithContext("path", w.cfg.LocalSource)
	}
	return items, nil
}

// prepareMergeDir recreates the keyspace subtree of the merge directory so no
// stale file from a previous restore reaches the bulk loader.
func (w *Worker) prepareMergeDir(items []*transferItem) error {
	keyspaceDir := filepath.Join(w.cfg.MergeDir, w.cfg.Keyspace)
	w.logger.Infof("Recreating merge directory %s", keyspaceDir)

	if err := os.RemoveAll(keyspaceDir); err != nil {
		return errors.NewTransfer("failed to clear merge directory", err).
			WithContext("path", keyspaceDir)
	}

	for _, dir := range tableDirs(w.cfg.MergeDir, items) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewTransfer("failed to create merge directory", err).
				WithContext("path", dir)
		}
	}
	return nil
}

// bulkLoad streams every merged table directory into the target cluster.
func (w *Worker) bulkLoad(ctx context.Context, items []*transferItem) error {
	nodes := strings.Join(w.cfg.TargetHosts, ",")

	for _, dir := range tableDirs(w.cfg.MergeDir, items) {
		args := []string{"--nodes", nodes, "-v", dir}
		w.logger.Infof("Running %s %s", w.cfg.SSTableLoader, strings.Join(args, " "))

		out, err := w.runner.Run(ctx, w.cfg.SSTableLoader, args...)
		if err != nil {
			return errors.NewBulkLoad(fmt.Sprintf("sstableloader failed for %s", dir), err).
				WithContext("output", out)
		}
		w.logger.Debug(out)
	}
	return nil
}

// tableDirs returns the distinct per-table merge directories, sorted.
func tableDirs(mergeDir string, items []*transferItem) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, item := range items {
		dir := filepath.Join(mergeDir, item.keyspace, item.table)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}
