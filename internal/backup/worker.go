package backup

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cassandra-cluster-backup/internal/codec"
	"cassandra-cluster-backup/internal/config"
	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/remote"
	"cassandra-cluster-backup/internal/snapshot"
	"cassandra-cluster-backup/internal/storage"
)

// defaultUploadConcurrency bounds the per-node agent upload streams.
const defaultUploadConcurrency = 4

// WorkerConfig is the immutable configuration of a backup worker.
type WorkerConfig struct {
	Cluster           config.ClusterConfig
	Provider          storage.ProviderType
	Compression       codec.Algorithm
	BackupSchema      bool
	UploadConcurrency int
}

// Worker orchestrates cluster-wide backups. All state lives in the snapshot
// being created; the worker itself is safe to reuse across runs.
type Worker struct {
	cfg      WorkerConfig
	executor remote.Executor
	store    storage.ObjectStore
	logger   *logging.Logger
}

// Options control the optional cleanup steps of a full backup run.
type Options struct {
	// KeepSnapshot leaves the new point-in-time snapshot on the nodes
	// after upload.
	KeepSnapshot bool
	// DeleteOldSnapshots clears all pre-existing snapshots from the nodes
	// (not from the object store) before taking the new one.
	DeleteOldSnapshots bool
	// DeleteIncrementalBackups empties the nodes' incremental "backups"
	// directories before the run.
	DeleteIncrementalBackups bool
}

// Request describes one invocation of the backup subcommand.
type Request struct {
	Hosts       []string
	Keyspaces   string
	Table       string
	NewSnapshot bool
	Options
}

// NewWorker creates a backup worker.
func NewWorker(cfg WorkerConfig, executor remote.Executor, store storage.ObjectStore, logger *logging.Logger) *Worker {
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = defaultUploadConcurrency
	}
	if cfg.Compression == "" {
		cfg.Compression = codec.DefaultAlgorithm
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Worker{
		cfg:      cfg,
		executor: executor,
		store:    store,
		logger:   logger,
	}
}

// Run decides between creating a fresh snapshot and extending the most recent
// compatible one, then executes the corresponding workflow. It returns the
// snapshot that was created or extended.
func (w *Worker) Run(ctx context.Context, registry *snapshot.Registry, req Request) (*snapshot.Snapshot, error) {
	opts := req.Options

	if !req.NewSnapshot {
		if opts.KeepSnapshot {
			w.logger.Warn("--new-snapshot not set, ignoring --keep-new-snapshot")
			opts.KeepSnapshot = false
		}
		if opts.DeleteOldSnapshots {
			w.logger.Warn("--new-snapshot not set, ignoring --delete-old-snapshots")
			opts.DeleteOldSnapshots = false
		}
		if opts.DeleteIncrementalBackups {
			w.logger.Warn("--new-snapshot not set, ignoring --delete-incremental-backups")
			opts.DeleteIncrementalBackups = false
		}

		existing, err := registry.Compatible(ctx, req.Hosts, req.Keyspaces, req.Table)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			w.logger.Infof("Adding incrementals to snapshot %s", existing.Name)
			return existing, w.RunIncremental(ctx, existing)
		}
	}

	snap := snapshot.New(w.cfg.Cluster.BasePath, w.store.Bucket(), req.Hosts, req.Keyspaces, req.Table)
	w.logger.Infof("Creating new snapshot %s", snap.Name)
	return snap, w.RunFull(ctx, snap, opts)
}

// RunFull takes a new point-in-time snapshot on every host, uploads every
// produced file and publishes the snapshot metadata. Unless KeepSnapshot is
// set, the node-local snapshot is cleared afterwards even when the upload
// failed.
func (w *Worker) RunFull(ctx context.Context, snap *snapshot.Snapshot, opts Options) error {
	runID := logging.NewRunID()
	log := w.logger.WithRun(runID)
	done := w.logger.LogOperationStart("backup_full", map[string]interface{}{
		"run_id":   runID,
		"snapshot": snap.Name,
		"hosts":    len(snap.Hosts),
	})

	err := w.runFull(ctx, snap, opts, log)
	done(err)
	return err
}

func (w *Worker) runFull(ctx context.Context, snap *snapshot.Snapshot, opts Options, log *logrus.Entry) error {
	if opts.DeleteIncrementalBackups {
		switch {
		case w.cfg.Cluster.DataPath == "":
			w.logger.Warn("Data path not set, will not empty node backups directories")
		case snap.Keyspaces == "":
			w.logger.Warn("Keyspaces not set, will not empty node backups directories")
		default:
			if err := w.clearClusterBackups(ctx, snap); err != nil {
				return err
			}
		}
	}

	if opts.DeleteOldSnapshots {
		if err := w.clearClusterSnapshot(ctx, snap.Hosts, ""); err != nil {
			return err
		}
	}

	if err := w.snapshotCluster(ctx, snap); err != nil {
		// Do not leak node-local snapshot state from a failed run.
		log.Infof("Snapshot step failed, clearing partially-created snapshot %s", snap.Name)
		if clearErr := w.clearClusterSnapshot(ctx, snap.Hosts, snap.Name); clearErr != nil {
			w.logger.Warnf("Best-effort cleanup of snapshot %s failed: %v", snap.Name, clearErr)
		}
		return err
	}

	uploadErr := w.uploadClusterBackups(ctx, snap, false)

	if !opts.KeepSnapshot {
		log.Infof("Removing new snapshot %s from nodes", snap.Name)
		if clearErr := w.clearClusterSnapshot(ctx, snap.Hosts, snap.Name); clearErr != nil {
			if uploadErr == nil {
				uploadErr = clearErr
			} else {
				w.logger.Warnf("Clearing snapshot %s failed: %v", snap.Name, clearErr)
			}
		}
	}
	if uploadErr != nil {
		return uploadErr
	}

	if err := w.writeRingDescription(ctx, snap); err != nil {
		return err
	}
	if err := w.writeManifest(ctx, snap); err != nil {
		return err
	}
	if w.cfg.BackupSchema {
		return w.writeSchema(ctx, snap)
	}
	return nil
}

// RunIncremental extends an existing snapshot with the files staged since the
// last flush. The manifest is not re-published; the snapshot identity is
// unchanged.
func (w *Worker) RunIncremental(ctx context.Context, snap *snapshot.Snapshot) error {
	runID := logging.NewRunID()
	done := w.logger.LogOperationStart("backup_incremental", map[string]interface{}{
		"run_id":   runID,
		"snapshot": snap.Name,
		"hosts":    len(snap.Hosts),
	})

	err := w.runIncremental(ctx, snap)
	done(err)
	return err
}

func (w *Worker) runIncremental(ctx context.Context, snap *snapshot.Snapshot) error {
	if err := w.flushCluster(ctx, snap); err != nil {
		return err
	}
	if err := w.uploadClusterBackups(ctx, snap, true); err != nil {
		return err
	}
	if err := w.writeRingDescription(ctx, snap); err != nil {
		return err
	}
	if w.cfg.BackupSchema {
		return w.writeSchema(ctx, snap)
	}
	return nil
}

// Cluster-wide steps. Each runs once per host in parallel, bounded by the
// connection pool size; a single host failure fails the step.

func (w *Worker) snapshotCluster(ctx context.Context, snap *snapshot.Snapshot) error {
	command := snapshotCommand(w.cfg.Cluster.Nodetool(), snap.Name, snap.Keyspaces, snap.Table)
	return w.clusterStep(ctx, "snapshot", snap.Hosts, command)
}

func (w *Worker) flushCluster(ctx context.Context, snap *snapshot.Snapshot) error {
	command := flushCommand(w.cfg.Cluster.Nodetool(), snap.Keyspaces, snap.Table)
	return w.clusterStep(ctx, "flush", snap.Hosts, command)
}

func (w *Worker) clearClusterSnapshot(ctx context.Context, hosts []string, name string) error {
	command := clearSnapshotCommand(w.cfg.Cluster.Nodetool(), name)
	return w.clusterStep(ctx, "clear_snapshot", hosts, command)
}

func (w *Worker) clusterStep(ctx context.Context, step string, hosts []string, command string) error {
	start := time.Now()
	err := remote.RunOnHosts(ctx, hosts, w.cfg.Cluster.PoolSize, func(ctx context.Context, host string) error {
		_, runErr := w.executor.Run(ctx, host, command)
		return runErr
	})
	w.logger.LogClusterStep(step, len(hosts), time.Since(start), err)
	return err
}

func (w *Worker) clearClusterBackups(ctx context.Context, snap *snapshot.Snapshot) error {
	start := time.Now()
	err := remote.RunOnHosts(ctx, snap.Hosts, w.cfg.Cluster.PoolSize, func(ctx context.Context, host string) error {
		return w.clearNodeBackups(ctx, host, snap)
	})
	w.logger.LogClusterStep("clear_backups", len(snap.Hosts), time.Since(start), err)
	return err
}

// clearNodeBackups empties the incremental "backups" directories on one node.
func (w *Worker) clearNodeBackups(ctx context.Context, host string, snap *snapshot.Snapshot) error {
	var keyspaceDirs []string
	if snap.Keyspaces != "" {
		for _, ks := range strings.Split(snap.Keyspaces, ",") {
			keyspaceDirs = append(keyspaceDirs, path.Join(w.cfg.Cluster.DataPath, ks))
		}
	} else {
		out, err := w.executor.Run(ctx, host, listKeyspaceDirsCommand(w.cfg.Cluster.DataPath))
		if err != nil {
			return err
		}
		keyspaceDirs = strings.Fields(out)
	}

	var backupsDirs []string
	for _, ksDir := range keyspaceDirs {
		if snap.Table != "" {
			backupsDirs = append(backupsDirs, ksDir+"/"+snap.Table+"/backups")
			continue
		}
		out, err := w.executor.Run(ctx, host, findBackupsDirsCommand(ksDir))
		if err != nil {
			return err
		}
		backupsDirs = append(backupsDirs, strings.Fields(out)...)
	}

	for _, dir := range backupsDirs {
		if _, err := w.executor.Run(ctx, host, emptyDirCommand(dir)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) uploadClusterBackups(ctx context.Context, snap *snapshot.Snapshot, incremental bool) error {
	start := time.Now()
	err := remote.RunOnHosts(ctx, snap.Hosts, w.cfg.Cluster.PoolSize, func(ctx context.Context, host string) error {
		return w.uploadNodeBackups(ctx, host, snap, incremental)
	})
	w.logger.LogClusterStep("upload", len(snap.Hosts), time.Since(start), err)
	return err
}

// uploadNodeBackups runs the two-step per-node upload protocol: build the
// upload manifest, then stream the listed files to the object store under
// <base_path>/<snapshot_name>/<hostname>/.
func (w *Worker) uploadNodeBackups(ctx context.Context, host string, snap *snapshot.Snapshot, incremental bool) error {
	cluster := w.cfg.Cluster

	create := createManifestCommand(cluster.Agent(), snap.Name, snap.Keyspaces, snap.Table, cluster.DataPath, incremental)
	if _, err := w.executor.Run(ctx, host, withEnvPrefix(cluster.AgentEnvPrefix, create)); err != nil {
		return err
	}

	prefix := snap.Path() + "/" + host
	put := uploadCommand(cluster.Agent(), string(w.cfg.Provider), w.store.Bucket(), prefix,
		w.cfg.UploadConcurrency, w.cfg.Compression, incremental)
	_, err := w.executor.Run(ctx, host, withEnvPrefix(cluster.AgentEnvPrefix, put))
	return err
}

// Metadata publication. The ring description and schema dumps are taken from
// the first host; the manifest is the snapshot's durable identity.

func (w *Worker) writeRingDescription(ctx context.Context, snap *snapshot.Snapshot) error {
	if len(snap.Hosts) == 0 {
		return errors.NewValidation("snapshot has no hosts", nil)
	}

	w.logger.Debug("Writing ring description")
	content, err := w.executor.Run(ctx, snap.Hosts[0], ringCommand(w.cfg.Cluster.Nodetool()))
	if err != nil {
		return err
	}
	return w.store.PutString(ctx, snap.Path()+"/ring", content)
}

func (w *Worker) writeManifest(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	return w.store.PutString(ctx, snap.ManifestKey(), string(data))
}

func (w *Worker) writeSchema(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap.Keyspaces == "" {
		w.logger.Debug("Writing schema for all keyspaces")
		content, err := w.executor.Run(ctx, snap.Hosts[0], schemaCommand(w.cfg.Cluster.Cqlsh(), ""))
		if err != nil {
			return err
		}
		return w.store.PutString(ctx, snap.Path()+"/schema.cdl", cleanSchemaOutput(content))
	}

	for _, ks := range strings.Split(snap.Keyspaces, ",") {
		w.logger.Debugf("Writing schema for keyspace %s", ks)
		content, err := w.executor.Run(ctx, snap.Hosts[0], schemaCommand(w.cfg.Cluster.Cqlsh(), ks))
		if err != nil {
			return err
		}
		if err := w.store.PutString(ctx, snap.Path()+"/schema_"+ks+".cdl", cleanSchemaOutput(content)); err != nil {
			return err
		}
	}
	return nil
}

// cleanSchemaOutput strips cqlsh connection warnings and surrounding blank
// lines, keeping only the DDL statements.
func cleanSchemaOutput(output string) string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "Warning") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
