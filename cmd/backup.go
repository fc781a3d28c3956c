package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cassandra-cluster-backup/internal/backup"
	"cassandra-cluster-backup/internal/codec"
)

var (
	// Backup scope flags
	backupKeyspaces string
	backupTable     string

	// Snapshot lifecycle flags
	newSnapshot              bool
	keepNewSnapshot          bool
	deleteOldSnapshots       bool
	deleteIncrementalBackups bool

	// Upload flags
	backupSchema      bool
	compressionName   string
	uploadConcurrency int
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the cluster to the object store",
	Long: `Back up every node of the cluster to the object store.

When a stored snapshot exists whose hosts, keyspaces and table match the
requested scope, the run extends it incrementally: memtables are flushed and
only the files staged since the last run are uploaded. Otherwise (or with
--new-snapshot) a brand-new point-in-time snapshot is taken, uploaded, and
published under a fresh timestamp name.

Examples:
  # Incremental backup of the whole cluster
  cassandra-cluster-backup --config cluster.yaml backup

  # Fresh snapshot of two keyspaces, clearing old node-local snapshots
  cassandra-cluster-backup --config cluster.yaml backup \
      --keyspaces ks1,ks2 --new-snapshot --delete-old-snapshots

  # Snapshot a single table and keep it on the nodes afterwards
  cassandra-cluster-backup --config cluster.yaml backup \
      --keyspaces ks1 --table users --new-snapshot --keep-new-snapshot`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVar(&backupKeyspaces, "keyspaces", "", "comma-separated keyspaces to back up (default all)")
	backupCmd.Flags().StringVar(&backupTable, "table", "", "single column family to back up (default all)")

	backupCmd.Flags().BoolVar(&newSnapshot, "new-snapshot", false, "create a new snapshot instead of extending a compatible one")
	backupCmd.Flags().BoolVar(&keepNewSnapshot, "keep-new-snapshot", false, "leave the new snapshot on the nodes after upload")
	backupCmd.Flags().BoolVar(&deleteOldSnapshots, "delete-old-snapshots", false, "clear pre-existing snapshots from the nodes first")
	backupCmd.Flags().BoolVar(&deleteIncrementalBackups, "delete-incremental-backups", false, "empty the nodes' incremental backups directories first")

	backupCmd.Flags().BoolVar(&backupSchema, "backup-schema", false, "also store schema dumps alongside the snapshot")
	backupCmd.Flags().StringVar(&compressionName, "compression", string(codec.DefaultAlgorithm), "agent upload compression (none, snappy, zstd, lz4)")
	backupCmd.Flags().IntVar(&uploadConcurrency, "upload-concurrency", 4, "per-node agent upload streams")
}

// runBackup is the main execution function for the backup command
func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if len(cfg.Cluster.Hosts) == 0 {
		return fmt.Errorf("no cluster hosts configured, set --hosts or cluster.hosts")
	}

	compression, err := codec.Parse(compressionName)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	store, err := newObjectStore(cmd, cfg)
	if err != nil {
		return err
	}

	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer executor.Close()

	worker := backup.NewWorker(backup.WorkerConfig{
		Cluster:           cfg.Cluster,
		Provider:          cfg.Storage.Provider,
		Compression:       compression,
		BackupSchema:      backupSchema,
		UploadConcurrency: uploadConcurrency,
	}, executor, store, logger)

	snap, err := worker.Run(cmd.Context(), newRegistry(store, cfg, logger), backup.Request{
		Hosts:       cfg.Cluster.Hosts,
		Keyspaces:   backupKeyspaces,
		Table:       backupTable,
		NewSnapshot: newSnapshot,
		Options: backup.Options{
			KeepSnapshot:             keepNewSnapshot,
			DeleteOldSnapshots:       deleteOldSnapshots,
			DeleteIncrementalBackups: deleteIncrementalBackups,
		},
	})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	logger.Infof("Backup complete: %s://%s/%s", cfg.Storage.Provider, store.Bucket(), snap.Path())
	return nil
}
