package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cassandra-cluster-backup/internal/codec"
	"cassandra-cluster-backup/internal/config"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/restore"
	"cassandra-cluster-backup/internal/snapshot"
	"cassandra-cluster-backup/internal/storage"
)

// latestSnapshotName selects the most recent stored snapshot.
const latestSnapshotName = "LATEST"

var (
	restoreSnapshotName string
	restoreKeyspace     string
	restoreTable        string
	restoreHosts        []string
	restoreTargetHosts  []string
	restoreMergeDir     string
	restoreLocalSource  string
	restoreLoaderPath   string
	restoreCompression  string
)

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a keyspace from a stored snapshot",
	Long: `Restore a keyspace from a stored snapshot into a target cluster.

Backup files for the selected keyspace are fetched from the object store (or
copied from a local directory with --local-source), merged per table into the
merge directory with collision-safe names, and streamed into the target
cluster with sstableloader.

Examples:
  # Restore a keyspace from the latest snapshot
  cassandra-cluster-backup --config cluster.yaml restore \
      --keyspace ks1 --target-hosts 10.0.0.1,10.0.0.2

  # Restore a single table from a named snapshot
  cassandra-cluster-backup --config cluster.yaml restore \
      --snapshot-name 20230601120000 --keyspace ks1 --table users \
      --target-hosts 10.0.0.1

  # Restore from a locally downloaded backup tree, no object store needed
  cassandra-cluster-backup restore \
      --keyspace ks1 --local-source /backups/20230601120000 \
      --hosts node1,node2 --target-hosts 10.0.0.1`,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&restoreSnapshotName, "snapshot-name", latestSnapshotName, "snapshot to restore")
	restoreCmd.Flags().StringVar(&restoreKeyspace, "keyspace", "", "keyspace to restore")
	restoreCmd.Flags().StringVar(&restoreTable, "table", "", "restrict the restore to one column family")
	restoreCmd.Flags().StringSliceVar(&restoreHosts, "hosts", nil, "source nodes to restore from (default all in the snapshot; with --local-source the snapshot lookup is skipped)")
	restoreCmd.Flags().StringSliceVar(&restoreTargetHosts, "target-hosts", nil, "nodes sstableloader streams into")
	restoreCmd.Flags().StringVar(&restoreMergeDir, "merge-dir", ".", "local staging directory for merged tables")
	restoreCmd.Flags().StringVar(&restoreLocalSource, "local-source", "", "restore from a local directory instead of the object store")
	restoreCmd.Flags().StringVar(&restoreLoaderPath, "sstableloader-path", "sstableloader", "sstableloader invocation path")
	restoreCmd.Flags().StringVar(&restoreCompression, "compression", string(codec.DefaultAlgorithm), "compression the agent used on upload")

	restoreCmd.MarkFlagRequired("keyspace")
	restoreCmd.MarkFlagRequired("target-hosts")
}

// runRestore is the main execution function for the restore command
func runRestore(cmd *cobra.Command, args []string) error {
	// A local source with an explicit host list needs neither the object
	// store nor a stored manifest, so skip the storage validation too.
	localOnly := restoreLocalSource != "" && len(restoreHosts) > 0

	var (
		cfg *config.Config
		err error
	)
	if localOnly {
		cfg, err = loadConfig(cmd)
	} else {
		cfg, err = buildConfig(cmd)
	}
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	compression, err := codec.Parse(restoreCompression)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	var (
		store storage.ObjectStore
		snap  *snapshot.Snapshot
	)
	if localOnly {
		logger.Infof("Restoring keyspace %s from local source %s", restoreKeyspace, restoreLocalSource)
	} else {
		store, err = newObjectStore(cmd, cfg)
		if err != nil {
			return err
		}
		snap, err = resolveSnapshot(cmd, cfg, store, logger)
		if err != nil {
			return err
		}
		logger.Infof("Restoring keyspace %s from snapshot %s", restoreKeyspace, snap.Name)
	}

	worker := restore.NewWorker(restore.Config{
		Keyspace:      restoreKeyspace,
		Table:         restoreTable,
		Hosts:         restoreHosts,
		TargetHosts:   restoreTargetHosts,
		MergeDir:      restoreMergeDir,
		LocalSource:   restoreLocalSource,
		SSTableLoader: restoreLoaderPath,
		Compression:   compression,
	}, store, nil, logger)

	if err := worker.Restore(cmd.Context(), snap); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	logger.Info("Restore complete")
	return nil
}

// resolveSnapshot looks up the requested snapshot, defaulting to the most
// recent one.
func resolveSnapshot(cmd *cobra.Command, cfg *config.Config, store storage.ObjectStore, logger *logging.Logger) (*snapshot.Snapshot, error) {
	registry := newRegistry(store, cfg, logger)

	if restoreSnapshotName == latestSnapshotName {
		snap, err := registry.Latest(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest snapshot: %w", err)
		}
		return snap, nil
	}

	snap, err := registry.ByName(cmd.Context(), restoreSnapshotName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot not found: %s", restoreSnapshotName)
	}
	return snap, nil
}
