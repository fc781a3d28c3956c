package backup

import (
	"fmt"
	"strings"

	"cassandra-cluster-backup/internal/codec"
)

// agentManifestPath is where the node agent writes the upload file list.
const agentManifestPath = "/tmp/backupmanifest"

func tableParam(table string) string {
	if table == "" {
		return ""
	}
	return "-cf " + table
}

// snapshotCommand builds the nodetool invocation taking a point-in-time
// snapshot named after the snapshot.
func snapshotCommand(nodetool, name, keyspaces, table string) string {
	return strings.Join(strings.Fields(fmt.Sprintf(
		"%s snapshot -t %s %s %s",
		nodetool, name, keyspaces, tableParam(table),
	)), " ")
}

// flushCommand builds the nodetool invocation forcing memtables into new
// SSTables, staging them for incremental upload.
func flushCommand(nodetool, keyspaces, table string) string {
	return strings.Join(strings.Fields(fmt.Sprintf(
		"%s flush %s %s",
		nodetool, keyspaces, tableParam(table),
	)), " ")
}

// clearSnapshotCommand builds the nodetool invocation removing a named
// snapshot from a node, or every snapshot when name is empty.
func clearSnapshotCommand(nodetool, name string) string {
	if name == "" {
		return nodetool + " clearsnapshot"
	}
	return fmt.Sprintf("%s clearsnapshot -t %q", nodetool, name)
}

// ringCommand builds the nodetool invocation dumping the ring description.
func ringCommand(nodetool string) string {
	return nodetool + " ring"
}

// schemaCommand builds the cqlsh invocation dumping the schema, scoped to one
// keyspace when given.
func schemaCommand(cqlsh, keyspace string) string {
	if keyspace == "" {
		return fmt.Sprintf("%s -e 'DESCRIBE SCHEMA;'", cqlsh)
	}
	return fmt.Sprintf("%s -e 'DESCRIBE KEYSPACE %s;'", cqlsh, keyspace)
}

// createManifestCommand builds the agent invocation enumerating the local
// files belonging to this pass into a fixed manifest path. Splitting this
// from the upload keeps the upload step ignorant of the filesystem layout.
func createManifestCommand(agent, snapshotName, keyspaces, table, dataPath string, incremental bool) string {
	flag := ""
	if incremental {
		flag = " --incremental-backups"
	}
	return fmt.Sprintf(
		"%s create-upload-manifest --manifest-path=%s --snapshot-name=%s --snapshot-keyspaces=%s --snapshot-table=%s --data-path=%s%s",
		agent, agentManifestPath, snapshotName, keyspaces, table, dataPath, flag,
	)
}

// uploadCommand builds the agent invocation streaming the files listed in the
// manifest to the object store under prefix.
func uploadCommand(agent, provider, bucket, prefix string, concurrency int, compression codec.Algorithm, incremental bool) string {
	flag := ""
	if incremental {
		flag = " --incremental-backups"
	}
	return fmt.Sprintf(
		"%s put --storage-provider=%s --bucket=%s --base-path=%s --manifest=%s --concurrency=%d --compression=%s%s",
		agent, provider, bucket, prefix, agentManifestPath, concurrency, compression, flag,
	)
}

// withEnvPrefix prepends the agent environment setup command when configured.
func withEnvPrefix(prefix, command string) string {
	if prefix == "" {
		return command
	}
	return prefix + " && " + command
}

// listKeyspaceDirsCommand enumerates the keyspace directories under the data path.
func listKeyspaceDirsCommand(dataPath string) string {
	return fmt.Sprintf("find %s -mindepth 1 -maxdepth 1 -type d", dataPath)
}

// findBackupsDirsCommand enumerates the incremental "backups" directories
// under one keyspace directory.
func findBackupsDirsCommand(keyspaceDir string) string {
	return fmt.Sprintf("find %s -mindepth 2 -name backups -type d", keyspaceDir)
}

// emptyDirCommand removes the contents of a directory, keeping the directory.
func emptyDirCommand(dir string) string {
	return fmt.Sprintf("find %s -mindepth 1 -delete", dir)
}
