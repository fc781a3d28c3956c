package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cassandra-cluster-backup/internal/codec"
)

func TestSnapshotCommand(t *testing.T) {
	tests := []struct {
		name      string
		keyspaces string
		table     string
		want      string
	}{
		{
			name: "all keyspaces",
			want: "/usr/bin/nodetool snapshot -t 20230601120000",
		},
		{
			name:      "scoped keyspaces",
			keyspaces: "ks1,ks2",
			want:      "/usr/bin/nodetool snapshot -t 20230601120000 ks1,ks2",
		},
		{
			name:      "single table",
			keyspaces: "ks1",
			table:     "users",
			want:      "/usr/bin/nodetool snapshot -t 20230601120000 ks1 -cf users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshotCommand("/usr/bin/nodetool", "20230601120000", tt.keyspaces, tt.table)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlushCommand(t *testing.T) {
	assert.Equal(t, "/usr/bin/nodetool flush",
		flushCommand("/usr/bin/nodetool", "", ""))
	assert.Equal(t, "/usr/bin/nodetool flush ks1 -cf users",
		flushCommand("/usr/bin/nodetool", "ks1", "users"))
}

func TestClearSnapshotCommand(t *testing.T) {
	assert.Equal(t, "/usr/bin/nodetool clearsnapshot",
		clearSnapshotCommand("/usr/bin/nodetool", ""))
	assert.Equal(t, `/usr/bin/nodetool clearsnapshot -t "20230601120000"`,
		clearSnapshotCommand("/usr/bin/nodetool", "20230601120000"))
}

func TestSchemaCommand(t *testing.T) {
	assert.Equal(t, "/usr/bin/cqlsh -e 'DESCRIBE SCHEMA;'",
		schemaCommand("/usr/bin/cqlsh", ""))
	assert.Equal(t, "/usr/bin/cqlsh -e 'DESCRIBE KEYSPACE ks1;'",
		schemaCommand("/usr/bin/cqlsh", "ks1"))
}

func TestCreateManifestCommand(t *testing.T) {
	got := createManifestCommand("cassandra-backup-agent", "20230601120000", "ks1", "users", "/var/lib/cassandra/data/", false)
	want := "cassandra-backup-agent create-upload-manifest" +
		" --manifest-path=/tmp/backupmanifest" +
		" --snapshot-name=20230601120000" +
		" --snapshot-keyspaces=ks1" +
		" --snapshot-table=users" +
		" --data-path=/var/lib/cassandra/data/"
	assert.Equal(t, want, got)

	incremental := createManifestCommand("cassandra-backup-agent", "20230601120000", "", "", "/var/lib/cassandra/data/", true)
	assert.Contains(t, incremental, "--incremental-backups")
}

func TestUploadCommand(t *testing.T) {
	got := uploadCommand("cassandra-backup-agent", "s3", "my-bucket", "prod/backups/20230601120000/node1", 4, codec.AlgorithmSnappy, false)
	want := "cassandra-backup-agent put" +
		" --storage-provider=s3" +
		" --bucket=my-bucket" +
		" --base-path=prod/backups/20230601120000/node1" +
		" --manifest=/tmp/backupmanifest" +
		" --concurrency=4" +
		" --compression=snappy"
	assert.Equal(t, want, got)

	incremental := uploadCommand("cassandra-backup-agent", "s3", "my-bucket", "prod/backups/20230601120000/node1", 4, codec.AlgorithmSnappy, true)
	assert.Contains(t, incremental, "--incremental-backups")
}

func TestWithEnvPrefix(t *testing.T) {
	assert.Equal(t, "nodetool ring", withEnvPrefix("", "nodetool ring"))
	assert.Equal(t, "source /opt/agent/env && nodetool ring",
		withEnvPrefix("source /opt/agent/env", "nodetool ring"))
}

func TestFindCommands(t *testing.T) {
	assert.Equal(t, "find /var/lib/cassandra/data -mindepth 1 -maxdepth 1 -type d",
		listKeyspaceDirsCommand("/var/lib/cassandra/data"))
	assert.Equal(t, "find /var/lib/cassandra/data/ks1 -mindepth 2 -name backups -type d",
		findBackupsDirsCommand("/var/lib/cassandra/data/ks1"))
	assert.Equal(t, "find /var/lib/cassandra/data/ks1/users/backups -mindepth 1 -delete",
		emptyDirCommand("/var/lib/cassandra/data/ks1/users/backups"))
}
