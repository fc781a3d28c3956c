package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-cluster-backup/internal/snapshot"
)

func TestPrintSnapshotList_GroupsByBasePath(t *testing.T) {
	color.NoColor = true

	snapshots := []*snapshot.Snapshot{
		{Name: "20230601120000", BasePath: "prod/backups", Hosts: []string{"node1", "node2"}, Keyspaces: "ks1"},
		{Name: "20230515090000", BasePath: "staging/backups", Hosts: []string{"node9"}},
		{Name: "20230101000000", BasePath: "prod/backups", Hosts: []string{"node1", "node2"}, Keyspaces: "ks1", Table: "users"},
	}

	var buf bytes.Buffer
	printSnapshotList(&buf, snapshots)
	out := buf.String()

	// One header per base path, in first-seen order.
	prodIdx := strings.Index(out, "prod/backups:")
	stagingIdx := strings.Index(out, "staging/backups:")
	require.GreaterOrEqual(t, prodIdx, 0)
	require.Greater(t, stagingIdx, prodIdx)
	assert.Equal(t, 1, strings.Count(out, "prod/backups:"))

	assert.Contains(t, out, "20230601120000  hosts=node1,node2  keyspaces=ks1")
	assert.Contains(t, out, "20230101000000  hosts=node1,node2  keyspaces=ks1  table=users")
	assert.Contains(t, out, "20230515090000  hosts=node9")
}
