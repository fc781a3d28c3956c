package remote

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-cluster-backup/internal/errors"
)

func TestRunOnHosts_AllHostsVisited(t *testing.T) {
	fake := NewFakeExecutor()
	hosts := []string{"node1", "node2", "node3"}

	err := RunOnHosts(context.Background(), hosts, 2, func(ctx context.Context, host string) error {
		_, err := fake.Run(ctx, host, "nodetool flush")
		return err
	})
	require.NoError(t, err)

	var visited []string
	for _, c := range fake.Commands() {
		visited = append(visited, c.Host)
	}
	sort.Strings(visited)
	assert.Equal(t, hosts, visited)
}

func TestRunOnHosts_SingleHostFailureFailsStep(t *testing.T) {
	fake := NewFakeExecutor()
	fake.Handler = func(host, command string) (string, error) {
		if host == "node2" {
			return "", fmt.Errorf("connection refused")
		}
		return "", nil
	}

	err := RunOnHosts(context.Background(), []string{"node1", "node2", "node3"}, 3, func(ctx context.Context, host string) error {
		_, err := fake.Run(ctx, host, "nodetool snapshot")
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteStep))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunOnHosts_BoundedConcurrency(t *testing.T) {
	var current, peak int64

	err := RunOnHosts(context.Background(), []string{"a", "b", "c", "d", "e", "f"}, 2, func(ctx context.Context, host string) error {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		defer atomic.AddInt64(&current, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestFakeExecutor_Records(t *testing.T) {
	fake := NewFakeExecutor()
	ctx := context.Background()

	_, err := fake.Run(ctx, "node1", "nodetool ring")
	require.NoError(t, err)
	_, err = fake.Run(ctx, "node2", "nodetool flush ks1")
	require.NoError(t, err)

	assert.Equal(t, []string{"nodetool ring"}, fake.CommandsFor("node1"))
	assert.Len(t, fake.CommandsMatching("flush"), 1)
}
