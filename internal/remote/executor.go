// Package remote executes node-local commands on cluster hosts. The engine
// depends only on the Executor contract; the SSH transport lives behind it.
package remote

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cassandra-cluster-backup/internal/errors"
)

// Executor runs a shell command on a single remote host and returns its
// combined output.
type Executor interface {
	Run(ctx context.Context, host, command string) (string, error)
}

// RunOnHosts executes fn once per host in parallel, bounded by poolSize.
// A failure on any host surfaces as a failure of the whole step; no new work
// is dispatched after the first fatal error.
func RunOnHosts(ctx context.Context, hosts []string, poolSize int, fn func(ctx context.Context, host string) error) error {
	if poolSize < 1 {
		poolSize = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for _, host := range hosts {
		host := host
		g.Go(func() error {
			if err := fn(ctx, host); err != nil {
				return errors.NewRemoteStep("step failed on host", err).WithContext("host", host)
			}
			return nil
		})
	}

	return g.Wait()
}
