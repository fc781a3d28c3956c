package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"cassandra-cluster-backup/internal/codec"
	"cassandra-cluster-backup/internal/errors"
)

const (
	// defaultPoolSize bounds the number of simultaneous transfers.
	defaultPoolSize = 5
	// fetchAttempts is the total number of tries per remote object.
	fetchAttempts = 3
)

// transferItem is one backup file to bring into the merge directory.
type transferItem struct {
	// source is an object key, or a local file path when local is set.
	source      string
	host        string
	keyspace    string
	table       string
	size        int64
	destination string
	local       bool
}

// transferAll moves every item into the merge directory through a bounded
// pool. Remote fetches are retried; a transfer that keeps failing aborts the
// whole batch.
func (w *Worker) transferAll(ctx context.Context, items []*transferItem, prog *progress) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.PoolSize)

	for _, item := range items {
		item := item
		g.Go(func() error {
			if item.local {
				return w.copyLocal(item, prog)
			}
			return w.fetchRemote(ctx, item, prog)
		})
	}
	return g.Wait()
}

func (w *Worker) fetchRemote(ctx context.Context, item *transferItem, prog *progress) error {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.fetchOnce(ctx, item)
		w.logger.LogTransfer(item.source, item.destination, item.size, err)
		if err == nil {
			prog.add(item.size)
			return nil
		}
		lastErr = err
		w.logger.Warnf("Fetching %s failed (attempt %d/%d): %v", item.source, attempt, fetchAttempts, err)
	}

	return errors.NewTransfer(
		fmt.Sprintf("giving up on %s after %d attempts", item.source, fetchAttempts), lastErr).
		WithContext("key", item.source)
}

func (w *Worker) fetchOnce(ctx context.Context, item *transferItem) error {
	src, err := w.store.Open(ctx, item.source)
	if err != nil {
		return err
	}
	defer src.Close()

	decoder, err := codec.NewReader(w.cfg.Compression, src)
	if err != nil {
		return err
	}
	defer decoder.Close()

	return writeFile(item.destination, decoder)
}

// copyLocal copies one file from the local source tree, preserving mode and
// modification time. Local copies are not retried.
func (w *Worker) copyLocal(item *transferItem, prog *progress) error {
	src, err := os.Open(item.source)
	if err != nil {
		return errors.NewTransfer("failed to open source file", err).WithContext("path", item.source)
	}
	defer src.Close()

	if err := writeFile(item.destination, src); err != nil {
		return errors.NewTransfer("failed to copy file", err).WithContext("path", item.source)
	}

	if info, err := os.Stat(item.source); err == nil {
		os.Chmod(item.destination, info.Mode())
		os.Chtimes(item.destination, info.ModTime(), info.ModTime())
	}

	w.logger.LogTransfer(item.source, item.destination, item.size, nil)
	prog.add(item.size)
	return nil
}

func writeFile(destination string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}

	file, err := os.Create(destination)
	if err != nil {
		return err
	}

	_, err = io.Copy(file, src)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}
