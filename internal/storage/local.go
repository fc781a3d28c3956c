package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cassandra-cluster-backup/internal/errors"
)

// LocalObjectStore implements ObjectStore on a local directory tree. Object
// keys map to file paths under <base_path>/<bucket>/. Used for tests and for
// filesystem-backed stores.
type LocalObjectStore struct {
	basePath string
	bucket   string
}

// NewLocalObjectStore creates a new LocalObjectStore instance
func NewLocalObjectStore(config *LocalConfig) (*LocalObjectStore, error) {
	if config == nil {
		return nil, errors.NewValidation("local storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewValidation("invalid local storage configuration", err)
	}

	root := filepath.Join(config.BasePath, config.Bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.NewStorage("failed to create local storage directory", err)
	}

	return &LocalObjectStore{
		basePath: config.BasePath,
		bucket:   config.Bucket,
	}, nil
}

func (l *LocalObjectStore) keyPath(key string) string {
	return filepath.Join(l.basePath, l.bucket, filepath.FromSlash(key))
}

// PutString writes content under key
func (l *LocalObjectStore) PutString(ctx context.Context, key, content string) error {
	path := l.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStorage("failed to create object directory", err).WithContext("key", key)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.NewStorage("failed to write object", err).WithContext("key", key)
	}
	return nil
}

// GetString returns the content stored under key
func (l *LocalObjectStore) GetString(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(l.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("object not found", err).WithContext("key", key)
		}
		return "", errors.NewStorage("failed to read object", err).WithContext("key", key)
	}
	return string(data), nil
}

// List enumerates objects under prefix, honoring the delimiter
func (l *LocalObjectStore) List(ctx context.Context, prefix, delimiter string) ([]Entry, error) {
	root := filepath.Join(l.basePath, l.bucket)

	var keys []Entry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		keys = append(keys, Entry{Key: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.NewStorage("failed to walk local storage", err).WithContext("prefix", prefix)
	}

	var entries []Entry
	seenPrefixes := make(map[string]bool)
	for _, e := range keys {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		if delimiter == "" {
			entries = append(entries, e)
			continue
		}
		rest := e.Key[len(prefix):]
		if idx := strings.Index(rest, delimiter); idx >= 0 {
			cp := e.Key[:len(prefix)+idx+len(delimiter)]
			if !seenPrefixes[cp] {
				seenPrefixes[cp] = true
				entries = append(entries, Entry{Key: cp, IsPrefix: true})
			}
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Open returns a streaming reader for the object stored under key
func (l *LocalObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(l.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("object not found", err).WithContext("key", key)
		}
		return nil, errors.NewStorage("failed to open object", err).WithContext("key", key)
	}
	return file, nil
}

// Bucket returns the logical bucket name
func (l *LocalObjectStore) Bucket() string {
	return l.bucket
}
