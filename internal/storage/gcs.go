package storage

import (
	"context"
	stderrors "errors"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"cassandra-cluster-backup/internal/errors"
)

// GCSObjectStore implements ObjectStore for Google Cloud Storage
type GCSObjectStore struct {
	client *gcstorage.Client
	bucket string
}

// NewGCSObjectStore creates a new GCSObjectStore instance
func NewGCSObjectStore(ctx context.Context, config *GCSConfig) (*GCSObjectStore, error) {
	if config == nil {
		return nil, errors.NewValidation("GCS storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewValidation("invalid GCS storage configuration", err)
	}

	var client *gcstorage.Client
	var err error

	if config.CredentialsPath != "" {
		client, err = gcstorage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Default credentials from environment or metadata server.
		client, err = gcstorage.NewClient(ctx)
	}
	if err != nil {
		return nil, errors.NewStorage("failed to create GCS client", err)
	}

	return &GCSObjectStore{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// PutString writes content under key
func (g *GCSObjectStore) PutString(ctx context.Context, key, content string) error {
	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.WriteString(writer, content); err != nil {
		writer.Close()
		return errors.NewStorage("failed to write object to GCS", err).WithContext("key", key)
	}
	if err := writer.Close(); err != nil {
		return errors.NewStorage("failed to finalize GCS object", err).WithContext("key", key)
	}
	return nil
}

// GetString returns the content stored under key
func (g *GCSObjectStore) GetString(ctx context.Context, key string) (string, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, gcstorage.ErrObjectNotExist) {
			return "", errors.NewNotFound("object not found in GCS", err).WithContext("key", key)
		}
		return "", errors.NewStorage("failed to open object from GCS", err).WithContext("key", key)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.NewStorage("failed to read object body", err).WithContext("key", key)
	}
	return string(data), nil
}

// List enumerates objects under prefix, honoring the delimiter
func (g *GCSObjectStore) List(ctx context.Context, prefix, delimiter string) ([]Entry, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcstorage.Query{
		Prefix:    prefix,
		Delimiter: delimiter,
	})

	var entries []Entry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.NewStorage("failed to list objects in GCS", err).WithContext("prefix", prefix)
		}
		if attrs.Prefix != "" {
			entries = append(entries, Entry{Key: attrs.Prefix, IsPrefix: true})
			continue
		}
		entries = append(entries, Entry{Key: attrs.Name, Size: attrs.Size})
	}

	return entries, nil
}

// Open returns a streaming reader for the object stored under key
func (g *GCSObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, errors.NewNotFound("object not found in GCS", err).WithContext("key", key)
		}
		return nil, errors.NewStorage("failed to open object from GCS", err).WithContext("key", key)
	}
	return reader, nil
}

// Bucket returns the GCS bucket name
func (g *GCSObjectStore) Bucket() string {
	return g.bucket
}
