package storage

import (
	"context"
	"io"

	"cassandra-cluster-backup/internal/errors"
)

// ProviderType identifies an object store backend
type ProviderType string

const (
	ProviderLocal ProviderType = "local"
	ProviderS3    ProviderType = "s3"
	ProviderAzure ProviderType = "azure"
	ProviderGCS   ProviderType = "gcs"
)

// Entry is one result of a prefix listing. When IsPrefix is true the entry is
// a directory-like common prefix rather than an object.
type Entry struct {
	Key      string
	Size     int64
	IsPrefix bool
}

// ObjectStore abstracts the append-only object store holding snapshot data.
// Implementations are scoped to a single bucket (or container) at creation.
type ObjectStore interface {
	// PutString writes content under key, overwriting any existing object.
	PutString(ctx context.Context, key, content string) error

	// GetString returns the content stored under key. A missing object yields
	// a NOT_FOUND error.
	GetString(ctx context.Context, key string) (string, error)

	// List enumerates objects under prefix. With a non-empty delimiter the
	// result contains directory-like common prefixes, one per sub-tree.
	List(ctx context.Context, prefix, delimiter string) ([]Entry, error)

	// Open returns a streaming reader for the object stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Bucket returns the logical storage namespace this store is scoped to.
	Bucket() string
}

// Config selects and configures an object store backend
type Config struct {
	Provider ProviderType `mapstructure:"provider" yaml:"provider"`
	Local    *LocalConfig `mapstructure:"local" yaml:"local,omitempty"`
	S3       *S3Config    `mapstructure:"s3" yaml:"s3,omitempty"`
	Azure    *AzureConfig `mapstructure:"azure" yaml:"azure,omitempty"`
	GCS      *GCSConfig   `mapstructure:"gcs" yaml:"gcs,omitempty"`
}

// Validate checks that the selected provider has its configuration present
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			return errors.NewValidation("local storage configuration is required", nil)
		}
		return c.Local.Validate()
	case ProviderS3:
		if c.S3 == nil {
			return errors.NewValidation("S3 storage configuration is required", nil)
		}
		return c.S3.Validate()
	case ProviderAzure:
		if c.Azure == nil {
			return errors.NewValidation("Azure storage configuration is required", nil)
		}
		return c.Azure.Validate()
	case ProviderGCS:
		if c.GCS == nil {
			return errors.NewValidation("GCS storage configuration is required", nil)
		}
		return c.GCS.Validate()
	default:
		return errors.NewValidation("unsupported storage provider: "+string(c.Provider), nil)
	}
}

// LocalConfig configures a directory-backed object store
type LocalConfig struct {
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
	Bucket   string `mapstructure:"bucket" yaml:"bucket"`
}

func (c *LocalConfig) Validate() error {
	if c.BasePath == "" {
		return errors.NewValidation("local storage base path cannot be empty", nil)
	}
	if c.Bucket == "" {
		return errors.NewValidation("local storage bucket cannot be empty", nil)
	}
	return nil
}

// S3Config configures an Amazon S3 backed object store
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	// SSE enables server side encryption on uploaded metadata objects.
	SSE bool `mapstructure:"sse" yaml:"sse"`
}

func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.NewValidation("S3 bucket cannot be empty", nil)
	}
	if c.Region == "" {
		return errors.NewValidation("S3 region cannot be empty", nil)
	}
	return nil
}

// AzureConfig configures an Azure Blob Storage backed object store
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return errors.NewValidation("Azure account name cannot be empty", nil)
	}
	if c.AccountKey == "" {
		return errors.NewValidation("Azure account key cannot be empty", nil)
	}
	if c.ContainerName == "" {
		return errors.NewValidation("Azure container name cannot be empty", nil)
	}
	return nil
}

// GCSConfig configures a Google Cloud Storage backed object store
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return errors.NewValidation("GCS bucket cannot be empty", nil)
	}
	return nil
}
