package storage

import (
	"context"
	"fmt"

	"cassandra-cluster-backup/internal/errors"
)

// NewObjectStore creates an object store based on the storage configuration
func NewObjectStore(ctx context.Context, config Config) (ObjectStore, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.NewValidation("invalid storage configuration", err)
	}

	switch config.Provider {
	case ProviderLocal:
		return NewLocalObjectStore(config.Local)

	case ProviderS3:
		return NewS3ObjectStore(config.S3)

	case ProviderAzure:
		return NewAzureObjectStore(config.Azure)

	case ProviderGCS:
		return NewGCSObjectStore(ctx, config.GCS)

	default:
		return nil, errors.NewValidation(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// SupportedProviders returns the list of supported storage provider types
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderLocal,
		ProviderS3,
		ProviderAzure,
		ProviderGCS,
	}
}
