package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"cassandra-cluster-backup/internal/errors"
)

// AzureObjectStore implements ObjectStore for Azure Blob Storage
type AzureObjectStore struct {
	serviceURL    azblob.ServiceURL
	containerName string
}

// NewAzureObjectStore creates a new AzureObjectStore instance
func NewAzureObjectStore(config *AzureConfig) (*AzureObjectStore, error) {
	if config == nil {
		return nil, errors.NewValidation("Azure storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewValidation("invalid Azure storage configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, errors.NewStorage("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, errors.NewStorage("failed to parse Azure service URL", err)
	}

	return &AzureObjectStore{
		serviceURL:    azblob.NewServiceURL(*serviceURL, pipeline),
		containerName: config.ContainerName,
	}, nil
}

// PutString writes content under key
func (a *AzureObjectStore) PutString(ctx context.Context, key, content string) error {
	containerURL := a.serviceURL.NewContainerURL(a.containerName)
	blobURL := containerURL.NewBlockBlobURL(key)

	_, err := azblob.UploadBufferToBlockBlob(ctx, []byte(content), blobURL, azblob.UploadToBlockBlobOptions{})
	if err != nil {
		return errors.NewStorage("failed to upload blob to Azure", err).WithContext("key", key)
	}
	return nil
}

// GetString returns the content stored under key
func (a *AzureObjectStore) GetString(ctx context.Context, key string) (string, error) {
	reader, err := a.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.NewStorage("failed to read blob body", err).WithContext("key", key)
	}
	return string(data), nil
}

// List enumerates blobs under prefix, honoring the delimiter
func (a *AzureObjectStore) List(ctx context.Context, prefix, delimiter string) ([]Entry, error) {
	containerURL := a.serviceURL.NewContainerURL(a.containerName)
	options := azblob.ListBlobsSegmentOptions{Prefix: prefix}

	var entries []Entry
	for marker := (azblob.Marker{}); marker.NotDone(); {
		if delimiter != "" {
			resp, err := containerURL.ListBlobsHierarchySegment(ctx, marker, delimiter, options)
			if err != nil {
				return nil, errors.NewStorage("failed to list blobs in Azure", err).WithContext("prefix", prefix)
			}
			for _, bp := range resp.Segment.BlobPrefixes {
				entries = append(entries, Entry{Key: bp.Name, IsPrefix: true})
			}
			for _, item := range resp.Segment.BlobItems {
				entries = append(entries, Entry{Key: item.Name, Size: blobSize(item.Properties.ContentLength)})
			}
			marker = resp.NextMarker
			continue
		}

		resp, err := containerURL.ListBlobsFlatSegment(ctx, marker, options)
		if err != nil {
			return nil, errors.NewStorage("failed to list blobs in Azure", err).WithContext("prefix", prefix)
		}
		for _, item := range resp.Segment.BlobItems {
			entries = append(entries, Entry{Key: item.Name, Size: blobSize(item.Properties.ContentLength)})
		}
		marker = resp.NextMarker
	}

	return entries, nil
}

// Open returns a streaming reader for the blob stored under key
func (a *AzureObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	containerURL := a.serviceURL.NewContainerURL(a.containerName)
	blobURL := containerURL.NewBlockBlobURL(key)

	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if isAzureNotFound(err) {
			return nil, errors.NewNotFound("blob not found in Azure", err).WithContext("key", key)
		}
		return nil, errors.NewStorage("failed to download blob from Azure", err).WithContext("key", key)
	}
	return resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3}), nil
}

// Bucket returns the Azure container name
func (a *AzureObjectStore) Bucket() string {
	return a.containerName
}

func blobSize(length *int64) int64 {
	if length == nil {
		return 0
	}
	return *length
}

func isAzureNotFound(err error) bool {
	if stgErr, ok := err.(azblob.StorageError); ok {
		return stgErr.ServiceCode() == azblob.ServiceCodeBlobNotFound
	}
	return strings.Contains(err.Error(), "BlobNotFound")
}
