package storage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"cassandra-cluster-backup/internal/errors"
)

// S3ObjectStore implements ObjectStore for Amazon S3
type S3ObjectStore struct {
	client *s3.S3
	bucket string
	sse    bool
}

// NewS3ObjectStore creates a new S3ObjectStore instance
func NewS3ObjectStore(config *S3Config) (*S3ObjectStore, error) {
	if config == nil {
		return nil, errors.NewValidation("S3 storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewValidation("invalid S3 storage configuration", err)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.NewStorage("failed to create AWS session", err)
	}

	return &S3ObjectStore{
		client: s3.New(sess),
		bucket: config.Bucket,
		sse:    config.SSE,
	}, nil
}

// PutString writes content under key
func (s *S3ObjectStore) PutString(ctx context.Context, key, content string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(content),
	}
	if s.sse {
		input.ServerSideEncryption = aws.String(s3.ServerSideEncryptionAes256)
	}

	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return errors.NewStorage("failed to upload object to S3", err).WithContext("key", key)
	}
	return nil
}

// GetString returns the content stored under key
func (s *S3ObjectStore) GetString(ctx context.Context, key string) (string, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", errors.NewNotFound("object not found in S3", err).WithContext("key", key)
		}
		return "", errors.NewStorage("failed to download object from S3", err).WithContext("key", key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", errors.NewStorage("failed to read object body", err).WithContext("key", key)
	}
	return string(data), nil
}

// List enumerates objects under prefix, honoring the delimiter
func (s *S3ObjectStore) List(ctx context.Context, prefix, delimiter string) ([]Entry, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}

	var entries []Entry
	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, cp := range page.CommonPrefixes {
				entries = append(entries, Entry{Key: aws.StringValue(cp.Prefix), IsPrefix: true})
			}
			for _, obj := range page.Contents {
				entries = append(entries, Entry{
					Key:  aws.StringValue(obj.Key),
					Size: aws.Int64Value(obj.Size),
				})
			}
			return true
		})
	if err != nil {
		return nil, errors.NewStorage("failed to list objects in S3", err).WithContext("prefix", prefix)
	}

	return entries, nil
}

// Open returns a streaming reader for the object stored under key
func (s *S3ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, errors.NewNotFound("object not found in S3", err).WithContext("key", key)
		}
		return nil, errors.NewStorage("failed to open object from S3", err).WithContext("key", key)
	}
	return result.Body, nil
}

// Bucket returns the S3 bucket name
func (s *S3ObjectStore) Bucket() string {
	return s.bucket
}

func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
