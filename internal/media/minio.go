// Package media stores idea attachments in S3-compatible object storage and
// hands back the public URL the portal records against the idea.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config carries the object storage connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	client *minio.Client
	config Config
}

// NewStore connects to object storage and ensures the bucket exists.
func NewStore(ctx context.Context, config Config) (*Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Store{client: client, config: config}, nil
}

// Upload stores one attachment under a random key and returns the key and URL.
// The original filename only contributes its extension; user input never
// becomes part of the object key.
func (s *Store) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (key, url string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	key = "attachments/" + uuid.NewString() + ext

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.config.Bucket, key, r, size, opts); err != nil {
		return "", "", fmt.Errorf("upload attachment: %w", err)
	}

	return key, s.URL(key), nil
}

// URL returns the public URL for an object key.
func (s *Store) URL(key string) string {
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, key)
}

// Remove deletes an object. Used when an attachment insert fails after upload.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.config.Bucket, key, minio.RemoveObjectOptions{})
}
