package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AudioStorage mirrors generated audio objects into a MinIO/S3 bucket so a
// deployment can serve them from object storage instead of local disk. It is
// optional: when the MINIO_* variables are unset the mirror stays nil and the
// local audio directory is the only copy.
type AudioStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewAudioStorageFromEnv initialises AudioStorage using MINIO_* environment
// variables. Returns (nil, nil) when the mirror is not configured.
func NewAudioStorageFromEnv() (*AudioStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	prefix := strings.Trim(strings.TrimSpace(os.Getenv("MINIO_AUDIO_PREFIX")), "/")
	if prefix == "" {
		prefix = "audio"
	}

	return &AudioStorage{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads one audio object under the configured prefix.
func (s *AudioStorage) Put(ctx context.Context, filename string, data []byte, contentType string) error {
	if s == nil || s.client == nil {
		return errors.New("storage: audio mirror not configured")
	}

	trimmed := strings.Trim(strings.TrimSpace(filename), "/")
	if trimmed == "" {
		return errors.New("storage: object name cannot be empty")
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	objectName := path.Join(s.prefix, trimmed)

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=604800",
	})
	if err != nil {
		return fmt.Errorf("storage: upload audio object: %w", err)
	}
	return nil
}
