package storage

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOAdapter implements Storage using MinIO.
type MinIOAdapter struct {
	bucket string
	client *minio.Client
}

// MinIOOptions configures MinIO client initialization.
type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

// NewMinIO constructs a MinIO adapter.
func NewMinIO(bucket string, opts MinIOOptions) (*MinIOAdapter, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOAdapter{bucket: bucket, client: client}, nil
}

func (m *MinIOAdapter) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	size := opts.Size
	if size <= 0 {
		size = -1
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opts.ContentType,
		UpdatedAt:   info.LastModified,
	}, nil
}

func (m *MinIOAdapter) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make([]ObjectInfo, 0)
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, ObjectInfo{
			Key:       object.Key,
			Size:      object.Size,
			ETag:      object.ETag,
			UpdatedAt: object.LastModified,
		})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}

	return objects, nil
}

func (m *MinIOAdapter) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinIOAdapter) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinIOAdapter) Close() error {
	return nil
}
