package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver(context.Background(), DriverMinIO, FactoryOptions{})
	assert.ErrorIs(t, err, ErrBucketRequired)

	_, err = NewFromDriver(context.Background(), "ftp", FactoryOptions{Bucket: "exports"})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	stg, err := NewFromDriver(context.Background(), " MinIO ", FactoryOptions{
		Bucket: "exports",
		MinIO:  MinIOOptions{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinIOAdapter{}, stg)
	assert.NoError(t, stg.Close())
}

func TestMinIO_PresignGetIsOffline(t *testing.T) {
	stg, err := NewMinIO("exports", MinIOOptions{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123", Region: "us-east-1"})
	require.NoError(t, err)

	u, err := stg.PresignGet(context.Background(), "exports/entries.jsonl", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, u, "/exports/exports/entries.jsonl")
	assert.Contains(t, u, "X-Amz-Signature=")
}
