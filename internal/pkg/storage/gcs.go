package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSAdapter implements Storage using Google Cloud Storage.
type GCSAdapter struct {
	bucket *gcs.BucketHandle
	client *gcs.Client
	signer *gcsSigner
}

// GCSOptions configures the adapter. Client is built by the caller so it can
// carry credentials; signed URLs need GoogleAccessID and PrivateKey.
type GCSOptions struct {
	Client         *gcs.Client
	GoogleAccessID string
	PrivateKey     []byte
}

type gcsSigner struct {
	accessID   string
	privateKey []byte
}

// NewGCS constructs a GCS adapter, using application default credentials
// when no client is supplied.
func NewGCS(ctx context.Context, bucket string, opts GCSOptions) (*GCSAdapter, error) {
	client := opts.Client
	if client == nil {
		created, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		client = created
	}

	var signer *gcsSigner
	if opts.GoogleAccessID != "" && len(opts.PrivateKey) > 0 {
		signer = &gcsSigner{accessID: opts.GoogleAccessID, privateKey: opts.PrivateKey}
	}

	return &GCSAdapter{bucket: client.Bucket(bucket), client: client, signer: signer}, nil
}

func (g *GCSAdapter) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata

	if _, err := io.Copy(w, r); err != nil {
		return ObjectInfo{}, errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}

	if attrs := w.Attrs(); attrs != nil {
		return gcsAttrsToInfo(attrs), nil
	}
	return ObjectInfo{Key: key, Size: opts.Size, ContentType: opts.ContentType, UpdatedAt: time.Now()}, nil
}

func (g *GCSAdapter) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	objects := make([]ObjectInfo, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, gcsAttrsToInfo(attrs))
		if limit > 0 && len(objects) >= limit {
			break
		}
	}

	return objects, nil
}

func (g *GCSAdapter) Delete(ctx context.Context, key string) error {
	return g.bucket.Object(key).Delete(ctx)
}

func (g *GCSAdapter) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if g.signer == nil {
		return "", ErrMissingSigner
	}

	return g.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Method:         http.MethodGet,
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.signer.accessID,
		PrivateKey:     g.signer.privateKey,
	})
}

func (g *GCSAdapter) Close() error {
	return g.client.Close()
}

func gcsAttrsToInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	return ObjectInfo{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}
