package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCSProvider uploads segments to a Google Cloud Storage bucket.
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSProvider builds a provider for bucket, using application-default
// credentials per the cloud.google.com/go/storage client's standard
// resolution.
func NewGCSProvider(ctx context.Context, bucket, prefix string) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCSProvider{client: client, bucket: bucket, prefix: prefix}, nil
}

// Upload implements capture.SegmentUploader.
func (p *GCSProvider) Upload(localPath, remoteKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", localPath, err)
	}
	defer f.Close()

	ctx := context.Background()
	objName := p.prefix + remoteKey
	w := p.client.Bucket(p.bucket).Object(objName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("storage: gcs write %s: %w", objName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: gcs close %s: %w", objName, err)
	}
	return nil
}

// Close releases the underlying GCS client.
func (p *GCSProvider) Close() error {
	return p.client.Close()
}
