package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Backblaze/blazer/b2"
)

// BackblazeProvider uploads segments to a Backblaze B2 bucket.
type BackblazeProvider struct {
	bucket *b2.Bucket
	prefix string
}

// NewBackblazeProvider authenticates against B2 and resolves bucketName.
func NewBackblazeProvider(ctx context.Context, accountID, applicationKey, bucketName, prefix string) (*BackblazeProvider, error) {
	client, err := b2.NewClient(ctx, accountID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("storage: b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: b2 bucket %s: %w", bucketName, err)
	}
	return &BackblazeProvider{bucket: bucket, prefix: prefix}, nil
}

// Upload implements capture.SegmentUploader.
func (p *BackblazeProvider) Upload(localPath, remoteKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", localPath, err)
	}
	defer f.Close()

	objName := p.prefix + remoteKey
	w := p.bucket.Object(objName).NewWriter(context.Background())
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("storage: b2 write %s: %w", objName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: b2 close %s: %w", objName, err)
	}
	return nil
}
