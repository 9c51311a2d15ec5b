package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobProvider uploads segments to an Azure Blob Storage container.
type AzureBlobProvider struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureBlobProvider builds a provider for container at accountURL,
// authenticating with a shared-key or connection-string client per the
// azblob SDK's standard constructors.
func NewAzureBlobProvider(connectionString, container, prefix string) (*AzureBlobProvider, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: azure client: %w", err)
	}
	return &AzureBlobProvider{client: client, container: container, prefix: prefix}, nil
}

// Upload implements capture.SegmentUploader.
func (p *AzureBlobProvider) Upload(localPath, remoteKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", localPath, err)
	}
	defer f.Close()

	blobName := p.prefix + remoteKey
	if _, err := p.client.UploadFile(context.Background(), p.container, blobName, f, nil); err != nil {
		return fmt.Errorf("storage: azure upload %s: %w", blobName, err)
	}
	return nil
}
