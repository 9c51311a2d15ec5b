// Package storage provides capture.SegmentUploader implementations that
// ship closed video segments and PNG previews to a durable backend,
// generalizing the teacher's internal/backup/providers pattern (one real
// implementation per cloud target behind a common interface) from backup
// archives to capture segments.
package storage

import (
	"fmt"
	"io"
	"os"
)

// LocalProvider copies segments into a second directory — the degenerate
// "upload" target used when no cloud backend is configured, grounded on
// the teacher's internal/backup/providers/local.go (plain file copy, no
// network round trip).
type LocalProvider struct {
	DestDir string
}

// NewLocalProvider builds a provider that copies files into destDir,
// creating it if necessary.
func NewLocalProvider(destDir string) (*LocalProvider, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", destDir, err)
	}
	return &LocalProvider{DestDir: destDir}, nil
}

// Upload implements capture.SegmentUploader.
func (p *LocalProvider) Upload(localPath, remoteKey string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", localPath, err)
	}
	defer src.Close()

	dstPath := p.DestDir + string(os.PathSeparator) + remoteKey
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("storage: copy %s -> %s: %w", localPath, dstPath, err)
	}
	return nil
}
