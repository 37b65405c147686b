package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/planmyoutings/backend/pkg/storage"
)

// Snapshotter dumps the database. *Repository implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context, now time.Time) (*Snapshot, error)
}

// Uploader stores a backup object and returns where it went. *storage.S3 implements it.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Backup takes a snapshot and uploads it, or writes it under dir when up is nil.
// It returns the object URL or the file path.
func Backup(ctx context.Context, src Snapshotter, up Uploader, dir string, now time.Time) (string, error) {
	snap, err := src.Snapshot(ctx, now)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if up != nil {
		return up.Upload(ctx, storage.BackupKey(now), "application/json", bytes.NewReader(data))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, storage.BackupFilename(now))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}
