package admin

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSnapshot struct{ err error }

func (f fixedSnapshot) Snapshot(_ context.Context, now time.Time) (*Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Snapshot{TakenAt: now, Tables: map[string]json.RawMessage{"users": json.RawMessage(`[{"id":1}]`)}}, nil
}

type memUploader struct {
	key, contentType string
	body             []byte
}

func (m *memUploader) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	m.key, m.contentType = key, contentType
	var err error
	m.body, err = io.ReadAll(body)
	return "s3://bucket/" + key, err
}

var backupTime = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func TestBackupUploads(t *testing.T) {
	up := &memUploader{}
	loc, err := Backup(context.Background(), fixedSnapshot{}, up, "", backupTime)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/backups/outings-20240601-093000.json", loc)
	assert.Equal(t, "application/json", up.contentType)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(up.body, &snap))
	assert.JSONEq(t, `[{"id":1}]`, string(snap.Tables["users"]))
}

func TestBackupWritesLocalFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	loc, err := Backup(context.Background(), fixedSnapshot{}, nil, dir, backupTime)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "outings-20240601-093000.json"), loc)
	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"taken_at": "2024-06-01T09:30:00Z"`)
}

func TestBackupSnapshotFailure(t *testing.T) {
	_, err := Backup(context.Background(), fixedSnapshot{err: assert.AnError}, nil, t.TempDir(), backupTime)
	assert.ErrorIs(t, err, assert.AnError)
}
