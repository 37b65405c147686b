package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackupKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "outings-20240309-130507.json", BackupFilename(at))
	assert.Equal(t, "backups/outings-20240309-130507.json", BackupKey(at))
}

func TestObjectURL(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "eu-west-1", Bucket: "outings-backups"}}
	assert.Equal(t, "https://outings-backups.s3.eu-west-1.amazonaws.com/backups/a.json", s.ObjectURL("backups/a.json"))
}
