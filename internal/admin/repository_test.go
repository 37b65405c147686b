package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
)

func TestStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"u", "g", "e", "q", "ru", "rg", "re", "rq"}).
			AddRow(12, 4, 9, 15, 2, 1, 3, 2))

	s, err := NewRepository(mock).Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, Counts{Users: 12, Groups: 4, Events: 9, Enquiries: 15}, s.Totals)
	assert.Equal(t, Counts{Users: 2, Groups: 1, Events: 3, Enquiries: 2}, s.Recent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearDemoDataKeepsSuperAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	for i, table := range clearOrder {
		mock.ExpectExec("DELETE FROM " + table).
			WillReturnResult(pgxmock.NewResult("DELETE", int64(i+1)))
	}
	mock.ExpectExec("DELETE FROM users WHERE username <>").
		WithArgs("superadmin").
		WillReturnResult(pgxmock.NewResult("DELETE", 6))
	mock.ExpectCommit()

	cleared, err := NewRepository(mock).ClearDemoData(context.Background(), "superadmin")
	require.NoError(t, err)
	require.Len(t, cleared, len(clearOrder)+1)
	assert.Equal(t, TableCount{Table: "email_logs", Rows: 1}, cleared[0])
	assert.Equal(t, TableCount{Table: "users", Rows: 6}, cleared[len(cleared)-1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearDemoDataRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM email_logs").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM votes").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	cleared, err := NewRepository(mock).ClearDemoData(context.Background(), "superadmin")
	assert.Nil(t, cleared)
	assert.True(t, apperrors.Is(err, apperrors.KindTransientStorage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanEnquiriesOnlyProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM enquiries").
		WithArgs(models.EnquiryStatusProcessed, cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := NewRepository(mock).CleanEnquiries(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotReadsEveryTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET TRANSACTION ISOLATION LEVEL REPEATABLE READ READ ONLY").
		WillReturnResult(pgxmock.NewResult("SET", 0))
	for _, table := range Tables {
		body := []byte(`[]`)
		if table == "users" {
			body = []byte(`[{"id":1,"username":"superadmin"}]`)
		}
		mock.ExpectQuery("FROM " + table + " t").
			WillReturnRows(pgxmock.NewRows([]string{"json_agg"}).AddRow(body))
	}
	mock.ExpectCommit()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snap, err := NewRepository(mock).Snapshot(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, now, snap.TakenAt)
	assert.Len(t, snap.Tables, len(Tables))
	assert.JSONEq(t, `[{"id":1,"username":"superadmin"}]`, string(snap.Tables["users"]))
	assert.JSONEq(t, `[]`, string(snap.Tables["votes"]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "été...", truncate("étéhiver", 3))
}
