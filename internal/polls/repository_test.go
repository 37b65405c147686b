package polls

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func expectCheck(mock pgxmock.PgxPoolIface, pollEvent int64, optionEvent *int64) {
	mock.ExpectQuery("SELECT p.event_id, o.event_id").
		WithArgs(int64(1), int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"event_id", "event_id"}).AddRow(pollEvent, optionEvent))
}

func TestCastVoteCommitsAndCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectCheck(mock, 5, int64Ptr(5))
	mock.ExpectQuery("INSERT INTO votes").
		WithArgs(int64(1), int64(10), int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(99), time.Now()))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(1), int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	v := &models.Vote{PollID: 1, OptionID: 10, UserID: 7}
	count, err := NewRepository(mock).CastVote(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(99), v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVoteConflictIsDuplicateVote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectCheck(mock, 5, int64Ptr(5))
	mock.ExpectQuery("INSERT INTO votes").
		WithArgs(int64(1), int64(10), int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectRollback()

	_, err = NewRepository(mock).CastVote(context.Background(), &models.Vote{PollID: 1, OptionID: 10, UserID: 7})
	assert.True(t, apperrors.Is(err, apperrors.KindDuplicateVote))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVoteUniqueViolationIsDuplicateVote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectCheck(mock, 5, int64Ptr(5))
	mock.ExpectQuery("INSERT INTO votes").
		WithArgs(int64(1), int64(10), int64(7), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: voteUniqueConstraint})
	mock.ExpectRollback()

	_, err = NewRepository(mock).CastVote(context.Background(), &models.Vote{PollID: 1, OptionID: 10, UserID: 7})
	assert.True(t, apperrors.Is(err, apperrors.KindDuplicateVote))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVoteMissingPoll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT p.event_id, o.event_id").
		WithArgs(int64(1), int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"event_id", "event_id"}))
	mock.ExpectRollback()

	_, err = NewRepository(mock).CastVote(context.Background(), &models.Vote{PollID: 1, OptionID: 10, UserID: 7})
	require.Error(t, err)
	assert.Equal(t, "poll not found", err.(*apperrors.Error).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVoteOptionFromAnotherEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectCheck(mock, 5, int64Ptr(6))
	mock.ExpectRollback()

	_, err = NewRepository(mock).CastVote(context.Background(), &models.Vote{PollID: 1, OptionID: 10, UserID: 7})
	require.Error(t, err)
	assert.Equal(t, "option not found", err.(*apperrors.Error).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTallyIncludesZeroCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT o.id, o.title, COUNT").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "count"}).
			AddRow(int64(10), "CafeA", 1).
			AddRow(int64(11), "CafeB", 0))

	tally, err := NewRepository(mock).Tally(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.OptionTally{
		{OptionID: 10, Title: "CafeA", Votes: 1},
		{OptionID: 11, Title: "CafeB", Votes: 0},
	}, tally)
	assert.NoError(t, mock.ExpectationsWereMet())
}
