package emaillogs

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/models"
)

func TestStatsComputesSuccessRate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(models.EmailLogStatusSent, models.EmailLogStatusFailed, now.Add(-24*time.Hour)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "sent", "failed", "recent"}).AddRow(4, 3, 1, 2))

	s, err := NewRepository(mock).Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Sent: 3, Failed: 1, SuccessRate: 75, Recent24h: 2}, *s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(models.EmailLogStatusSent, models.EmailLogStatusFailed, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"total", "sent", "failed", "recent"}).AddRow(0, 0, 0, 0))

	s, err := NewRepository(mock).Stats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, s.SuccessRate)
}

func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	uid := int64(4)
	el := &models.EmailLog{
		RecipientEmail: "a@example.com",
		Subject:        "Welcome",
		EmailType:      models.EmailTypeWelcome,
		Status:         models.EmailLogStatusSent,
		UserID:         &uid,
		SentAt:         &now,
	}
	mock.ExpectQuery("INSERT INTO email_logs").
		WithArgs("a@example.com", "Welcome", models.EmailTypeWelcome, models.EmailLogStatusSent, "", &uid, &now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(12), now))

	require.NoError(t, NewRepository(mock).Create(context.Background(), el))
	assert.Equal(t, int64(12), el.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
