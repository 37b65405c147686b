package emaillogs

import (
	"context"
	"time"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

// Stats summarises delivery outcomes.
type Stats struct {
	Total       int     `json:"total"`
	Sent        int     `json:"sent"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Recent24h   int     `json:"recent_24h"`
}

// Repository handles email_logs persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create records one delivery outcome.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (recipient_email, subject, email_type, status, error_message, user_id, sent_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, el.RecipientEmail, el.Subject, el.EmailType, el.Status, el.ErrorMessage, el.UserID, el.SentAt).
		Scan(&el.ID, &el.CreatedAt)
	return apperrors.FromStorage(err, "email log")
}

// Recent returns the newest logs, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	const q = `SELECT id, recipient_email, subject, email_type, status, error_message, user_id, sent_at, created_at
		FROM email_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []*models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		var errMsg *string
		if err := rows.Scan(&el.ID, &el.RecipientEmail, &el.Subject, &el.EmailType, &el.Status, &errMsg, &el.UserID, &el.SentAt, &el.CreatedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// Stats counts logs by status; Recent24h counts logs created since now-24h.
func (r *Repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	const q = `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE created_at >= $3)
		FROM email_logs`
	var s Stats
	err := r.db.QueryRow(ctx, q, models.EmailLogStatusSent, models.EmailLogStatusFailed, now.Add(-24*time.Hour)).
		Scan(&s.Total, &s.Sent, &s.Failed, &s.Recent24h)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Sent) / float64(s.Total) * 100
	}
	return &s, nil
}
