package polls

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

// voteUniqueConstraint backs the one-ballot-per-user rule at the storage layer.
const voteUniqueConstraint = "votes_poll_user_key"

// Repository handles poll and vote persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a polls repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new poll. A missing event is NotFound.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	const query = `INSERT INTO polls (event_id, question, poll_type, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, p.EventID, p.Question, p.PollType, p.CreatedBy).Scan(&p.ID, &p.CreatedAt)
	if database.IsForeignKeyViolation(err, "polls_event_id_fkey") {
		return apperrors.NotFound("event")
	}
	return apperrors.FromStorage(err, "poll")
}

// GetByID returns a poll by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Poll, error) {
	const query = `SELECT id, event_id, question, poll_type, created_by, created_at FROM polls WHERE id = $1`
	var p models.Poll
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.EventID, &p.Question, &p.PollType, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, apperrors.FromStorage(err, "poll")
	}
	return &p, nil
}

// CastVote records v and returns the number of votes its option now holds in the poll. The
// existence checks, the insert and the count run in one transaction; the unique constraint on
// (poll_id, user_id) decides races between concurrent ballots from the same user.
func (r *Repository) CastVote(ctx context.Context, v *models.Vote) (int, error) {
	var count int
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var pollEvent int64
		var optionEvent *int64
		const check = `SELECT p.event_id, o.event_id
			FROM polls p
			LEFT JOIN event_options o ON o.id = $2
			WHERE p.id = $1`
		if err := tx.QueryRow(ctx, check, v.PollID, v.OptionID).Scan(&pollEvent, &optionEvent); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("poll")
			}
			return err
		}
		if optionEvent == nil || *optionEvent != pollEvent {
			return apperrors.NotFound("option")
		}

		const insert = `INSERT INTO votes (poll_id, option_id, user_id, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (poll_id, user_id) DO NOTHING
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert, v.PollID, v.OptionID, v.UserID, v.Value).Scan(&v.ID, &v.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) || database.IsUniqueViolation(err, voteUniqueConstraint) {
				return apperrors.DuplicateVote()
			}
			return err
		}

		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE poll_id = $1 AND option_id = $2`, v.PollID, v.OptionID).
			Scan(&count)
	})
	if err != nil {
		return 0, apperrors.FromStorage(err, "poll")
	}
	return count, nil
}

// Tally returns every option of the poll's event with its vote count in this poll, zero included.
func (r *Repository) Tally(ctx context.Context, pollID int64) ([]models.OptionTally, error) {
	const query = `SELECT o.id, o.title, COUNT(v.id)
		FROM polls p
		INNER JOIN event_options o ON o.event_id = p.event_id
		LEFT JOIN votes v ON v.option_id = o.id AND v.poll_id = p.id
		WHERE p.id = $1
		GROUP BY o.id, o.title
		ORDER BY o.id`
	rows, err := r.db.Query(ctx, query, pollID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.OptionTally{}
	for rows.Next() {
		var t models.OptionTally
		if err := rows.Scan(&t.OptionID, &t.Title, &t.Votes); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// UserVote returns the ballot userID cast in the poll, or nil when there is none.
func (r *Repository) UserVote(ctx context.Context, pollID, userID int64) (*models.Vote, error) {
	const query = `SELECT id, poll_id, option_id, user_id, value, created_at
		FROM votes WHERE poll_id = $1 AND user_id = $2`
	var v models.Vote
	err := r.db.QueryRow(ctx, query, pollID, userID).
		Scan(&v.ID, &v.PollID, &v.OptionID, &v.UserID, &v.Value, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return &v, nil
}
