package events

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

const eventColumns = `id, group_id, title, description, event_type, status, final_decision, created_by,
	scheduled_date, created_at`

// Repository handles events and event_options persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an events repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.GroupID, &e.Title, &e.Description, &e.EventType, &e.Status,
		&e.FinalDecision, &e.CreatedBy, &e.ScheduledDate, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an event. A missing group is NotFound.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (group_id, title, description, event_type, status, created_by, scheduled_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, e.GroupID, e.Title, e.Description, e.EventType, e.Status, e.CreatedBy, e.ScheduledDate).
		Scan(&e.ID, &e.CreatedAt)
	if database.IsForeignKeyViolation(err, "events_group_id_fkey") {
		return apperrors.NotFound("group")
	}
	return apperrors.FromStorage(err, "event")
}

// GetByID returns an event.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, apperrors.FromStorage(err, "event")
	}
	return e, nil
}

// ListByGroup returns the events of a group, newest first.
func (r *Repository) ListByGroup(ctx context.Context, groupID int64) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE group_id = $1 ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// AddOption inserts an option; metadata is stored as given.
func (r *Repository) AddOption(ctx context.Context, o *models.EventOption) error {
	const q = `INSERT INTO event_options (event_id, option_type, title, description, external_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, o.EventID, o.OptionType, o.Title, o.Description, o.ExternalID, []byte(o.Metadata)).
		Scan(&o.ID, &o.CreatedAt)
	if database.IsForeignKeyViolation(err, "event_options_event_id_fkey") {
		return apperrors.NotFound("event")
	}
	return apperrors.FromStorage(err, "option")
}

// ListOptions returns the options of an event in creation order.
func (r *Repository) ListOptions(ctx context.Context, eventID int64) ([]models.EventOption, error) {
	const q = `SELECT id, event_id, option_type, title, description, external_id, metadata, created_at
		FROM event_options WHERE event_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.EventOption{}
	for rows.Next() {
		var o models.EventOption
		var meta []byte
		if err := rows.Scan(&o.ID, &o.EventID, &o.OptionType, &o.Title, &o.Description, &o.ExternalID, &meta, &o.CreatedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		o.Metadata = meta
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// GetOption returns one option.
func (r *Repository) GetOption(ctx context.Context, id int64) (*models.EventOption, error) {
	const q = `SELECT id, event_id, option_type, title, description, external_id, metadata, created_at
		FROM event_options WHERE id = $1`
	var o models.EventOption
	var meta []byte
	err := r.db.QueryRow(ctx, q, id).
		Scan(&o.ID, &o.EventID, &o.OptionType, &o.Title, &o.Description, &o.ExternalID, &meta, &o.CreatedAt)
	if err != nil {
		return nil, apperrors.FromStorage(err, "option")
	}
	o.Metadata = meta
	return &o, nil
}

// ListPolls returns the polls opened on an event.
func (r *Repository) ListPolls(ctx context.Context, eventID int64) ([]models.Poll, error) {
	const q = `SELECT id, event_id, question, poll_type, created_by, created_at
		FROM polls WHERE event_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.Poll{}
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.EventID, &p.Question, &p.PollType, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// SetDecision records optionID as the final decision and marks the event decided. The option must
// belong to the event; otherwise nothing changes and the option is NotFound.
func (r *Repository) SetDecision(ctx context.Context, eventID, optionID int64) (*models.Event, error) {
	const q = `UPDATE events SET final_decision = $2, status = $3
		WHERE id = $1 AND EXISTS (SELECT 1 FROM event_options o WHERE o.id = $2 AND o.event_id = $1)
		RETURNING ` + eventColumns
	e, err := scanEvent(r.db.QueryRow(ctx, q, eventID, optionID, models.EventStatusDecided))
	if err != nil {
		return nil, apperrors.FromStorage(err, "option")
	}
	return e, nil
}
