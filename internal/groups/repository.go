package groups

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

// Member is a membership row joined with the member's public profile.
type Member struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Repository handles group and group_members persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a groups repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// CreateWithAdmin inserts the group and the creator's admin membership in one transaction.
func (r *Repository) CreateWithAdmin(ctx context.Context, g *models.Group) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `INSERT INTO groups (name, description, created_by)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, q, g.Name, g.Description, g.CreatedBy).Scan(&g.ID, &g.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
			g.ID, g.CreatedBy, models.MemberRoleAdmin)
		return err
	})
	if err != nil {
		return apperrors.FromStorage(err, "group")
	}
	g.MemberCount = 1
	return nil
}

// GetByID returns a group with its member count.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	const q = `SELECT g.id, g.name, g.description, g.created_by, g.created_at,
			(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)
		FROM groups g WHERE g.id = $1`
	var g models.Group
	err := r.db.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.MemberCount)
	if err != nil {
		return nil, apperrors.FromStorage(err, "group")
	}
	return &g, nil
}

// ListForUser returns the groups userID belongs to, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	const q = `SELECT g.id, g.name, g.description, g.created_by, g.created_at,
			(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id)
		FROM groups g
		INNER JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC, g.id DESC`
	return r.listGroups(ctx, q, userID)
}

// ListAll returns up to limit groups, newest first.
func (r *Repository) ListAll(ctx context.Context, limit int) ([]models.Group, error) {
	const q = `SELECT g.id, g.name, g.description, g.created_by, g.created_at,
			(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id)
		FROM groups g
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $1`
	return r.listGroups(ctx, q, limit)
}

func (r *Repository) listGroups(ctx context.Context, q string, args ...any) ([]models.Group, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.MemberCount); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// MemberRole returns userID's role in the group, or "" when the user is not a member.
// A missing group is NotFound.
func (r *Repository) MemberRole(ctx context.Context, groupID, userID int64) (string, error) {
	const q = `SELECT m.role FROM groups g
		LEFT JOIN group_members m ON m.group_id = g.id AND m.user_id = $2
		WHERE g.id = $1`
	var role *string
	if err := r.db.QueryRow(ctx, q, groupID, userID).Scan(&role); err != nil {
		return "", apperrors.FromStorage(err, "group")
	}
	if role == nil {
		return "", nil
	}
	return *role, nil
}

// ListMembers returns the members of a group, admins first.
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]Member, error) {
	const q = `SELECT u.id, u.username, u.first_name, u.last_name, m.role, m.joined_at
		FROM group_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.role = 'admin' DESC, m.joined_at, u.id`
	rows, err := r.db.Query(ctx, q, groupID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.FirstName, &m.LastName, &m.Role, &m.JoinedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// ListEvents returns the events of a group, newest first.
func (r *Repository) ListEvents(ctx context.Context, groupID int64) ([]models.Event, error) {
	const q = `SELECT id, group_id, title, description, event_type, status, final_decision, created_by,
			scheduled_date, created_at
		FROM events WHERE group_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, q, groupID)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Title, &e.Description, &e.EventType, &e.Status,
			&e.FinalDecision, &e.CreatedBy, &e.ScheduledDate, &e.CreatedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// UserByUsername resolves a username to the member profile used in notifications.
func (r *Repository) UserByUsername(ctx context.Context, username string) (*Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `SELECT id, username, first_name, last_name FROM users WHERE username = $1`, username).
		Scan(&m.UserID, &m.Username, &m.FirstName, &m.LastName)
	if err != nil {
		return nil, apperrors.FromStorage(err, "user")
	}
	return &m, nil
}

// Username returns the username of userID.
func (r *Repository) Username(ctx context.Context, userID int64) (string, error) {
	var name string
	if err := r.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&name); err != nil {
		return "", apperrors.FromStorage(err, "user")
	}
	return name, nil
}

// AddMember inserts a membership. A second membership for the same pair is a Conflict.
func (r *Repository) AddMember(ctx context.Context, groupID, userID int64, role string) (time.Time, error) {
	var joinedAt time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3) RETURNING joined_at`,
		groupID, userID, role).Scan(&joinedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "group_members_group_user_key") {
			return time.Time{}, apperrors.Conflict("user is already a member of this group")
		}
		return time.Time{}, apperrors.FromStorage(err, "group")
	}
	return joinedAt, nil
}

// RemoveMember deletes a membership.
func (r *Repository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return apperrors.TransientStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("member")
	}
	return nil
}

// CountByRole returns the number of admins and the total number of members of a group.
func (r *Repository) CountByRole(ctx context.Context, groupID int64) (admins, total int, err error) {
	const q = `SELECT COUNT(*) FILTER (WHERE role = 'admin'), COUNT(*) FROM group_members WHERE group_id = $1`
	if err := r.db.QueryRow(ctx, q, groupID).Scan(&admins, &total); err != nil {
		return 0, 0, apperrors.TransientStorage(err)
	}
	return admins, total, nil
}

// Delete removes a group and its whole subtree in one transaction. The final_decision links are
// cleared first so option deletion never trips over them; foreign-key cascades remove memberships,
// events, options, polls and votes.
func (r *Repository) Delete(ctx context.Context, groupID int64) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE events SET final_decision = NULL WHERE group_id = $1`, groupID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("group")
		}
		return nil
	})
	return apperrors.FromStorage(err, "group")
}
