package admin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

// Tables lists every application table in dependency order (parents first).
var Tables = []string{
	"users",
	"enquiries",
	"groups",
	"group_members",
	"events",
	"event_options",
	"polls",
	"votes",
	"email_logs",
}

// Counts is a set of per-entity row counts.
type Counts struct {
	Users     int `json:"users"`
	Groups    int `json:"groups"`
	Events    int `json:"events"`
	Enquiries int `json:"enquiries"`
}

// Stats is the dashboard summary: all-time totals and rows created since a cutoff.
type Stats struct {
	Totals Counts `json:"totals"`
	Recent Counts `json:"recent"`
}

// RecentUser is a user row for the admin dashboard.
type RecentUser struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	GroupsCount int       `json:"groups_count"`
	EventsCount int       `json:"events_count"`
}

// ActiveUser ranks users by the groups and events they created.
type ActiveUser struct {
	Username      string `json:"username"`
	Name          string `json:"name"`
	GroupsCreated int    `json:"groups_created"`
	EventsCreated int    `json:"events_created"`
}

// Total is the sum of created groups and events.
func (u ActiveUser) Total() int { return u.GroupsCreated + u.EventsCreated }

// GroupActivity is a recently created group.
type GroupActivity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Creator   string    `json:"creator"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// EventActivity is a recently created event.
type EventActivity struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Creator   string    `json:"creator"`
	Group     string    `json:"group"`
	CreatedAt time.Time `json:"created_at"`
}

// EnquiryActivity is a recent contact-form submission. Message is cut to 100 characters.
type EnquiryActivity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is the newest rows across the system.
type Activity struct {
	RecentUsers     []RecentUser      `json:"recent_users"`
	RecentGroups    []GroupActivity   `json:"recent_groups"`
	RecentEvents    []EventActivity   `json:"recent_events"`
	RecentEnquiries []EnquiryActivity `json:"recent_enquiries"`
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// Info describes the connected database.
type Info struct {
	Database  string       `json:"database"`
	Version   string       `json:"version"`
	SizeBytes int64        `json:"size_bytes"`
	Tables    []TableCount `json:"tables"`
}

// Snapshot is a JSON dump of every table, keyed by table name.
type Snapshot struct {
	TakenAt time.Time                  `json:"taken_at"`
	Tables  map[string]json.RawMessage `json:"tables"`
}

// Cleared reports how many rows each table lost, in deletion order.
type Cleared []TableCount

// Repository runs the cross-entity admin queries.
type Repository struct {
	db database.DB
}

// NewRepository creates an admin repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Stats counts users, groups, events and enquiries, in total and created at or after since.
func (r *Repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	const q = `SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM groups),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM enquiries),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COUNT(*) FROM groups WHERE created_at >= $1),
			(SELECT COUNT(*) FROM events WHERE created_at >= $1),
			(SELECT COUNT(*) FROM enquiries WHERE created_at >= $1)`
	var s Stats
	err := r.db.QueryRow(ctx, q, since).Scan(
		&s.Totals.Users, &s.Totals.Groups, &s.Totals.Events, &s.Totals.Enquiries,
		&s.Recent.Users, &s.Recent.Groups, &s.Recent.Events, &s.Recent.Enquiries,
	)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return &s, nil
}

// RecentUsers returns the newest users with their membership and event counts.
func (r *Repository) RecentUsers(ctx context.Context, limit int) ([]RecentUser, error) {
	const q = `SELECT u.id, u.username, u.first_name || ' ' || u.last_name, u.email, u.created_at,
			(SELECT COUNT(*) FROM group_members gm WHERE gm.user_id = u.id),
			(SELECT COUNT(*) FROM events e WHERE e.created_by = u.id)
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return collect(rows, func(row pgx.Rows) (RecentUser, error) {
		var u RecentUser
		err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.CreatedAt, &u.GroupsCount, &u.EventsCount)
		return u, err
	})
}

// TopUsers ranks users who created at least one group or event.
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]ActiveUser, error) {
	const q = `SELECT u.username, u.first_name || ' ' || u.last_name, g.n, e.n
		FROM users u
		CROSS JOIN LATERAL (SELECT COUNT(*) AS n FROM groups WHERE created_by = u.id) g
		CROSS JOIN LATERAL (SELECT COUNT(*) AS n FROM events WHERE created_by = u.id) e
		WHERE g.n + e.n > 0
		ORDER BY g.n + e.n DESC, u.username
		LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return collect(rows, func(row pgx.Rows) (ActiveUser, error) {
		var u ActiveUser
		err := row.Scan(&u.Username, &u.Name, &u.GroupsCreated, &u.EventsCreated)
		return u, err
	})
}

// Activity returns the newest users, groups, events and enquiries, limit of each.
func (r *Repository) Activity(ctx context.Context, limit int) (*Activity, error) {
	users, err := r.RecentUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	act := &Activity{RecentUsers: users}

	rows, err := r.db.Query(ctx, `SELECT g.id, g.name, COALESCE(u.username, 'unknown'),
			(SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id), g.created_at
		FROM groups g
		LEFT JOIN users u ON u.id = g.created_by
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	if act.RecentGroups, err = collect(rows, func(row pgx.Rows) (GroupActivity, error) {
		var g GroupActivity
		err := row.Scan(&g.ID, &g.Name, &g.Creator, &g.Members, &g.CreatedAt)
		return g, err
	}); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT e.id, e.title, e.event_type, COALESCE(u.username, 'unknown'),
			COALESCE(g.name, 'unknown'), e.created_at
		FROM events e
		LEFT JOIN users u ON u.id = e.created_by
		LEFT JOIN groups g ON g.id = e.group_id
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	if act.RecentEvents, err = collect(rows, func(row pgx.Rows) (EventActivity, error) {
		var e EventActivity
		err := row.Scan(&e.ID, &e.Title, &e.Type, &e.Creator, &e.Group, &e.CreatedAt)
		return e, err
	}); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT id, first_name || ' ' || last_name, email, message, created_at
		FROM enquiries
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	if act.RecentEnquiries, err = collect(rows, func(row pgx.Rows) (EnquiryActivity, error) {
		var e EnquiryActivity
		err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Message, &e.CreatedAt)
		e.Message = truncate(e.Message, 100)
		return e, err
	}); err != nil {
		return nil, err
	}
	return act, nil
}

// clearOrder deletes children before parents so each count reflects the rows that table held.
var clearOrder = []string{
	"email_logs",
	"votes",
	"polls",
	"event_options",
	"group_members",
	"events",
	"groups",
	"enquiries",
}

// ClearDemoData deletes everything except the user named keepUsername, in one transaction.
func (r *Repository) ClearDemoData(ctx context.Context, keepUsername string) (Cleared, error) {
	var cleared Cleared
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, table := range clearOrder {
			tag, err := tx.Exec(ctx, `DELETE FROM `+table)
			if err != nil {
				return err
			}
			cleared = append(cleared, TableCount{Table: table, Rows: tag.RowsAffected()})
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE username <> $1`, keepUsername)
		if err != nil {
			return err
		}
		cleared = append(cleared, TableCount{Table: "users", Rows: tag.RowsAffected()})
		return nil
	})
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return cleared, nil
}

// CleanEnquiries deletes processed enquiries created before cutoff. Pending ones are kept.
func (r *Repository) CleanEnquiries(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM enquiries WHERE status = $1 AND created_at < $2`,
		models.EnquiryStatusProcessed, cutoff)
	if err != nil {
		return 0, apperrors.TransientStorage(err)
	}
	return tag.RowsAffected(), nil
}

// Info reports the database name, server version, size on disk and per-table row counts.
func (r *Repository) Info(ctx context.Context) (*Info, error) {
	var info Info
	err := r.db.QueryRow(ctx, `SELECT current_database(), current_setting('server_version'), pg_database_size(current_database())`).
		Scan(&info.Database, &info.Version, &info.SizeBytes)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	for _, table := range Tables {
		tc := TableCount{Table: table}
		if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&tc.Rows); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		info.Tables = append(info.Tables, tc)
	}
	return &info, nil
}

// Snapshot dumps every table as a JSON array of rows, ordered by id, inside one read-only
// repeatable-read transaction so the tables agree with each other.
func (r *Repository) Snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: now.UTC(), Tables: make(map[string]json.RawMessage, len(Tables))}
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SET TRANSACTION ISOLATION LEVEL REPEATABLE READ READ ONLY`); err != nil {
			return err
		}
		for _, table := range Tables {
			var raw []byte
			q := `SELECT COALESCE(json_agg(t ORDER BY t.id), '[]'::json) FROM ` + table + ` t`
			if err := tx.QueryRow(ctx, q).Scan(&raw); err != nil {
				return err
			}
			snap.Tables[table] = raw
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return snap, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	list := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
