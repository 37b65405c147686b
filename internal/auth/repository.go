package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/database"
)

const (
	// MaxUsernameLength is the width of users.username.
	MaxUsernameLength = 80
	// maxNamePart caps each name part so "first.last.year" plus a collision suffix fits the column.
	maxNamePart = 30
)

const userColumns = `id, username, email, password_hash, first_name, last_name, year_of_birth, created_at`

// Repository handles user and enquiry persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an auth repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.YearOfBirth, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, apperrors.FromStorage(err, "user")
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	return u, apperrors.FromStorage(err, "user")
}

// EmailExists reports whether a user already uses email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, apperrors.FromStorage(err, "user")
}

// Create inserts a new user and fills ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (username, email, password_hash, first_name, last_name, year_of_birth)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, u.Username, u.Email, u.Password, u.FirstName, u.LastName, u.YearOfBirth).
		Scan(&u.ID, &u.CreatedAt)
	if database.IsUniqueViolation(err, "users_email_lower_key") {
		return apperrors.Conflict("duplicate_email")
	}
	if database.IsUniqueViolation(err, "") {
		return apperrors.Conflict("username or email already registered")
	}
	return apperrors.FromStorage(err, "user")
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return apperrors.TransientStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

// List returns users, newest first. limit <= 0 means all.
func (r *Repository) List(ctx context.Context, limit int) ([]models.UserPublic, error) {
	q := `SELECT id, username, email, first_name, last_name, year_of_birth, created_at FROM users ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	return r.listPublic(ctx, q, args...)
}

// Search matches username, email, first or last name case-insensitively.
func (r *Repository) Search(ctx context.Context, term string) ([]models.UserPublic, error) {
	const q = `SELECT id, username, email, first_name, last_name, year_of_birth, created_at FROM users
		WHERE username ILIKE $1 OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY username`
	return r.listPublic(ctx, q, "%"+term+"%")
}

func (r *Repository) listPublic(ctx context.Context, q string, args ...any) ([]models.UserPublic, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.YearOfBirth, &u.CreatedAt); err != nil {
			return nil, apperrors.TransientStorage(err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.TransientStorage(err)
	}
	return list, nil
}

// Delete removes a user. Memberships, votes and the groups they created go with them.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperrors.TransientStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

// RegisterFromEnquiry stores the enquiry, derives a free username, creates the user and links the
// enquiry to it, all in one transaction.
func (r *Repository) RegisterFromEnquiry(ctx context.Context, e *models.Enquiry, passwordHash string) (*models.User, error) {
	var user *models.User
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		repo := r.WithTx(tx)
		if err := repo.createEnquiry(ctx, e); err != nil {
			return err
		}
		username, err := repo.freeUsername(ctx, BaseUsername(e.FirstName, e.LastName, e.YearOfBirth))
		if err != nil {
			return err
		}
		user = &models.User{
			Username:    username,
			Email:       e.Email,
			Password:    passwordHash,
			FirstName:   e.FirstName,
			LastName:    e.LastName,
			YearOfBirth: e.YearOfBirth,
		}
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE enquiries SET status = $2, user_id = $3 WHERE id = $1`,
			e.ID, models.EnquiryStatusProcessed, user.ID)
		if err != nil {
			return apperrors.TransientStorage(err)
		}
		e.Status = models.EnquiryStatusProcessed
		e.UserID = &user.ID
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStorage(err, "enquiry")
	}
	return user, nil
}

func (r *Repository) createEnquiry(ctx context.Context, e *models.Enquiry) error {
	const q = `INSERT INTO enquiries (first_name, last_name, email, year_of_birth, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	e.Status = models.EnquiryStatusPending
	err := r.db.QueryRow(ctx, q, e.FirstName, e.LastName, e.Email, e.YearOfBirth, e.Message, e.Status).
		Scan(&e.ID, &e.CreatedAt)
	return apperrors.FromStorage(err, "enquiry")
}

func (r *Repository) freeUsername(ctx context.Context, base string) (string, error) {
	rows, err := r.db.Query(ctx, `SELECT username FROM users WHERE username = $1 OR username LIKE $2`, base, base+"%")
	if err != nil {
		return "", apperrors.TransientStorage(err)
	}
	defer rows.Close()
	taken := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", apperrors.TransientStorage(err)
		}
		taken[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", apperrors.TransientStorage(err)
	}
	return NextUsername(base, taken), nil
}

// BaseUsername builds "first.last.year" in lower case with whitespace and dots removed from the
// name parts. Each part keeps at most maxNamePart characters.
func BaseUsername(first, last string, year int) string {
	clean := func(s string) string {
		r := []rune(strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) || r == '.' {
				return -1
			}
			return unicode.ToLower(r)
		}, s))
		if len(r) > maxNamePart {
			r = r[:maxNamePart]
		}
		return string(r)
	}
	return fmt.Sprintf("%s.%s.%d", clean(first), clean(last), year)
}

// NextUsername returns base if free, otherwise base1, base2, ... the first one not in taken.
func NextUsername(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}
