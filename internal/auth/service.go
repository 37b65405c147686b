package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/config"
	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/queue"
	"github.com/planmyoutings/backend/pkg/utils"
)

// GeneratedPasswordLength is the length of passwords issued from the contact form and resends.
const GeneratedPasswordLength = 12

// Store is the persistence the identity service needs. *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	RegisterFromEnquiry(ctx context.Context, e *models.Enquiry, passwordHash string) (*models.User, error)
}

// EmailQueue accepts outgoing email jobs.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Service is the identity store: login, contact-form registration, credential rotation.
type Service struct {
	store      Store
	jwt        *JWTService
	emails     EmailQueue
	superAdmin config.SuperAdminConfig
	adminEmail string
	logger     *zap.Logger
}

// NewService creates the identity service.
func NewService(store Store, jwt *JWTService, emails EmailQueue, superAdmin config.SuperAdminConfig, adminEmail string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, jwt: jwt, emails: emails, superAdmin: superAdmin, adminEmail: adminEmail, logger: logger}
}

// ContactRequest is a contact-form submission.
type ContactRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=50"`
	LastName    string `json:"last_name" binding:"required,max=50"`
	Email       string `json:"email" binding:"required,email,max=120"`
	YearOfBirth int    `json:"year_of_birth" binding:"required,min=1900,max=2100"`
	Message     string `json:"message"`
}

// ContactResult carries the generated credentials. The password is shown exactly once.
type ContactResult struct {
	User     models.UserPublic `json:"user"`
	Username string            `json:"username"`
	Password string            `json:"password"`
}

// LoginResult is the token plus the public user.
type LoginResult struct {
	Token   string            `json:"token"`
	User    models.UserPublic `json:"user"`
	IsAdmin bool              `json:"is_admin"`
}

// RoleFor returns the platform role of a user.
func (s *Service) RoleFor(u *models.User) models.Role {
	if s.superAdmin.Username != "" && u.Username == s.superAdmin.Username {
		return models.RoleAdmin
	}
	return models.RoleUser
}

// Login checks the username and password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthenticated("invalid username or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, apperrors.Unauthenticated("invalid username or password")
	}
	role := s.RoleFor(user)
	token, err := s.jwt.Generate(user.ID, user.Username, string(role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user.ToPublic(), IsAdmin: role == models.RoleAdmin}, nil
}

// Me returns the user behind a validated token.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.store.GetByID(ctx, userID)
}

// Contact records an enquiry and derives an account from it. Welcome and admin notification
// emails are queued after the account is committed; queueing failures do not undo the account.
func (s *Service) Contact(ctx context.Context, req ContactRequest) (*ContactResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("duplicate_email")
	}

	password, err := utils.GeneratePassword(GeneratedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	enquiry := &models.Enquiry{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       req.Email,
		YearOfBirth: req.YearOfBirth,
		Message:     req.Message,
	}
	user, err := s.store.RegisterFromEnquiry(ctx, enquiry, hash)
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeWelcome,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Data: map[string]string{
			"first_name": user.FirstName,
			"username":   user.Username,
			"password":   password,
		},
	})
	if s.adminEmail != "" {
		s.enqueue(ctx, queue.EmailPayload{
			EmailType:      models.EmailTypeAdminNotification,
			UserID:         &user.ID,
			RecipientEmail: s.adminEmail,
			Data: map[string]string{
				"full_name": user.FullName(),
				"email":     user.Email,
				"username":  user.Username,
				"message":   enquiry.Message,
			},
		})
	}
	return &ContactResult{User: user.ToPublic(), Username: user.Username, Password: password}, nil
}

// ResetCredentials issues a fresh password for a user and queues a resend email with it.
func (s *Service) ResetCredentials(ctx context.Context, userID int64) (*ContactResult, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	password, err := utils.GeneratePassword(GeneratedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	s.enqueue(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeResend,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Data: map[string]string{
			"first_name": user.FirstName,
			"username":   user.Username,
			"password":   password,
		},
	})
	return &ContactResult{User: user.ToPublic(), Username: user.Username, Password: password}, nil
}

// EnsureSuperAdmin creates the configured administrator, or resets its password when it drifted
// from configuration. An empty configured password disables the bootstrap.
func (s *Service) EnsureSuperAdmin(ctx context.Context) error {
	cfg := s.superAdmin
	if cfg.Username == "" || cfg.Password == "" {
		s.logger.Warn("super admin bootstrap skipped: SUPER_ADMIN_PASSWORD not set")
		return nil
	}
	existing, err := s.store.GetByUsername(ctx, cfg.Username)
	if err == nil {
		if utils.CheckPassword(cfg.Password, existing.Password) {
			return nil
		}
		hash, err := utils.HashPassword(cfg.Password)
		if err != nil {
			return err
		}
		s.logger.Info("super admin password refreshed", zap.String("username", cfg.Username))
		return s.store.UpdatePassword(ctx, existing.ID, hash)
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return err
	}
	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username:    cfg.Username,
		Email:       cfg.Email,
		Password:    hash,
		FirstName:   cfg.FirstName,
		LastName:    cfg.LastName,
		YearOfBirth: 1990,
	}
	if err := s.store.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("super admin created", zap.String("username", cfg.Username), zap.Int64("user_id", admin.ID))
	return nil
}

func (s *Service) enqueue(ctx context.Context, payload queue.EmailPayload) {
	if s.emails == nil {
		return
	}
	if err := s.emails.EnqueueEmail(ctx, payload); err != nil {
		s.logger.Warn("enqueue email failed",
			zap.String("email_type", payload.EmailType),
			zap.String("recipient", payload.RecipientEmail),
			zap.Error(err))
	}
}

// ErrSuperAdminProtected is returned when an operator tries to delete the configured administrator.
var ErrSuperAdminProtected = errors.New("the super admin account cannot be deleted")
