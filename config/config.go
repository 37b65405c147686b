package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds application configuration loaded from environment.
type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Email      EmailConfig
	SuperAdmin SuperAdminConfig
	Enrichment EnrichmentConfig
	Realtime   RealtimeConfig
	Backup     BackupConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/outings?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
	// MaxConnIdleSec closes pooled connections idle longer than this. Zero keeps the pgx default.
	MaxConnIdleSec int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// EmailConfig holds SMTP settings for the email worker.
type EmailConfig struct {
	FromAddress string
	FromName    string
	AdminEmail  string // receives admin_notification mails for new enquiries
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	UseTLS      bool
}

// SuperAdminConfig is the platform administrator created at startup.
type SuperAdminConfig struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// EnrichmentConfig holds API keys for the place, movie and weather lookups.
type EnrichmentConfig struct {
	GooglePlacesKey string
	TMDBKey         string
	OpenWeatherKey  string
	TimeoutSec      int
}

// RealtimeConfig tunes the notification dispatcher.
type RealtimeConfig struct {
	Buffer int
}

// BackupConfig holds AWS settings for `outings-admin db backup`.
type BackupConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string // empty = write backups to the local directory
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "outings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),

			MaxConnIdleSec: getEnvInt("DB_MAX_CONN_IDLE_SEC", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", defaultJWTSecret),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24*7),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@planmyoutings.local"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Plan My Outings"),
			AdminEmail:  getEnv("ADMIN_EMAIL", ""),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			UseTLS:      getEnvBool("SMTP_USE_TLS", true),
		},
		SuperAdmin: SuperAdminConfig{
			Username:  getEnv("SUPER_ADMIN_USERNAME", "superadmin"),
			Password:  getEnv("SUPER_ADMIN_PASSWORD", ""),
			Email:     getEnv("SUPER_ADMIN_EMAIL", "admin@planmyoutings.local"),
			FirstName: getEnv("SUPER_ADMIN_FIRST_NAME", "Super"),
			LastName:  getEnv("SUPER_ADMIN_LAST_NAME", "Admin"),
		},
		Enrichment: EnrichmentConfig{
			GooglePlacesKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
			TMDBKey:         getEnv("TMDB_API_KEY", ""),
			OpenWeatherKey:  getEnv("OPENWEATHER_API_KEY", ""),
			TimeoutSec:      getEnvInt("ENRICHMENT_TIMEOUT_SEC", 10),
		},
		Realtime: RealtimeConfig{
			Buffer: getEnvInt("REALTIME_BUFFER", 1024),
		},
		Backup: BackupConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that are unsafe for production.
func (c *Config) Validate() error {
	if c.Env == "production" && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JWT.ExpireHours <= 0 {
		return errors.New("JWT_EXPIRE_HOURS must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
