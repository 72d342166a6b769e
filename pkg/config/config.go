package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env            string
	Port           int
	APIPrefix      string
	PublicBaseURL  string
	MigrateOnStart bool

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Storage     StorageConfig
	PublicCache PublicCacheConfig
	Session     SessionConfig
	Reset       ResetConfig
	Mail        MailConfig
	Jobs        JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
	File   LogFileConfig
}

// LogFileConfig enables an additional rotating file sink.
type LogFileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// StorageConfig describes the disk-backed upload bucket.
type StorageConfig struct {
	Dir           string
	Bucket        string
	MaxUploadSize int64
}

// PublicCacheConfig tunes caching for public content endpoints.
type PublicCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SessionConfig tunes the admin role lookup cache.
type SessionConfig struct {
	RoleCacheTTL time.Duration
	RoleChannel  string
	LoginPath    string
	HomePath     string
}

// ResetConfig governs password reset tokens.
type ResetConfig struct {
	Secret  string
	TTL     time.Duration
	LinkURL string
}

// MailConfig configures outgoing mail delivery.
type MailConfig struct {
	SendgridAPIKey string
	FromName       string
	FromAddress    string
}

// JobsConfig sizes the background job queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.MigrateOnStart = v.GetBool("MIGRATE_ON_START")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
		File: LogFileConfig{
			Enabled:    v.GetBool("LOG_FILE_ENABLED"),
			Path:       v.GetString("LOG_FILE_PATH"),
			MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_FILE_COMPRESS"),
		},
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:           v.GetString("STORAGE_DIR"),
		Bucket:        v.GetString("STORAGE_BUCKET"),
		MaxUploadSize: maxUpload,
	}

	cfg.PublicCache = PublicCacheConfig{
		Enabled: v.GetBool("PUBLIC_CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("PUBLIC_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Session = SessionConfig{
		RoleCacheTTL: parseDuration(v.GetString("SESSION_ROLE_CACHE_TTL"), time.Minute),
		RoleChannel:  v.GetString("SESSION_ROLE_CHANNEL"),
		LoginPath:    v.GetString("SESSION_LOGIN_PATH"),
		HomePath:     v.GetString("SESSION_HOME_PATH"),
	}

	cfg.Reset = ResetConfig{
		Secret:  v.GetString("RESET_TOKEN_SECRET"),
		TTL:     parseDuration(v.GetString("RESET_TOKEN_TTL"), time.Hour),
		LinkURL: v.GetString("RESET_LINK_URL"),
	}
	if cfg.Reset.Secret == "" {
		cfg.Reset.Secret = cfg.JWT.Secret
	}

	cfg.Mail = MailConfig{
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
	}

	return cfg, nil
}

// Validate reports configuration the server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Env != EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_web")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "sma-web-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE_ENABLED", false)
	v.SetDefault("LOG_FILE_PATH", "./logs/api.log")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 7)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_FILE_COMPRESS", true)

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("STORAGE_BUCKET", "school-images")
	v.SetDefault("UPLOAD_MAX_SIZE", 5*1024*1024)

	v.SetDefault("PUBLIC_CACHE_ENABLED", true)
	v.SetDefault("PUBLIC_CACHE_TTL", "5m")

	v.SetDefault("SESSION_ROLE_CACHE_TTL", "1m")
	v.SetDefault("SESSION_ROLE_CHANNEL", "auth:roles")
	v.SetDefault("SESSION_LOGIN_PATH", "/login")
	v.SetDefault("SESSION_HOME_PATH", "/")

	v.SetDefault("RESET_TOKEN_SECRET", "")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("RESET_LINK_URL", "http://localhost:5173/reset-password")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Admin Sekolah")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@sekolah.sch.id")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
