package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	DiskBackend = "disk"
	S3Backend   = "s3"

	devSecretKey = "dev-secret-key-change-in-production"
)

type BootstrapUser struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

type UploadConfig struct {
	Backend  string `env:"UPLOAD_BACKEND" envDefault:"disk"`
	Dir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"16777216"`
	// Uploads are refused when the disk backend has less free space than this.
	MinFreeBytes uint64 `env:"MIN_FREE_BYTES" envDefault:"104857600"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Prefix    string `env:"S3_PREFIX"`
}

/**
 * ==========================================================================
 * ==== All variables that are used by the catalog must be declared here. ===
 * ==== This is to make the data flow clear so that a user can see what   ===
 * ==== variables are exposed, and how the values are propagated through  ===
 * ==== the system.                                                       ===
 * ==========================================================================
 */
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"5000"`

	DatabaseUri string `env:"DATABASE_URI"`
	SqlitePath  string `env:"SQLITE_PATH" envDefault:"data_catalog.db"`

	SecretKey      string        `env:"SECRET_KEY"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"false"`
	LoginRateLimit int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LogDir string `env:"LOG_DIR" envDefault:"logs"`

	Admin       BootstrapUser `envPrefix:"ADMIN_"`
	DefaultUser BootstrapUser `envPrefix:"DEFAULT_"`

	Uploads UploadConfig
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func LoadEnvFile(envFile string) error {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("error loading .env file '%v': %w", envFile, err)
	}
	return nil
}

// Load parses the environment into a Config. If envFile is non empty it is loaded first;
// variables already set in the environment take precedence over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		if c.IsProduction() {
			return fmt.Errorf("SECRET_KEY must be set when ENVIRONMENT=production")
		}
		slog.Warn("SECRET_KEY is not set, using the development secret")
		c.SecretKey = devSecretKey
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}

	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be positive, got %d", c.LoginRateLimit)
	}

	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Uploads.MaxBytes)
	}

	switch c.Uploads.Backend {
	case DiskBackend:
		if c.Uploads.Dir == "" {
			return fmt.Errorf("UPLOAD_DIR must be set for the disk upload backend")
		}
	case S3Backend:
		if c.Uploads.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for the s3 upload backend")
		}
	default:
		return fmt.Errorf("invalid UPLOAD_BACKEND '%v', expected '%v' or '%v'", c.Uploads.Backend, DiskBackend, S3Backend)
	}

	if c.DatabaseUri != "" {
		if _, err := url.Parse(c.DatabaseUri); err != nil {
			return fmt.Errorf("invalid DATABASE_URI: %w", err)
		}
	}

	return nil
}
