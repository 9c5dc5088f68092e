package config

import (
	"fmt"
	"strings"

	"github.com/labstack/gommon/bytes"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	StorageDriver string   `mapstructure:"STORAGE_DRIVER"`
	DataDir       string   `mapstructure:"DATA_DIR"`
	SQLitePath    string   `mapstructure:"SQLITE_PATH"`
	BoltPath      string   `mapstructure:"BOLT_PATH"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	S3Bucket      string   `mapstructure:"S3_BUCKET"`
	S3Region      string   `mapstructure:"S3_REGION"`
	S3Endpoint    string   `mapstructure:"S3_ENDPOINT"`
	S3Prefix      string   `mapstructure:"S3_PREFIX"`
	S3PathStyle   bool     `mapstructure:"S3_PATH_STYLE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit     string   `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "STORAGE_DRIVER", "DATA_DIR", "SQLITE_PATH", "BOLT_PATH",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX", "S3_PATH_STYLE",
	"CORS_ORIGINS", "BODY_LIMIT",
}

// Load reads the environment, falling back to a .env file in the working
// directory when one exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORAGE_DRIVER", DriverFile)
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("SQLITE_PATH", "hsm.db")
	v.SetDefault("BOLT_PATH", "hsm.bolt")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("BODY_LIMIT", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// BodyLimitBytes parses BODY_LIMIT ("512K", "1M", "2MB") into bytes.
func (c *Config) BodyLimitBytes() (int64, error) {
	n, err := bytes.Parse(c.BodyLimit)
	if err != nil {
		return 0, fmt.Errorf("BODY_LIMIT %q: %w", c.BodyLimit, err)
	}
	return n, nil
}

// Validate checks the settings the selected storage driver depends on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.StorageDriver {
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required for the bolt driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		if c.DBMaxConns <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
		}
	case DriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of file, sqlite, bolt, postgres, s3, memory, got %q", c.StorageDriver)
	}

	if c.BodyLimit != "" {
		if _, err := c.BodyLimitBytes(); err != nil {
			return err
		}
	}
	return nil
}
