package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Environment selects how strictly secrets are enforced.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
	EnvProduction  Environment = "production"
)

// MinProductionSecretLength is the shortest JWT secret accepted in production.
const MinProductionSecretLength = 32

type Config struct {
	DBPath          string
	Env             Environment
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RememberMeTTL   time.Duration
	BcryptCost      int
	LogLevel        slog.Level
	SQLLog          bool
}

// IsProduction reports whether production-only safeguards apply.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads configuration from TRACKER_* environment variables.
func Load() (*Config, error) {
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRACKER")
	v.AutomaticEnv()

	v.SetDefault("db_path", "data/tracker.db")
	v.SetDefault("env", string(EnvDevelopment))
	v.SetDefault("jwt_secret", "")
	v.SetDefault("access_token_ttl", time.Hour)
	v.SetDefault("refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("remember_me_ttl", 30*24*time.Hour)
	v.SetDefault("bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("log_level", "info")
	v.SetDefault("sql_log", false)
	return v
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBPath:          strings.TrimSpace(v.GetString("db_path")),
		Env:             Environment(strings.ToLower(strings.TrimSpace(v.GetString("env")))),
		JWTSecret:       v.GetString("jwt_secret"),
		AccessTokenTTL:  v.GetDuration("access_token_ttl"),
		RefreshTokenTTL: v.GetDuration("refresh_token_ttl"),
		RememberMeTTL:   v.GetDuration("remember_me_ttl"),
		BcryptCost:      v.GetInt("bcrypt_cost"),
		SQLLog:          v.GetBool("sql_log"),
	}

	switch cfg.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return nil, fmt.Errorf("TRACKER_ENV must be one of development, test, production (got %q)", cfg.Env)
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("TRACKER_DB_PATH must not be empty")
	}

	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("TRACKER_JWT_SECRET is required in production")
		}
		if len(cfg.JWTSecret) < MinProductionSecretLength {
			return nil, fmt.Errorf("TRACKER_JWT_SECRET must be at least %d bytes in production", MinProductionSecretLength)
		}
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.RememberMeTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("TRACKER_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	level, err := parseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("TRACKER_LOG_LEVEL: %w", err)
	}
	return level, nil
}
