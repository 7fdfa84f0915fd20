// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted JWT or session signing key.
const MinSecretLength = 32

type Config struct {
	Port          int           `mapstructure:"port"`
	DBString      string        `mapstructure:"db_string"`
	SessionSecret string        `mapstructure:"session_secret"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	JWTTTL        time.Duration `mapstructure:"jwt_ttl"`
	FrontendURL   string        `mapstructure:"frontend_url"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	AdminEmails   []string      `mapstructure:"admin_emails"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	S3Bucket         string `mapstructure:"aws_s3_bucket"`
	AWSRegion        string `mapstructure:"aws_region"`
	AWSEndpointURL   string `mapstructure:"aws_endpoint_url"`
	StoragePublicURL string `mapstructure:"storage_public_url"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	OAuthCallbackURL   string `mapstructure:"oauth_callback_url"`

	AuthRatePerMinute int `mapstructure:"auth_rate_per_minute"`
}

var defaults = map[string]any{
	"port":                 8080,
	"db_string":            "",
	"session_secret":       "",
	"jwt_secret":           "",
	"jwt_issuer":           "clientportal",
	"jwt_ttl":              "24h",
	"frontend_url":         "http://localhost:3000",
	"cors_origins":         "http://localhost:3000",
	"admin_emails":         "",
	"log_level":            "INFO",
	"log_format":           "json",
	"aws_s3_bucket":        "project-materials",
	"aws_region":           "us-east-1",
	"aws_endpoint_url":     "",
	"storage_public_url":   "",
	"redis_addr":           "",
	"redis_password":       "",
	"google_client_id":     "",
	"google_client_secret": "",
	"oauth_callback_url":   "http://localhost:8080/auth/google/callback",
	"auth_rate_per_minute": 30,
}

// Load reads .env (if present) and then the environment. Environment values
// win over .env values because godotenv never overrides variables that are
// already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.AdminEmails = splitList(cfg.AdminEmails)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.DBString == "" {
		return fmt.Errorf("DB_STRING environment variable not set")
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if len(c.SessionSecret) < MinSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.AuthRatePerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
