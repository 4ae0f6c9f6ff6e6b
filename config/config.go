package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	GinMode    string
	LogLevel   string
	CORSOrigin string
	JWTSecret  string
	TokenTTL   time.Duration
	TimeZone   *time.Location

	AdminEmail    string
	AdminPassword string
	APIRateLimit  int

	Database struct {
		Driver string
		DSN    string
	}

	ChangePollInterval time.Duration
	TrackerMinInterval time.Duration
	RabbitMQURL        string

	Mail struct {
		Driver       string
		From         string
		APIURL       string
		APIKey       string
		SMTPHost     string
		SMTPPort     int
		SMTPUser     string
		SMTPPassword string
	}

	Reports struct {
		DailyCron       string
		WeeklyCron      string
		Metrics         string
		SendConcurrency int
	}
}

// Load reads an optional .env file at path and then the process environment.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.GinMode = getEnv("GIN_MODE", "debug")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", "*")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.APIRateLimit, err = getInt("API_RATE_LIMIT", 300); err != nil {
		return nil, err
	}

	tz, err := time.LoadLocation(getEnv("TZ_NAME", "Africa/Lusaka"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	cfg.TimeZone = tz

	cfg.Database.Driver = getEnv("DB_DRIVER", "sqlite")
	cfg.Database.DSN = getEnv("DB_DSN", "zedbites.db")

	if cfg.ChangePollInterval, err = getDuration("CHANGE_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TrackerMinInterval, err = getDuration("TRACKER_MIN_INTERVAL", 0); err != nil {
		return nil, err
	}
	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")

	cfg.Mail.Driver = getEnv("MAIL_DRIVER", "log")
	cfg.Mail.From = getEnv("MAIL_FROM", "ZedBites Reports <reports@zedbites.local>")
	cfg.Mail.APIURL = getEnv("MAIL_API_URL", "https://api.resend.com/emails")
	cfg.Mail.APIKey = os.Getenv("MAIL_API_KEY")
	cfg.Mail.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.Mail.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.Mail.SMTPUser = os.Getenv("SMTP_USER")
	cfg.Mail.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.Reports.DailyCron = getEnv("REPORT_DAILY_CRON", "0 7 * * *")
	cfg.Reports.WeeklyCron = getEnv("REPORT_WEEKLY_CRON", "0 8 * * 1")
	cfg.Reports.Metrics = getEnv("REPORT_METRICS", "store")
	if cfg.Reports.SendConcurrency, err = getInt("REPORT_SEND_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.APIRateLimit < 0 {
		return errors.New("API_RATE_LIMIT must not be negative")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Mail.Driver {
	case "log":
	case "http":
		if c.Mail.APIKey == "" {
			return errors.New("MAIL_API_KEY is required for MAIL_DRIVER=http")
		}
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST is required for MAIL_DRIVER=smtp")
		}
	default:
		return fmt.Errorf("unsupported MAIL_DRIVER %q", c.Mail.Driver)
	}
	if c.Reports.Metrics != "store" && c.Reports.Metrics != "random" {
		return fmt.Errorf("unsupported REPORT_METRICS %q", c.Reports.Metrics)
	}
	if c.Reports.SendConcurrency < 1 {
		return errors.New("REPORT_SEND_CONCURRENCY must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
