package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config/config.yaml"
	EnvPrefix   = "intihelp"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimit       int           `yaml:"rate_limit" envconfig:"rate_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
	AllowedOrigin   string        `yaml:"allowed_origin" envconfig:"allowed_origin"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"url" envconfig:"url"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl" envconfig:"lock_ttl"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" envconfig:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl" envconfig:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" envconfig:"refresh_ttl"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" envconfig:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port" envconfig:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user" envconfig:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password" envconfig:"smtp_password"`
	FromEmail    string `yaml:"from_email" envconfig:"from_email"`
}

type TelegramConfig struct {
	BotToken   string        `yaml:"bot_token" envconfig:"bot_token"`
	WebhookURL string        `yaml:"webhook_url" envconfig:"webhook_url"`
	LinkTTL    time.Duration `yaml:"link_ttl" envconfig:"link_ttl"`
}

type FilesConfig struct {
	RootDir     string `yaml:"root_dir" envconfig:"root_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb" envconfig:"max_upload_mb"`
	FontPath    string `yaml:"font_path" envconfig:"font_path"`
}

type PricingConfig struct {
	FeeRate string `yaml:"fee_rate" envconfig:"fee_rate"`
}

type RemindersConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Schedule  string        `yaml:"schedule"`
	Window    time.Duration `yaml:"window"`
	BatchSize int           `yaml:"batch_size" envconfig:"batch_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Files     FilesConfig     `yaml:"files"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Reminders RemindersConfig `yaml:"reminders"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads the YAML file at path, then .env, then INTIHELP_* environment
// variables, each layer overriding the previous one. A missing file at
// DefaultPath is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 120
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = "*"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 10 * time.Second
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL == 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Telegram.LinkTTL == 0 {
		c.Telegram.LinkTTL = 15 * time.Minute
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Files.MaxUploadMB == 0 {
		c.Files.MaxUploadMB = 20
	}
	if c.Pricing.FeeRate == "" {
		c.Pricing.FeeRate = "0.20"
	}
	if c.Reminders.Schedule == "" {
		c.Reminders.Schedule = "@hourly"
	}
	if c.Reminders.Window == 0 {
		c.Reminders.Window = 24 * time.Hour
	}
	if c.Reminders.BatchSize == 0 {
		c.Reminders.BatchSize = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}
	rate, err := c.FeeRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing.fee_rate must be in [0, 1), got %s", rate)
	}
	return nil
}

// FeeRate returns the platform fee as a fraction of the assistant price.
func (c *Config) FeeRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Pricing.FeeRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing.fee_rate: %w", err)
	}
	return rate, nil
}

func (c *Config) MaxUploadBytes() int64 {
	return c.Files.MaxUploadMB << 20
}
