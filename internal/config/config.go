package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port         int                `json:"port"`
	JWTSecret    string             `json:"jwt_secret"`
	JWTTTLHours  int                `json:"jwt_ttl_hours"`
	LogConfig    logger.LogConfig   `json:"log_config"`
	Database     DatabaseConfig     `json:"database"`
	Mail         MailConfig         `json:"mail"`
	Verification VerificationConfig `json:"verification"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	FileStore    FileStoreConfig    `json:"file_store"`
	Admin        AdminConfig        `json:"admin"`
	Cleanup      CleanupConfig      `json:"cleanup"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type VerificationConfig struct {
	CodeLength      int `json:"code_length"`
	ExpireMinutes   int `json:"expire_minutes"`
	CooldownSeconds int `json:"cooldown_seconds"`
}

type RateLimitConfig struct {
	WindowSeconds int `json:"window_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AdminConfig is the single static operator identity; it is checked by
// comparison against this struct and never touches the users table.
type AdminConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CleanupConfig struct {
	CronSpec      string `json:"cron_spec"`
	RetainMinutes int    `json:"retain_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Verification.CodeLength == 0 {
		cfg.Verification.CodeLength = 6
	}
	if cfg.Verification.ExpireMinutes == 0 {
		cfg.Verification.ExpireMinutes = 10
	}
	if cfg.Verification.CooldownSeconds == 0 {
		cfg.Verification.CooldownSeconds = 60
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 1
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Cleanup.CronSpec == "" {
		cfg.Cleanup.CronSpec = "*/30 * * * *"
	}
	if cfg.Cleanup.RetainMinutes == 0 {
		cfg.Cleanup.RetainMinutes = 24 * 60
	}
	return &cfg, nil
}
