package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration. Secrets
// (JWT_SECRET, GATEWAY_SECRET, DATABASE_DSN) come from the environment, not
// from this file.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Clinic     ClinicConfig     `yaml:"clinic"`
	Reminders  RemindersConfig  `yaml:"reminders"`
	Waitlist   WaitlistConfig   `yaml:"waitlist"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ClinicConfig describes the bookable day.
type ClinicConfig struct {
	Timezone        string `yaml:"timezone"`
	DayStart        string `yaml:"day_start"` // "08:00"
	DayEnd          string `yaml:"day_end"`   // "20:00"
	SlotStepMinutes int    `yaml:"slot_step_minutes"`

	Location *time.Location `yaml:"-"`
}

type RemindersConfig struct {
	SweepIntervalMinutes int           `yaml:"sweep_interval_minutes"`
	SweepInterval        time.Duration `yaml:"-"`
}

type WaitlistConfig struct {
	OfferTTLMinutes int           `yaml:"offer_ttl_minutes"`
	OfferTTL        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 6060
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 20
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "./database.db"
	}

	if cfg.Clinic.Timezone == "" {
		cfg.Clinic.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Clinic.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic timezone %q: %w", cfg.Clinic.Timezone, err)
	}
	cfg.Clinic.Location = loc

	if cfg.Clinic.DayStart == "" {
		cfg.Clinic.DayStart = "08:00"
	}
	if cfg.Clinic.DayEnd == "" {
		cfg.Clinic.DayEnd = "20:00"
	}
	if cfg.Clinic.SlotStepMinutes <= 0 {
		cfg.Clinic.SlotStepMinutes = 30
	}

	if cfg.Reminders.SweepIntervalMinutes <= 0 {
		cfg.Reminders.SweepIntervalMinutes = 15
	}
	cfg.Reminders.SweepInterval = time.Duration(cfg.Reminders.SweepIntervalMinutes) * time.Minute

	if cfg.Waitlist.OfferTTLMinutes <= 0 {
		cfg.Waitlist.OfferTTLMinutes = 120
	}
	cfg.Waitlist.OfferTTL = time.Duration(cfg.Waitlist.OfferTTLMinutes) * time.Minute

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 2
	}

	return &cfg, nil
}
