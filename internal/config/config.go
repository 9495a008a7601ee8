package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2333
	defaultEnv        = "development"
	defaultCookieName = "mindset_sid"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "mindsetgo"
	defaultDBCharset  = "utf8mb4"

	defaultRedisURL = "redis://localhost:6379/0"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port       int            `yaml:"port"`
	Env        string         `yaml:"env"` // "development" | "production"
	Database   DatabaseConfig `yaml:"database"`
	RedisURL   string         `yaml:"redis_url"`
	AdminKey   string         `yaml:"admin_key"`
	JWTSecret  string         `yaml:"jwt_secret"`
	CookieName string         `yaml:"cookie_name"`
	Origins    []string       `yaml:"allowed_origins"`
	WebAuthn   WebAuthnConfig `yaml:"webauthn"`
	TTL        TTLConfig      `yaml:"ttl"`
	Chat       ChatConfig     `yaml:"chat"`
	AI         AIConfig       `yaml:"ai"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

type WebAuthnConfig struct {
	RPID   string `yaml:"rp_id"`
	RPName string `yaml:"rp_name"`
	Origin string `yaml:"origin"`
}

// TTLConfig defines every retention window in the system. Zero values are
// replaced with defaults at load time, so a partial config stays valid.
type TTLConfig struct {
	InviteHours             int `yaml:"invite_hours"`
	UserDays                int `yaml:"user_days"`
	SessionMinutes          int `yaml:"session_minutes"`
	ResolutionMinutes       int `yaml:"resolution_minutes"`
	ProofMinutes            int `yaml:"proof_minutes"`
	ChallengeMinutes        int `yaml:"challenge_minutes"`
	MessageDays             int `yaml:"message_days"`
	SummaryDays             int `yaml:"summary_days"`
	ProfileDays             int `yaml:"profile_days"`
	InviteUsedRetentionHour int `yaml:"invite_used_retention_hours"`
	ProofUsedRetentionHour  int `yaml:"proof_used_retention_hours"`
	QrInactiveDays          int `yaml:"qr_inactive_days"`
	SweepIntervalMinutes    int `yaml:"sweep_interval_minutes"`
}

type ChatConfig struct {
	ContextLimit      int `yaml:"context_limit"`
	GenTimeoutSeconds int `yaml:"generation_timeout_seconds"`
}

// AIConfig lists the configured generation providers plus optional per-task
// overrides.
type AIConfig struct {
	Providers []AIProvider                 `yaml:"providers"`
	Tasks     map[string]AIModelAssignment `yaml:"tasks"` // reply | summary | profile
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Type         string `yaml:"type"` // openai | openai-compatible | anthropic | stub
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:       defaultPort,
		Env:        defaultEnv,
		CookieName: defaultCookieName,
		RedisURL:   defaultRedisURL,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
		},
		WebAuthn: WebAuthnConfig{
			RPID:   "localhost",
			RPName: "MindsetGo",
			Origin: "http://localhost:2333",
		},
	}
}

func (cfg *AppConfig) applyDefaults() {
	ttl := &cfg.TTL
	setIfZero(&ttl.InviteHours, 24)
	setIfZero(&ttl.UserDays, 14)
	setIfZero(&ttl.SessionMinutes, 12*60)
	setIfZero(&ttl.ResolutionMinutes, 5)
	setIfZero(&ttl.ProofMinutes, 5)
	setIfZero(&ttl.ChallengeMinutes, 5)
	setIfZero(&ttl.MessageDays, 30)
	setIfZero(&ttl.SummaryDays, 30)
	setIfZero(&ttl.ProfileDays, 30)
	setIfZero(&ttl.InviteUsedRetentionHour, 24)
	setIfZero(&ttl.ProofUsedRetentionHour, 24)
	setIfZero(&ttl.QrInactiveDays, 180)
	setIfZero(&ttl.SweepIntervalMinutes, 60)

	setIfZero(&cfg.Chat.ContextLimit, 20)
	setIfZero(&cfg.Chat.GenTimeoutSeconds, 30)
}

func (cfg *AppConfig) validate(path string) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.DSN == "" && (cfg.Database.Port < 1 || cfg.Database.Port > 65535) {
		return fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if strings.TrimSpace(cfg.AdminKey) == "" {
		return fmt.Errorf("admin_key must be set in %q", path)
	}
	return nil
}

// DSN returns the MySQL connection string.
func (cfg *AppConfig) DSN() string {
	if cfg.Database.DSN != "" {
		return cfg.Database.DSN
	}
	d := cfg.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name, d.Charset)
}

// IsDev reports whether the app runs in development mode.
func (cfg *AppConfig) IsDev() bool {
	return strings.ToLower(cfg.Env) != "production"
}

// GenTimeout is the per-call timeout for the AI backend.
func (cfg *AppConfig) GenTimeout() time.Duration {
	return time.Duration(cfg.Chat.GenTimeoutSeconds) * time.Second
}

// SweepInterval is the retention sweep cadence.
func (cfg *AppConfig) SweepInterval() time.Duration {
	return time.Duration(cfg.TTL.SweepIntervalMinutes) * time.Minute
}

func setIfZero(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
