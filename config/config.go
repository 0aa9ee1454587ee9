package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix prefixes every environment override, e.g. JANSAAKSHI_SERVER_PORT
const EnvPrefix = "JANSAAKSHI_"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Minio     MinioConfig     `yaml:"minio"`
	OCR       OCRConfig       `yaml:"ocr"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type ServerConfig struct {
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	DefaultCity         string `yaml:"default_city"`
	StaticDir           string `yaml:"static_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Path                string `yaml:"path"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
	MaxOpenConns        int    `yaml:"max_open_conns"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
	CookieName       string `yaml:"cookie_name"`
	// AdminUsername and AdminPassword seed an admin account on serve
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

type SessionConfig struct {
	Backend       string `yaml:"backend"` // memory, redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type OCRConfig struct {
	APIURL              string `yaml:"api_url"`
	APIToken            string `yaml:"api_token"`
	ModelVersion        string `yaml:"model_version"`
	CallbackURL         string `yaml:"callback_url"`
	UID                 string `yaml:"uid"`
	Seed                string `yaml:"seed"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int    `yaml:"max_poll_attempts"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
}

type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type IngestConfig struct {
	MaxJobs     int `yaml:"max_jobs"` // 0 = unlimited
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type ReconcileConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used for every key that is not set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeoutSeconds:  60,
			WriteTimeoutSeconds: 60,
			DefaultCity:         "mumbai",
		},
		Log:      LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Path: "jansaakshi.db", QueryTimeoutSeconds: 15, MaxOpenConns: 10},
		Auth: AuthConfig{
			TokenExpireHours: 168,
			CookieName:       "token",
		},
		Session:   SessionConfig{Backend: "memory", KeyPrefix: "jansaakshi:session:"},
		RateLimit: RateLimitConfig{Requests: 100, WindowSeconds: 60},
		Minio:     MinioConfig{Bucket: "minutes", ExpireDays: 7},
		OCR: OCRConfig{
			ModelVersion:        "vlm",
			PollIntervalSeconds: 5,
			MaxPollAttempts:     60,
			TimeoutSeconds:      60,
		},
		LLM: LLMConfig{
			Model:          "llama-3.3-70b-versatile",
			Temperature:    0.3,
			MaxTokens:      500,
			TimeoutSeconds: 30,
		},
		Ingest:    IngestConfig{MaxJobs: 100, MaxUploadMB: 16},
		Reconcile: ReconcileConfig{Enabled: true, Schedule: "@daily"},
	}
}

// Load reads the YAML file at path (if it exists), overlays JANSAAKSHI_*
// environment variables, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults and environment only
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// JANSAAKSHI_SESSION_REDIS_ADDR -> session.redis_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		for _, section := range []string{"rate_limit"} {
			if strings.HasPrefix(lower, section+"_") {
				return section + "." + strings.TrimPrefix(lower, section+"_")
			}
		}
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults replaces explicit zero values that would break the service
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.DefaultCity == "" {
		cfg.Server.DefaultCity = def.Server.DefaultCity
	}
	if cfg.Database.QueryTimeoutSeconds <= 0 {
		cfg.Database.QueryTimeoutSeconds = def.Database.QueryTimeoutSeconds
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = def.Minio.ExpireDays
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = def.Auth.TokenExpireHours
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = def.Auth.CookieName
	}
	if cfg.OCR.ModelVersion == "" {
		cfg.OCR.ModelVersion = def.OCR.ModelVersion
	}
	if cfg.OCR.PollIntervalSeconds <= 0 {
		cfg.OCR.PollIntervalSeconds = def.OCR.PollIntervalSeconds
	}
	if cfg.OCR.MaxPollAttempts <= 0 {
		cfg.OCR.MaxPollAttempts = def.OCR.MaxPollAttempts
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = def.RateLimit.Requests
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = def.RateLimit.WindowSeconds
	}
	if cfg.Reconcile.Schedule == "" {
		cfg.Reconcile.Schedule = def.Reconcile.Schedule
	}
	if cfg.Ingest.MaxUploadMB <= 0 {
		cfg.Ingest.MaxUploadMB = def.Ingest.MaxUploadMB
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature %.2f out of range", c.LLM.Temperature)
	}
	if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
		return fmt.Errorf("invalid reconcile.schedule: %w", err)
	}
	return nil
}

// IngestEnabled reports whether object storage and OCR are configured
func (c *Config) IngestEnabled() bool {
	return c.Minio.Endpoint != "" && c.OCR.APIURL != ""
}

// LLMEnabled reports whether a chat-completion endpoint is configured
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}
