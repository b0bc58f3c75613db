package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	DirectoryGRPCURL string

	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaUserTopic     string
	ConsumerInterval   time.Duration

	JWTSecret       string
	BcryptCost      int
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	DefaultRole          string
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	DirectoryTimeout     time.Duration
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration

	// RolePermissions overlays the built-in role grants. A role listed here
	// replaces its default permission set entirely.
	RolePermissions map[string][]string
}

// configFile mirrors the YAML schema used by configs/auth-service.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL      string   `yaml:"postgres_url"`
		RedisURL         string   `yaml:"redis_url"`
		KafkaBrokers     []string `yaml:"kafka_brokers"`
		DirectoryGRPCURL string   `yaml:"directory_grpc_url"`
	} `yaml:"dependencies"`
	Events struct {
		UserEventTopic string `yaml:"user_event_topic"`
		ConsumerGroup  string `yaml:"consumer_group"`
	} `yaml:"events"`
	Tokens struct {
		AccessTTLMinutes int `yaml:"access_ttl_minutes"`
		RefreshTTLHours  int `yaml:"refresh_ttl_hours"`
	} `yaml:"tokens"`
	Permissions map[string][]string `yaml:"permissions"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "auth-service",
		HTTPPort:             8081,
		MaxDBConns:           20,
		DirectoryGRPCURL:     "localhost:9092",
		KafkaConsumerGroup:   "auth-service",
		KafkaUserTopic:       "user.events",
		ConsumerInterval:     2 * time.Second,
		BcryptCost:           12,
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		DefaultRole:          "USER",
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
		DirectoryTimeout:     5 * time.Second,
		IdempotencyTTL:       7 * 24 * time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.DirectoryGRPCURL != "" {
			cfg.DirectoryGRPCURL = f.Dependencies.DirectoryGRPCURL
		}
		if f.Events.UserEventTopic != "" {
			cfg.KafkaUserTopic = f.Events.UserEventTopic
		}
		if f.Events.ConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Events.ConsumerGroup
		}
		if f.Tokens.AccessTTLMinutes > 0 {
			cfg.AccessTokenTTL = time.Duration(f.Tokens.AccessTTLMinutes) * time.Minute
		}
		if f.Tokens.RefreshTTLHours > 0 {
			cfg.RefreshTokenTTL = time.Duration(f.Tokens.RefreshTTLHours) * time.Hour
		}
		if len(f.Permissions) > 0 {
			cfg.RolePermissions = f.Permissions
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.DirectoryGRPCURL = envOrDefault("DIRECTORY_GRPC_URL", cfg.DirectoryGRPCURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaUserTopic = envOrDefault("KAFKA_TOPIC_USER_EVENT", cfg.KafkaUserTopic)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.DefaultRole = envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.FailedLoginThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedLoginThreshold)

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.DirectoryTimeout = time.Duration(envInt("DIRECTORY_TIMEOUT_SECONDS", int(cfg.DirectoryTimeout.Seconds()))) * time.Second
	cfg.ConsumerInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerInterval.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
