package gateway

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the API gateway.
type Config struct {
	ServiceID string

	HTTPPort int

	AuthServiceURL string
	RedisURL       string

	RateLimitWindow   time.Duration
	RateLimitRequests int

	CookieDomain string
	CookieSecure bool

	// Cookie lifetimes mirror the token TTLs minted by the auth service so
	// the browser drops a cookie when its token is already dead.
	CookieAccessTTL  time.Duration
	CookieRefreshTTL time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		AuthServiceURL string `yaml:"auth_service_url"`
		RedisURL       string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	RateLimit struct {
		WindowSeconds int `yaml:"window_seconds"`
		Requests      int `yaml:"requests"`
	} `yaml:"rate_limit"`
	Cookies struct {
		Domain           string `yaml:"domain"`
		Secure           bool   `yaml:"secure"`
		AccessTTLMinutes int    `yaml:"access_ttl_minutes"`
		RefreshTTLHours  int    `yaml:"refresh_ttl_hours"`
	} `yaml:"cookies"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:         "api-gateway",
		HTTPPort:          8080,
		AuthServiceURL:    "http://localhost:8081",
		RateLimitWindow:   time.Minute,
		RateLimitRequests: 30,
		CookieAccessTTL:   15 * time.Minute,
		CookieRefreshTTL:  7 * 24 * time.Hour,
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
		if f.Dependencies.AuthServiceURL != "" {
			cfg.AuthServiceURL = f.Dependencies.AuthServiceURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.RateLimit.WindowSeconds > 0 {
			cfg.RateLimitWindow = time.Duration(f.RateLimit.WindowSeconds) * time.Second
		}
		if f.RateLimit.Requests > 0 {
			cfg.RateLimitRequests = f.RateLimit.Requests
		}
		cfg.CookieDomain = f.Cookies.Domain
		cfg.CookieSecure = f.Cookies.Secure
		if f.Cookies.AccessTTLMinutes > 0 {
			cfg.CookieAccessTTL = time.Duration(f.Cookies.AccessTTLMinutes) * time.Minute
		}
		if f.Cookies.RefreshTTLHours > 0 {
			cfg.CookieRefreshTTL = time.Duration(f.Cookies.RefreshTTLHours) * time.Hour
		}
	}

	cfg.AuthServiceURL = envOrDefault("AUTH_SERVICE_URL", cfg.AuthServiceURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.CookieDomain = envOrDefault("COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.RateLimitRequests = envInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second
	cfg.CookieAccessTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.CookieAccessTTL.Minutes()))) * time.Minute
	cfg.CookieRefreshTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.CookieRefreshTTL.Hours()))) * time.Hour
	if raw := os.Getenv("COOKIE_SECURE"); raw != "" {
		cfg.CookieSecure = raw == "true" || raw == "1"
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

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
