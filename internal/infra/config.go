package infra

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	DBMinConns       int
	RedisURL         string
	JWTSecret        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string

	ProviderAPIKey  string
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// WebhookSecrets holds every secret accepted for callback signatures; more than
	// one is configured while a rotation is in flight.
	WebhookSecrets         []string
	WebhookSignatureHeader string
	WebhookDedupTTL        time.Duration

	AssetHostAllowlist   []string
	RelayTimeout         time.Duration
	RefineRequirePreview bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DBMaxConns:             getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:             getEnvInt("DB_MIN_CONNS", 1),
		RedisURL:               os.Getenv("REDIS_URL"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		HTTPReadTimeout:        time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:       time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:        time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:            splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		ProviderAPIKey:         os.Getenv("PROVIDER_API_KEY"),
		ProviderBaseURL:        getEnv("PROVIDER_BASE_URL", "https://api.meshy.ai"),
		ProviderTimeout:        time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 45)),
		WebhookSecrets:         splitList(os.Getenv("WEBHOOK_SECRET")),
		WebhookSignatureHeader: getEnv("WEBHOOK_SIGNATURE_HEADER", "X-Provider-Signature"),
		WebhookDedupTTL:        time.Second * time.Duration(getEnvInt("WEBHOOK_DEDUP_TTL_SECONDS", 86400)),
		AssetHostAllowlist:     AssetHostsFromEnv(),
		RelayTimeout:           time.Second * time.Duration(getEnvInt("RELAY_TIMEOUT_SECONDS", 60)),
		RefineRequirePreview:   getEnvBool("REFINE_REQUIRE_PREVIEW", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if len(cfg.AssetHostAllowlist) == 0 {
		return nil, fmt.Errorf("ASSET_HOST_ALLOWLIST must name at least one host")
	}

	return cfg, nil
}

// AssetHostsFromEnv returns the relay allow-list from ASSET_HOST_ALLOWLIST.
func AssetHostsFromEnv() []string {
	return normalizeHosts(getEnv("ASSET_HOST_ALLOWLIST", "assets.meshy.ai"))
}

// IsDevelopment reports whether the service runs with development relaxations.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeHosts lowercases, dedupes and sorts a comma-separated host list.
func normalizeHosts(raw string) []string {
	seen := make(map[string]struct{})
	var hosts []string
	for _, host := range splitList(raw) {
		host = strings.ToLower(host)
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
