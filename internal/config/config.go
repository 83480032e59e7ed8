package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	RedisURL                string
	RedisPoolSize           int
	JWTSecret               string
	JWTAccessTTL            time.Duration
	RevocationTTL           time.Duration
	UserCacheTTL            time.Duration
	ProfileCacheTTL         time.Duration
	ProductCacheTTL         time.Duration
	ListCacheTTL            time.Duration
	OrderCacheTTL           time.Duration
	DashboardCacheTTL       time.Duration
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	SessionCookieSecure     bool
	KafkaBrokers            []string
	KafkaTopic              string
	LogLevel                string
	LogFormat               string
}

// Load resolves the flat configuration map through the default provider chain.
func Load() (*Config, error) {
	values, err := Resolve(DefaultProviders()...)
	if err != nil {
		return nil, err
	}

	return FromMap(values)
}

func FromMap(values map[string]string) (*Config, error) {
	src := source(values)

	cfg := &Config{
		ServerPort:              src.getString("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: src.getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      src.getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       src.getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          src.getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             src.getString("DATABASE_URL", ""),
		DBMaxConns:              int32(src.getInt("DB_MAX_CONNS", 20)),
		DBMinConns:              int32(src.getInt("DB_MIN_CONNS", 2)),
		RedisURL:                src.getString("REDIS_URL", ""),
		RedisPoolSize:           src.getInt("REDIS_POOL_SIZE", 20),
		JWTSecret:               src.getString("JWT_SECRET", ""),
		JWTAccessTTL:            src.getDuration("JWT_ACCESS_TTL", 24*time.Hour),
		RevocationTTL:           src.getDuration("REVOCATION_TTL", 7*24*time.Hour),
		UserCacheTTL:            src.getDuration("USER_CACHE_TTL", time.Hour),
		ProfileCacheTTL:         src.getDuration("PROFILE_CACHE_TTL", 30*time.Minute),
		ProductCacheTTL:         src.getDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
		ListCacheTTL:            src.getDuration("LIST_CACHE_TTL", 5*time.Minute),
		OrderCacheTTL:           src.getDuration("ORDER_CACHE_TTL", 10*time.Minute),
		DashboardCacheTTL:       src.getDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),
		CORSOrigins:             splitCSV(src.getString("CORS_ORIGINS", "*")),
		RateLimitRPM:            src.getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        src.getInt("AUTH_RATE_LIMIT_RPM", 10),
		SessionCookieSecure:     src.getBool("SESSION_COOKIE_SECURE", false),
		KafkaBrokers:            splitCSV(src.getString("KAFKA_BROKERS", "")),
		KafkaTopic:              src.getString("KAFKA_TOPIC", "shop.events"),
		LogLevel:                strings.ToLower(src.getString("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(src.getString("LOG_FORMAT", "pretty")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}

	if c.RevocationTTL < c.JWTAccessTTL {
		return fmt.Errorf("REVOCATION_TTL (%s) must cover JWT_ACCESS_TTL (%s)", c.RevocationTTL, c.JWTAccessTTL)
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	cacheTTLs := map[string]time.Duration{
		"USER_CACHE_TTL":      c.UserCacheTTL,
		"PROFILE_CACHE_TTL":   c.ProfileCacheTTL,
		"PRODUCT_CACHE_TTL":   c.ProductCacheTTL,
		"LIST_CACHE_TTL":      c.ListCacheTTL,
		"ORDER_CACHE_TTL":     c.OrderCacheTTL,
		"DASHBOARD_CACHE_TTL": c.DashboardCacheTTL,
	}
	for key, ttl := range cacheTTLs {
		if ttl < time.Minute || ttl > time.Hour {
			return fmt.Errorf("%s must be between 1m and 1h", key)
		}
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

// BlacklistTTL is how long a revoked token stays in the revocation set. It is
// bound to the maximum token lifetime, never to a token's remaining time.
func (c *Config) BlacklistTTL() time.Duration {
	if c.RevocationTTL < c.JWTAccessTTL {
		return c.JWTAccessTTL
	}
	return c.RevocationTTL
}

type source map[string]string

func (s source) getString(key string, fallback string) string {
	v := strings.TrimSpace(s[key])
	if v == "" {
		return fallback
	}

	return v
}

func (s source) getInt(key string, fallback int) int {
	raw := strings.TrimSpace(s[key])
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func (s source) getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(s[key])
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

// getDuration accepts Go duration strings and bare seconds.
func (s source) getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(s[key])
	if raw == "" {
		return fallback
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
