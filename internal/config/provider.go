package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const defaultConfigFile = "/run/secrets/shop-api.json"

var (
	// ErrProviderUnavailable signals that a provider has nothing to offer and
	// the next one in the chain should be tried.
	ErrProviderUnavailable = errors.New("config provider unavailable")
	ErrConfigUnavailable   = errors.New("no config provider available")
)

type Provider interface {
	Name() string
	Load() (map[string]string, error)
}

var knownKeys = []string{
	"SERVER_PORT", "SERVER_READ_HEADER_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"REQUEST_TIMEOUT", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL", "REDIS_POOL_SIZE",
	"JWT_SECRET", "JWT_ACCESS_TTL", "REVOCATION_TTL", "USER_CACHE_TTL", "PROFILE_CACHE_TTL",
	"PRODUCT_CACHE_TTL", "LIST_CACHE_TTL", "ORDER_CACHE_TTL", "DASHBOARD_CACHE_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_RPM", "AUTH_RATE_LIMIT_RPM", "SESSION_COOKIE_SECURE", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"LOG_LEVEL", "LOG_FORMAT",
}

func DefaultProviders() []Provider {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = defaultConfigFile
	}

	return []Provider{
		FileProvider{Path: path},
		EnvProvider{DotEnvFiles: []string{".env"}},
	}
}

// Resolve tries providers in order and returns the first map produced.
func Resolve(providers ...Provider) (map[string]string, error) {
	for _, p := range providers {
		values, err := p.Load()
		if err == nil {
			return values, nil
		}
		if !errors.Is(err, ErrProviderUnavailable) {
			return nil, fmt.Errorf("load config from %s: %w", p.Name(), err)
		}
	}

	return nil, ErrConfigUnavailable
}

// FileProvider reads a flat JSON object, typically a mounted secret.
type FileProvider struct {
	Path string
}

func (p FileProvider) Name() string { return "file:" + p.Path }

func (p FileProvider) Load() (map[string]string, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrProviderUnavailable
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// numbers stay as written so large integers never turn into 1e+06
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var decoded map[string]any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	values := make(map[string]string, len(decoded))
	for key, value := range decoded {
		switch v := value.(type) {
		case string:
			values[key] = v
		case json.Number:
			values[key] = v.String()
		case nil:
		default:
			values[key] = fmt.Sprint(v)
		}
	}

	return values, nil
}

// EnvProvider reads the process environment after loading any dotenv files.
// It is unavailable when JWT_SECRET is not set anywhere.
type EnvProvider struct {
	DotEnvFiles []string
	Lookup      func(string) (string, bool)
}

func (p EnvProvider) Name() string { return "env" }

func (p EnvProvider) Load() (map[string]string, error) {
	for _, file := range p.DotEnvFiles {
		_ = godotenv.Load(file)
	}

	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	values := make(map[string]string, len(knownKeys))
	for _, key := range knownKeys {
		if v, ok := lookup(key); ok {
			values[key] = v
		}
	}

	if strings.TrimSpace(values["JWT_SECRET"]) == "" {
		return nil, ErrProviderUnavailable
	}

	return values, nil
}
