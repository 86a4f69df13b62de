package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Port            string
	DataDir         string
	StoreBackend    string
	ProviderTimeout time.Duration
	RequestTimeout  time.Duration
	STUNServers     []string
	GeoFallback     bool
	IPInfoToken     string
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:         envOrDefault("PORT", "5000"),
		DataDir:      envOrDefault("DATA_DIR", "data"),
		StoreBackend: strings.ToLower(envOrDefault("STORE_BACKEND", BackendFile)),
		STUNServers:  splitList(envOrDefault("STUN_SERVERS", "stun.l.google.com:19302")),
		IPInfoToken:  os.Getenv("IPINFO_TOKEN"),
	}

	var err error
	if cfg.ProviderTimeout, err = durationEnv("PROVIDER_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GeoFallback, err = boolEnv("GEO_FALLBACK", false); err != nil {
		return Config{}, err
	}

	return cfg, Validate(cfg)
}

// Validate performs minimal validation.
func Validate(cfg Config) error {
	switch cfg.StoreBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of file, sqlite, memory (got %q)", cfg.StoreBackend)
	}
	if cfg.StoreBackend != BackendMemory && cfg.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required for the %s backend", cfg.StoreBackend)
	}
	if cfg.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if cfg.RequestTimeout < cfg.ProviderTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than PROVIDER_TIMEOUT (%s)", cfg.RequestTimeout, cfg.ProviderTimeout)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT must be numeric (got %q)", cfg.Port)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
