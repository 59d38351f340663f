package config

import (
	"os"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/joho/godotenv"
	"github.com/nrednav/cuid2"
)

type Config struct {
	StateDir              string `json:"state_dir"`
	Emulator              string `json:"emulator"`
	Privileged            bool   `json:"privileged"`
	MachinesDir           string `json:"machines_dir"`
	ThreadRefreshInterval string `json:"thread_refresh_interval"`
	MaxDomainMemory       string `json:"max_domain_memory"`
	Version               string `json:"version"`
	Env                   string `json:"env"`

	OtelEnabled           bool   `json:"otel_enabled"`
	OtelEndpoint          string `json:"otel_endpoint"`
	OtelServiceName       string `json:"otel_service_name"`
	OtelServiceInstanceID string `json:"otel_service_instance_id"`
	OtelInsecure          bool   `json:"otel_insecure"`
}

// Load loads configuration from environment variables, then applies an
// optional YAML overlay named by CONFIG_FILE. Automatically loads a .env
// file if present.
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		StateDir:              getEnv("STATE_DIR", "/var/lib/chdriver"),
		Emulator:              getEnv("EMULATOR", ""),
		Privileged:            getEnvBool("PRIVILEGED", os.Geteuid() == 0),
		MachinesDir:           getEnv("MACHINES_DIR", "/run/systemd/machines"),
		ThreadRefreshInterval: getEnv("THREAD_REFRESH_INTERVAL", "30s"),
		MaxDomainMemory:       getEnv("MAX_DOMAIN_MEMORY", "256GB"),
		Version:               getEnv("VERSION", "dev"),
		Env:                   getEnv("ENV", "development"),
		OtelEnabled:           getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:          getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:       getEnv("OTEL_SERVICE_NAME", "chdriverd"),
		OtelServiceInstanceID: getEnv("OTEL_SERVICE_INSTANCE_ID", cuid2.Generate()),
		OtelInsecure:          getEnvBool("OTEL_INSECURE", true),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		applyOverlay(cfg, path)
	}

	return cfg
}

// applyOverlay merges a YAML config file over the env-derived values.
// A missing or malformed file leaves the config untouched.
func applyOverlay(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = yaml.Unmarshal(data, cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
