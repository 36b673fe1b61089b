package config

import (
	"strings"
)

type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Extract ExtractConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
	AuthToken  string
}

type CacheConfig struct {
	// Backend selects the cache implementation: "sqlite", "memory" or
	// "off".
	Backend    string
	Dir        string
	MaxEntries int
}

type ExtractConfig struct {
	Concurrency int
	// Timeout bounds a single extractor run, as a duration string
	// ("30s", "500ms"). Empty disables the per-extractor deadline.
	Timeout         string
	MaxContentBytes int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       8000,
			MCPEnabled: true,
		},
		Cache: CacheConfig{
			Backend:    "sqlite",
			Dir:        defaultDataDir(),
			MaxEntries: 10000,
		},
		Extract: ExtractConfig{
			Concurrency:     4,
			Timeout:         "30s",
			MaxContentBytes: 1 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.archivum.app) and the
// auth token falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/archivum/config.json
// and the token falls back to the secrets file in the data dir.
//
// Environment variables (ARCHIVUM_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The API stays open unless a token is configured somewhere.
	if cfg.Server.AuthToken == "" {
		if token, err := kc.Get("archivum", "auth_token"); err == nil && token != "" {
			cfg.Server.AuthToken = token
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
