package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "WELFARE_AUTH_"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WELFARE_AUTH_CONFIG env, ./welfare-auth.yaml)
//  3. WELFARE_AUTH_* environment variables
//  4. File reference resolution (signing_key_file)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat("welfare-auth.yaml"); err == nil {
		return "welfare-auth.yaml"
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"ADDR":             &cfg.Server.Address,
		"DSN":              &cfg.Database.DSN,
		"SIGNING_KEY":      &cfg.Token.SigningKey,
		"SIGNING_KEY_FILE": &cfg.Token.SigningKeyFile,
		"SIGNING_KEY_ID":   &cfg.Token.SigningKeyID,
		"ISSUER":           &cfg.Token.Issuer,
		"BASE_URL":         &cfg.Client.BaseURL,
		"KEYRING_SERVICE":  &cfg.Keyring.Service,
		"KEYRING_DIR":      &cfg.Keyring.FileDir,
		"KEYRING_PASSWORD": &cfg.Keyring.FilePassword,
	}
	for name, field := range str {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*field = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":      &cfg.Token.TTL,
		"REFRESH_WINDOW": &cfg.Token.RefreshWindow,
		"COOL_DOWN":      &cfg.Login.CoolDownPeriod,
		"FETCH_TIMEOUT":  &cfg.Client.FetchTimeout,
	}
	for name, field := range durations {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*field = d
		}
	}

	if v := os.Getenv(EnvPrefix + "MAX_LOGIN_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_LOGIN_ATTEMPTS: %w", EnvPrefix, err)
		}
		cfg.Login.MaxAttempts = n
	}

	if v := os.Getenv(EnvPrefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", EnvPrefix, err)
		}
		cfg.Server.Debug = b
	}

	if v := os.Getenv(EnvPrefix + "KEYRING_BACKENDS"); v != "" {
		cfg.Keyring.Backends = splitList(v)
	}

	if v := os.Getenv(EnvPrefix + "AUDIENCE"); v != "" {
		cfg.Token.Audience = splitList(v)
	}

	return nil
}

func resolveFileReferences(cfg *Config) error {
	if cfg.Token.SigningKeyFile != "" && cfg.Token.SigningKey == "" {
		data, err := os.ReadFile(cfg.Token.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("token.signing_key_file: %w", err)
		}
		cfg.Token.SigningKey = strings.TrimSpace(string(data))
	}
	return nil
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
