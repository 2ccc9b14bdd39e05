// Package config loads the gateway and client configuration.
package config

import (
	"time"

	auth "github.com/goliatone/go-welfare-auth"
)

// Config is the root configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Token    TokenConfig    `yaml:"token"`
	Login    LoginConfig    `yaml:"login"`
	Client   ClientConfig   `yaml:"client"`
	Keyring  KeyringConfig  `yaml:"keyring"`
}

// ServerConfig configures the HTTP gateway
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the identity store
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// TokenConfig configures signing and verification
type TokenConfig struct {
	SigningKey     string `yaml:"signing_key"`
	SigningKeyFile string `yaml:"signing_key_file"`
	SigningKeyID   string `yaml:"signing_key_id"`
	// PreviousKeys maps retired key ids to their secrets, still accepted for verification.
	PreviousKeys  map[string]string `yaml:"previous_keys"`
	TTL           time.Duration     `yaml:"ttl"`
	RefreshWindow time.Duration     `yaml:"refresh_window"`
	Issuer        string            `yaml:"issuer"`
	Audience      []string          `yaml:"audience"`
	ContextKey    string            `yaml:"context_key"`
	TokenLookup   string            `yaml:"token_lookup"`
	AuthScheme    string            `yaml:"auth_scheme"`
}

// LoginConfig configures login throttling
type LoginConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	CoolDownPeriod time.Duration `yaml:"cool_down_period"`
}

// ClientConfig configures the CLI client
type ClientConfig struct {
	BaseURL      string        `yaml:"base_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// KeyringConfig configures the token persistence slot
type KeyringConfig struct {
	Service      string   `yaml:"service"`
	Backends     []string `yaml:"backends"`
	FileDir      string   `yaml:"file_dir"`
	FilePassword string   `yaml:"file_password"`
}

// Defaults returns the built in configuration
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "file:welfare-auth.db?cache=shared",
		},
		Token: TokenConfig{
			SigningKeyID:  auth.DefaultSigningKeyID,
			TTL:           auth.DefaultTokenTTL,
			RefreshWindow: auth.DefaultTokenTTL,
			Issuer:        "welfare-auth",
			ContextKey:    auth.DefaultContextKey,
			TokenLookup:   "header:Authorization",
			AuthScheme:    "Bearer",
		},
		Login: LoginConfig{
			MaxAttempts:    auth.DefaultMaxLoginAttempts,
			CoolDownPeriod: auth.DefaultCoolDownPeriod,
		},
		Client: ClientConfig{
			BaseURL:      "http://localhost:8080",
			FetchTimeout: 10 * time.Second,
		},
		Keyring: KeyringConfig{
			Service: "welfare-auth",
		},
	}
}

var _ auth.Config = (*Config)(nil)

func (c *Config) GetSigningKey() string { return c.Token.SigningKey }

func (c *Config) GetSigningKeyID() string { return c.Token.SigningKeyID }

func (c *Config) GetVerificationKeys() map[string]string { return c.Token.PreviousKeys }

func (c *Config) GetTokenTTL() time.Duration { return c.Token.TTL }

func (c *Config) GetRefreshWindow() time.Duration { return c.Token.RefreshWindow }

func (c *Config) GetIssuer() string { return c.Token.Issuer }

func (c *Config) GetAudience() []string { return c.Token.Audience }

func (c *Config) GetContextKey() string { return c.Token.ContextKey }

func (c *Config) GetTokenLookup() string { return c.Token.TokenLookup }

func (c *Config) GetAuthScheme() string { return c.Token.AuthScheme }
