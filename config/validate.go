package config

import (
	"errors"
	"fmt"
	"net/url"
)

// MinSigningKeyLength is the shortest HS256 secret the gateway accepts
const MinSigningKeyLength = 32

// Validate checks the settings shared by the gateway and the client
func (c *Config) Validate() error {
	var errs []error

	if c.Token.TTL <= 0 {
		errs = append(errs, fmt.Errorf("token.ttl must be > 0, got %s", c.Token.TTL))
	}

	if c.Token.RefreshWindow < 0 {
		errs = append(errs, fmt.Errorf("token.refresh_window must be >= 0, got %s", c.Token.RefreshWindow))
	}

	if c.Login.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("login.max_attempts must be > 0, got %d", c.Login.MaxAttempts))
	}

	if c.Login.CoolDownPeriod <= 0 {
		errs = append(errs, fmt.Errorf("login.cool_down_period must be > 0, got %s", c.Login.CoolDownPeriod))
	}

	if c.Client.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("client.fetch_timeout must be > 0, got %s", c.Client.FetchTimeout))
	}

	if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.base_url must be an absolute URL, got %q", c.Client.BaseURL))
	}

	for id, key := range c.Token.PreviousKeys {
		if id == c.Token.SigningKeyID {
			errs = append(errs, fmt.Errorf("token.previous_keys[%s] reuses the signing key id", id))
		}
		if len(key) < MinSigningKeyLength {
			errs = append(errs, fmt.Errorf("token.previous_keys[%s] must be at least %d bytes", id, MinSigningKeyLength))
		}
	}

	return errors.Join(errs...)
}

// ValidateServer adds the checks only the gateway needs
func (c *Config) ValidateServer() error {
	var errs []error

	if len(c.Token.SigningKey) < MinSigningKeyLength {
		errs = append(errs, fmt.Errorf("token.signing_key must be at least %d bytes", MinSigningKeyLength))
	}

	if c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn is required"))
	}

	if c.Server.Address == "" {
		errs = append(errs, fmt.Errorf("server.address is required"))
	}

	return errors.Join(errs...)
}
