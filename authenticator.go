package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-welfare-auth/observability"
)

type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: NewTokenService(opts),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService replaces the token service built from the config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues an access token
func (s *Auther) Login(ctx context.Context, username, password string) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, username, password)
	if err != nil {
		outcome, event := "error", ActivityEventLoginFailure
		switch {
		case HasTextCode(err, TextCodeInvalidCredentials):
			outcome = "invalid_credentials"
		case HasTextCode(err, TextCodeTooManyLoginAttempts):
			outcome, event = "throttled", ActivityEventLoginThrottled
		}

		s.logger.Info("login failed for %q: %s", username, outcome)
		observability.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
		s.emitAuthEvent(ctx, event, nil, map[string]any{
			"username": username,
			"error":    err.Error(),
		})
		return "", nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("login identity is nil or zero value")
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", nil, ErrIdentityNotFound
	}

	token, err := s.tokenService.Issue(identity)
	if err != nil {
		s.logger.Error("login failed to issue token: %v", err)
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity, map[string]any{
			"username": username,
			"error":    err.Error(),
		})
		return "", nil, err
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	observability.TokensIssuedTotal.WithLabelValues("login").Inc()
	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity, nil)

	return token, identity, nil
}

// Profile loads the current identity behind verified claims
func (s *Auther) Profile(ctx context.Context, claims *Claims) (Identity, error) {
	if claims == nil || claims.Subject() == "" {
		return nil, ErrUnauthorized
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		s.logger.Error("profile lookup for %s failed: %v", claims.Subject(), err)
		return nil, err
	}

	return identity, nil
}

// Refresh re-issues a token carrying the identity's current role
func (s *Auther) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := s.tokenService.Refreshable(token)
	if err != nil {
		return "", err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		s.logger.Warn("refresh rejected for %s: %v", claims.Subject(), err)
		return "", ErrUnauthorized
	}

	next, err := s.tokenService.Issue(identity)
	if err != nil {
		return "", err
	}

	observability.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, identity, nil)

	return next, nil
}

var _ Authenticator = (*Auther)(nil)

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, identity Identity, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if identity != nil {
		event.UserID = identity.ID()
		event.Username = identity.Username()
		event.Role = identity.Role()
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
