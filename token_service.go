package auth

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	// DefaultTokenTTL is used when the configuration does not set one
	DefaultTokenTTL = 30 * time.Minute
	// DefaultSigningKeyID tags tokens signed by the primary key
	DefaultSigningKeyID = "primary"
)

// TokenService issues, verifies and refreshes access tokens
type TokenService interface {
	TokenValidator
	Issue(identity Identity) (string, error)
	Refresh(token string) (string, error)
	Refreshable(token string) (*Claims, error)
	TTL() time.Duration
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey    []byte
	signingKeyID  string
	keys          *keyfunc.JWKS
	ttl           time.Duration
	refreshWindow time.Duration
	issuer        string
	audience      jwt.ClaimStrings
	now           func() time.Time
	logger        Logger
}

// TokenServiceOption customizes the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. Every entry of
// cfg.GetVerificationKeys stays valid for verification, the signing key is
// always added under its own key id.
func NewTokenService(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	kid := cfg.GetSigningKeyID()
	if kid == "" {
		kid = DefaultSigningKeyID
	}

	ttl := cfg.GetTokenTTL()
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	refreshWindow := cfg.GetRefreshWindow()
	if refreshWindow <= 0 {
		refreshWindow = ttl
	}

	givenKeys := make(map[string]keyfunc.GivenKey, len(cfg.GetVerificationKeys())+1)
	for id, key := range cfg.GetVerificationKeys() {
		if id == "" || key == "" {
			continue
		}
		givenKeys[id] = hmacKey([]byte(key))
	}
	givenKeys[kid] = hmacKey([]byte(cfg.GetSigningKey()))

	var aud jwt.ClaimStrings
	if len(cfg.GetAudience()) > 0 {
		aud = append(aud, cfg.GetAudience()...)
	}

	ts := &TokenServiceImpl{
		signingKey:    []byte(cfg.GetSigningKey()),
		signingKeyID:  kid,
		keys:          keyfunc.NewGiven(givenKeys),
		ttl:           ttl,
		refreshWindow: refreshWindow,
		issuer:        cfg.GetIssuer(),
		audience:      aud,
		now:           time.Now,
		logger:        defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

func hmacKey(key []byte) keyfunc.GivenKey {
	return keyfunc.NewGivenCustom(key, keyfunc.GivenKeyOptions{
		Algorithm: jwt.SigningMethodHS256.Alg(),
	})
}

// TTL returns the lifetime of issued tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for the identity, expiring after the configured TTL
func (ts *TokenServiceImpl) Issue(identity Identity) (string, error) {
	if identity == nil || identity.ID() == "" {
		return "", errors.New("identity is required", errors.CategoryBadInput)
	}

	if !identity.Role().IsValid() {
		return "", errors.New("cannot issue token for unknown role", errors.CategoryBadInput).
			WithMetadata(map[string]any{"role": string(identity.Role())})
	}

	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.signClaims(claims)
}

func (ts *TokenServiceImpl) signClaims(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.signingKeyID

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// Failures are ErrTokenMalformed, ErrTokenExpired or ErrTokenInvalid clones.
func (ts *TokenServiceImpl) Verify(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keys.Keyfunc, parserOptions...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, tokenError(ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, tokenError(ErrTokenExpired, err)
		default:
			ts.logger.Debug("token verification failed: %v", err)
			return nil, tokenError(ErrTokenInvalid, err)
		}
	}

	if !token.Valid {
		return nil, ErrTokenInvalid.Clone()
	}

	if claims.Subject() == "" {
		return nil, tokenError(ErrTokenInvalid, errors.New("missing subject", errors.CategoryAuth))
	}

	if !claims.UserRole.IsValid() {
		ts.logger.Warn("token carries unknown role %q for subject %s", claims.UserRole, claims.Subject())
		return nil, tokenError(ErrTokenInvalid, errors.New("unknown role", errors.CategoryAuth))
	}

	return claims, nil
}

// Refresh re-issues a token for a valid token issued within the refresh window
func (ts *TokenServiceImpl) Refresh(tokenString string) (string, error) {
	claims, err := ts.Refreshable(tokenString)
	if err != nil {
		return "", err
	}

	return ts.Issue(claimsIdentity{claims: claims})
}

// Refreshable verifies the token and checks it was issued inside the refresh window
func (ts *TokenServiceImpl) Refreshable(tokenString string) (*Claims, error) {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	if ts.now().Sub(claims.IssuedAt()) > ts.refreshWindow {
		return nil, ErrTokenExpired.Clone()
	}

	return claims, nil
}
