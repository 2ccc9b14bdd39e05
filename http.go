package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-welfare-auth/middleware/jwtware"
	"github.com/goliatone/go-welfare-auth/observability"
)

// DefaultContextKey is the locals key the guard stores claims under
const DefaultContextKey = "user"

// RouteAuthenticator builds the guard and role check handlers for protected routes
type RouteAuthenticator struct {
	validator  TokenValidator
	cfg        Config
	contextKey string
	Logger     Logger
	Debug      bool
}

func NewHTTPAuthenticator(validator TokenValidator, cfg Config) *RouteAuthenticator {
	key := cfg.GetContextKey()
	if key == "" {
		key = DefaultContextKey
	}

	return &RouteAuthenticator{
		validator:  validator,
		cfg:        cfg,
		contextKey: key,
		Logger:     defLogger{},
	}
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ContextKey returns the locals key holding verified claims
func (a *RouteAuthenticator) ContextKey() string {
	return a.contextKey
}

// ProtectedRoute verifies the bearer token and stores the claims in the
// request locals and user context. Any failure yields a uniform 401.
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenValidator: jwtwareValidator{validator: a.validator},
		ContextKey:     a.contextKey,
		TokenLookup:    a.cfg.GetTokenLookup(),
		AuthScheme:     a.cfg.GetAuthScheme(),
		ErrorHandler:   a.unauthorizedHandler,
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if c, ok := claims.(*Claims); ok {
				return WithClaimsContext(ctx, c)
			}
			return ctx
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			observability.GuardDecisionsTotal.WithLabelValues("allowed", "").Inc()
			return c.Next()
		},
	})
}

// RawToken extracts the token the way the guard does, without verifying it
func (a *RouteAuthenticator) RawToken(c *fiber.Ctx) (string, error) {
	lookup := a.cfg.GetTokenLookup()
	if lookup == "" {
		lookup = "header:" + fiber.HeaderAuthorization
	}
	return jwtware.ExtractRawToken(c, jwtware.GetExtractors(lookup, a.cfg.GetAuthScheme()))
}

// RequireRoles rejects verified requests whose role is outside roles with 403.
// It must run after ProtectedRoute.
func (a *RouteAuthenticator) RequireRoles(roles ...Role) fiber.Handler {
	allowed := NewRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		claims, ok := GetFiberClaims(c, a.contextKey)
		if !ok {
			return a.unauthorizedHandler(c, ErrUnauthorized)
		}

		if !claims.HasRole(allowed) {
			a.Logger.Info("role %q denied on %s", claims.Role(), c.Path())
			observability.GuardDecisionsTotal.WithLabelValues("forbidden", string(claims.Role())).Inc()
			return SendError(c, ErrForbidden)
		}

		return c.Next()
	}
}

// Protect returns the guard followed by the role check, ready to be spread
// in front of a handler.
func (a *RouteAuthenticator) Protect(roles ...Role) []fiber.Handler {
	return []fiber.Handler{a.ProtectedRoute(), a.RequireRoles(roles...)}
}

func (a *RouteAuthenticator) unauthorizedHandler(c *fiber.Ctx, err error) error {
	reason := "invalid"
	switch {
	case err == jwtware.ErrJWTMissingOrMalformed:
		reason = "missing"
	case IsTokenExpiredError(err):
		reason = "expired"
	case IsMalformedError(err):
		reason = "malformed"
	}

	a.Logger.Info("guard rejected %s %s: %s", c.Method(), c.Path(), reason)
	observability.GuardDecisionsTotal.WithLabelValues("unauthorized", reason).Inc()

	return SendError(c, ErrUnauthorized)
}

type errorPayload struct {
	TextCode string            `json:"text_code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// ErrorResponse is the JSON body of every failed auth request
type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

// SendError renders err, auth failures collapse into ErrUnauthorized so no
// verification detail reaches the client.
func SendError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		richErr = ErrUnauthorized
	case errors.CategoryAuthz:
		richErr = ErrForbidden
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := errorPayload{
		TextCode: richErr.TextCode,
		Message:  richErr.Message,
		Fields:   FieldErrors(richErr),
	}

	if status >= http.StatusInternalServerError {
		payload.TextCode = "INTERNAL_ERROR"
		payload.Message = "internal server error"
		payload.Fields = nil
	}

	return c.Status(status).JSON(ErrorResponse{Error: payload})
}

func debugPayload(logger Logger, debug bool, label string, v any) {
	if !debug {
		return
	}
	logger.Debug("%s: %s", label, print.MaybePrettyJSON(v))
}
