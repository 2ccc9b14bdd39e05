package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-welfare-auth/middleware/jwtware"
)

type testClaims struct {
	sub string
}

func (c testClaims) Subject() string    { return c.sub }
func (c testClaims) Expires() time.Time { return time.Now().Add(time.Hour) }

type ctxKey struct{}

func staticValidator(valid string) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		if token != valid {
			return nil, errors.New("token is invalid")
		}
		return testClaims{sub: "user-1"}, nil
	})
}

func newApp(t *testing.T, cfg jwtware.Config, handlerRuns *int) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		*handlerRuns++
		claims, ok := c.Locals("user").(jwtware.AuthClaims)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(claims.Subject())
	})
	return app
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	runs := 0
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator("good")}, &runs)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "user-1", string(body))
	assert.Equal(t, 1, runs)
}

func TestJWTWare_RejectsBeforeHandler(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic good"},
		{name: "scheme without token", header: "Bearer "},
		{name: "invalid token", header: "Bearer bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			app := newApp(t, jwtware.Config{TokenValidator: staticValidator("good")}, &runs)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, 0, runs)
		})
	}
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	runs := 0
	app := newApp(t, jwtware.Config{
		TokenValidator: staticValidator("good"),
		TokenLookup:    "header:Authorization,query:token,cookie:access_token",
	}, &runs)

	req := httptest.NewRequest(http.MethodGet, "/protected?token=good", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, runs)
}

func TestJWTWare_FilterFunction(t *testing.T) {
	runs := 0
	app := newApp(t, jwtware.Config{
		TokenValidator: staticValidator("good"),
		Filter: func(c *fiber.Ctx) bool {
			return c.Query("skip") == "1"
		},
		SuccessHandler: func(c *fiber.Ctx) error { return c.Next() },
	}, &runs)

	req := httptest.NewRequest(http.MethodGet, "/protected?skip=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	// filtered requests carry no claims
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 1, runs)
}

func TestJWTWare_ValidationListenerAndEnricher(t *testing.T) {
	var seen string
	app := fiber.New()
	app.Get("/protected", jwtware.New(jwtware.Config{
		TokenValidator: staticValidator("good"),
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, claims jwtware.AuthClaims) error {
				if c.Query("deny") == "1" {
					return errors.New("denied")
				}
				return nil
			},
		},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			return context.WithValue(ctx, ctxKey{}, claims.Subject())
		},
	}), func(c *fiber.Ctx) error {
		seen, _ = c.UserContext().Value(ctxKey{}).(string)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "user-1", seen)

	req = httptest.NewRequest(http.MethodGet, "/protected?deny=1", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTWare_PanicsWithoutValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
