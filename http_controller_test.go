package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/gateway"
)

type apiFixture struct {
	gw   *gateway.Gateway
	clk  *clock
	sink *recordingSink
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWithConfig(t, newTestConfig())
}

func newAPIFixtureWithConfig(t *testing.T, cfg *testConfig) *apiFixture {
	t.Helper()

	f := &apiFixture{clk: newClock(), sink: &recordingSink{}}
	gw, err := gateway.New(context.Background(), cfg, newTestDB(t), gateway.Options{
		Logger:           nopLogger{},
		MaxLoginAttempts: 3,
		CoolDownPeriod:   10 * time.Minute,
		ActivitySink:     f.sink,
		Registry:         prometheus.NewRegistry(),
		Clock:            f.clk.Now,
	})
	require.NoError(t, err)
	f.gw = gw

	seedUser(t, gw.Repo, "jdoe", "correct-horse", auth.RoleMember)
	seedUser(t, gw.Repo, "treasurer1", "correct-horse", auth.RoleTreasurer)

	return f
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.gw.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (f *apiFixture) login(t *testing.T, username, password string) auth.LoginResponse {
	t.Helper()
	status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var out auth.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAuthController_Login(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("success", func(t *testing.T) {
		res := f.login(t, "jdoe", "correct-horse")
		assert.NotEmpty(t, res.AccessToken)
		assert.Equal(t, "jdoe", res.Identity.Username)
		assert.Equal(t, auth.RoleMember, res.Identity.Role)
		assert.Equal(t, "Jane", res.Identity.FirstName)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		status, wrong := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "jdoe", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)

		status, unknown := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "ghost", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.JSONEq(t, string(wrong), string(unknown))
	})

	t.Run("bad shapes", func(t *testing.T) {
		status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]any{"username": "jdoe"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, decodeErrorBody(t, body).Error.Fields, "password")

		status, body = f.request(t, http.MethodPost, "/auth/login", "", map[string]any{"username": 1, "password": "x"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "must be a string", decodeErrorBody(t, body).Error.Fields["username"])

		status, _ = f.request(t, http.MethodPost, "/auth/login", "", "not json")
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestAuthController_LoginThrottling(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		status, _ := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "jdoe", "password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, status)
	}

	status, body := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "jdoe", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, auth.TextCodeTooManyLoginAttempts, decodeErrorBody(t, body).Error.TextCode)
	assert.Contains(t, f.sink.Types(), auth.ActivityEventLoginThrottled)

	f.clk.Advance(11 * time.Minute)

	status, _ = f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "jdoe", "password": "typo",
	})
	require.Equal(t, http.StatusUnauthorized, status, "one failure in a fresh window is not a lockout")

	res := f.login(t, "jdoe", "correct-horse")
	assert.NotEmpty(t, res.AccessToken)
}

func TestAuthController_Profile(t *testing.T) {
	f := newAPIFixture(t)
	res := f.login(t, "treasurer1", "correct-horse")

	status, body := f.request(t, http.MethodGet, "/auth/profile", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var profile auth.ProfileResponse
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, res.Identity, profile.Identity)

	status, _ = f.request(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	f.clk.Advance(31 * time.Minute)
	status, _ = f.request(t, http.MethodGet, "/auth/profile", res.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthController_CheckUsername(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		username  string
		status    int
		available bool
	}{
		{"jdoe", http.StatusOK, false},
		{"asmith", http.StatusOK, true},
		{"ab", http.StatusBadRequest, false},
		{"john%20doe", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			status, body := f.request(t, http.MethodGet, "/auth/check-username?username="+tt.username, "", nil)
			require.Equal(t, tt.status, status, string(body))

			if status != http.StatusOK {
				assert.Contains(t, decodeErrorBody(t, body).Error.Fields, "username")
				return
			}

			var out auth.AvailabilityResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tt.available, out.Available)
		})
	}
}

func TestAuthController_Register(t *testing.T) {
	f := newAPIFixture(t)

	payload := auth.RegistrationPayload{
		Username:  "asmith",
		Password:  "another-horse",
		FirstName: "Alex",
		LastName:  "Smith",
		Phone:     "+1 650-253-0000",
	}

	status, body := f.request(t, http.MethodPost, "/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created auth.RegistrationResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "asmith", created.Identity.Username)
	assert.Equal(t, auth.RoleMember, created.Identity.Role)
	assert.Contains(t, f.sink.Types(), auth.ActivityEventUserRegistered)

	stored, err := f.gw.Repo.Users().GetByIdentifier(context.Background(), "asmith")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", stored.Phone)
	assert.NotEqual(t, payload.Password, stored.PasswordHash)

	status, body = f.request(t, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, decodeErrorBody(t, body).Error.Fields, "username")

	payload.Username = "a b"
	status, _ = f.request(t, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, status)

	res := f.login(t, "asmith", "another-horse")
	assert.Equal(t, auth.RoleMember, res.Identity.Role)
}

func TestAuthController_Refresh(t *testing.T) {
	f := newAPIFixture(t)
	res := f.login(t, "jdoe", "correct-horse")

	f.clk.Advance(5 * time.Minute)
	status, body := f.request(t, http.MethodPost, "/auth/refresh", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var refreshed auth.RefreshResponse
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.NotEqual(t, res.AccessToken, refreshed.AccessToken)

	claims, err := f.gw.Tokens.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.Expires().Equal(f.clk.Now().Add(30*time.Minute)))

	status, _ = f.request(t, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.request(t, http.MethodPost, "/auth/refresh", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthController_RefreshHonoursTokenLookup(t *testing.T) {
	cfg := newTestConfig()
	cfg.tokenLookup = "header:Authorization,query:auth_token"
	cfg.authScheme = "Token"
	f := newAPIFixtureWithConfig(t, cfg)
	res := f.login(t, "jdoe", "correct-horse")

	refresh := func(target, authorization string) int {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := f.gw.App.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, refresh("/auth/refresh", "Token "+res.AccessToken))
	assert.Equal(t, http.StatusOK, refresh("/auth/refresh?auth_token="+res.AccessToken, ""))
	assert.Equal(t, http.StatusUnauthorized, refresh("/auth/refresh", "Bearer "+res.AccessToken),
		"the configured scheme replaces Bearer")
}
