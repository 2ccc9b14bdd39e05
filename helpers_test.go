package auth_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/gateway"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type testConfig struct {
	signingKey    string
	signingKeyID  string
	previousKeys  map[string]string
	ttl           time.Duration
	refreshWindow time.Duration
	issuer        string
	audience      []string
	tokenLookup   string
	authScheme    string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey: testSigningKey,
		ttl:        30 * time.Minute,
		issuer:     "welfare-auth-test",
	}
}

func (c *testConfig) GetSigningKey() string                  { return c.signingKey }
func (c *testConfig) GetSigningKeyID() string                { return c.signingKeyID }
func (c *testConfig) GetVerificationKeys() map[string]string { return c.previousKeys }
func (c *testConfig) GetTokenTTL() time.Duration             { return c.ttl }
func (c *testConfig) GetRefreshWindow() time.Duration        { return c.refreshWindow }
func (c *testConfig) GetIssuer() string                      { return c.issuer }
func (c *testConfig) GetAudience() []string                  { return c.audience }
func (c *testConfig) GetContextKey() string                  { return "" }
func (c *testConfig) GetTokenLookup() string                 { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string                  { return c.authScheme }

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() auth.Role {
	args := m.Called()
	return args.Get(0).(auth.Role)
}

func (m *MockIdentity) FirstName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) LastName() string {
	args := m.Called()
	return args.String(0)
}

type staticIdentity struct {
	id       string
	username string
	role     auth.Role
}

func (s staticIdentity) ID() string        { return s.id }
func (s staticIdentity) Username() string  { return s.username }
func (s staticIdentity) Role() auth.Role   { return s.role }
func (s staticIdentity) FirstName() string { return "Jane" }
func (s staticIdentity) LastName() string  { return "Doe" }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// clock is a manually advanced time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := gateway.OpenDB("file:" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

func seedUser(t *testing.T, repo auth.RepositoryManager, username, password string, role auth.Role) *auth.User {
	t.Helper()

	user, err := auth.NewRegisterUserHandler(repo).
		WithLogger(nopLogger{}).
		Execute(context.Background(), auth.RegisterUserMessage{
			Username:  username,
			Password:  password,
			FirstName: "Jane",
			LastName:  "Doe",
			Role:      role,
		})
	require.NoError(t, err)
	return user
}
