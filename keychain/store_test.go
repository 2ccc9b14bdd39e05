package keychain_test

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/keychain"
	"github.com/goliatone/go-welfare-auth/session"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := keychain.New(keyring.NewArrayKeyring(nil))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoToken)

	require.NoError(t, store.Save(ctx, "token-1"))
	require.NoError(t, store.Save(ctx, "token-2"))

	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing an empty slot is fine")

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestStore_EmptyItem(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: keychain.KeyAccessToken}})
	_, err := keychain.New(ring).Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestOpen_FileBackend(t *testing.T) {
	ctx := context.Background()
	cfg := keychain.Config{
		Backends:     []string{string(keyring.FileBackend)},
		FileDir:      t.TempDir(),
		FilePassword: "test-password",
	}

	store, err := keychain.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "persisted"))

	reopened, err := keychain.Open(cfg)
	require.NoError(t, err)

	token, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestStore_BacksSessionManager(t *testing.T) {
	ctx := context.Background()
	store := keychain.New(keyring.NewArrayKeyring(nil))
	require.NoError(t, store.Save(ctx, "stored"))

	profile := auth.Profile{ID: "user-1", Username: "sec", Role: auth.RoleSecretary}
	m := session.NewManager(session.ProfileFetcherFunc(func(_ context.Context, token string) (auth.Profile, error) {
		if token != "stored" {
			return auth.Profile{}, auth.ErrUnauthorized
		}
		return profile, nil
	}), session.WithStore(store), session.WithLogger(nopLogger{}))

	snap, err := m.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAuthenticated, snap.Status)

	require.NoError(t, m.Logout(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoToken)
}
