// Package session holds the client side session container. A Manager owns the
// access token and the fetched identity and moves between idle, checking,
// authenticated and unauthenticated.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/observability"
)

// DefaultFetchTimeout bounds a single profile fetch
const DefaultFetchTimeout = 10 * time.Second

// Status is the lifecycle stage of a session
type Status string

const (
	StatusIdle            Status = "idle"
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// ErrFetchTimeout is returned when the profile fetch outlives the timeout
var ErrFetchTimeout = goerrors.New("profile fetch timed out", goerrors.CategoryOperation).
	WithTextCode("PROFILE_FETCH_TIMEOUT")

// ErrInvalidProfile is returned when the fetched profile carries an unknown role
var ErrInvalidProfile = goerrors.New("profile has an unknown role", goerrors.CategoryAuth).
	WithTextCode("INVALID_PROFILE").
	WithCode(goerrors.CodeUnauthorized)

// ErrClosed is returned by a Manager after Close
var ErrClosed = goerrors.New("session manager is closed", goerrors.CategoryOperation).
	WithTextCode("SESSION_CLOSED")

// ProfileFetcher loads the identity bound to a token
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (auth.Profile, error)
}

// ProfileFetcherFunc adapts a function to ProfileFetcher
type ProfileFetcherFunc func(ctx context.Context, token string) (auth.Profile, error)

func (f ProfileFetcherFunc) FetchProfile(ctx context.Context, token string) (auth.Profile, error) {
	return f(ctx, token)
}

// Snapshot is an immutable view of the session
type Snapshot struct {
	Status      Status
	AccessToken string
	Identity    *auth.Profile
	Epoch       uint64
	// Seq grows with every transition; subscribers never see it go backwards
	Seq uint64
}

// Valid reports whether the snapshot holds the invariants of its status
func (s Snapshot) Valid() bool {
	switch s.Status {
	case StatusIdle:
		return s.Identity == nil
	case StatusChecking:
		return s.AccessToken != "" && s.Identity == nil
	case StatusAuthenticated:
		return s.AccessToken != "" && s.Identity != nil && s.Identity.Role.IsValid()
	case StatusUnauthenticated:
		return s.AccessToken == "" && s.Identity == nil
	default:
		return false
	}
}

// Manager is the session container. The zero value is not usable, use NewManager.
type Manager struct {
	mu       sync.Mutex
	status   Status
	token    string
	identity *auth.Profile
	epoch    uint64
	seq      uint64
	closed   bool

	fetcher ProfileFetcher
	store   TokenStore
	timeout time.Duration
	group   singleflight.Group
	logger  auth.Logger

	listeners    map[int]*listener
	nextListener int
}

// listener is a subscriber mailbox. Only the newest undelivered snapshot is
// kept and a single goroutine at a time drains it.
type listener struct {
	fn       func(Snapshot)
	pending  *Snapshot
	queued   uint64
	draining bool
	removed  bool
}

// Option configures a Manager
type Option func(*Manager)

// WithStore sets the token persistence slot
func WithStore(store TokenStore) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithFetchTimeout bounds every profile fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger used for store and fetch failures
func WithLogger(logger auth.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns an idle Manager that resolves tokens through fetcher.
// Tokens live in memory unless WithStore is given.
func NewManager(fetcher ProfileFetcher, opts ...Option) *Manager {
	m := &Manager{
		status:    StatusIdle,
		fetcher:   fetcher,
		store:     NewMemoryStore(""),
		timeout:   DefaultFetchTimeout,
		logger:    auth.DefaultLogger(),
		listeners: map[int]*listener{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Start loads the persisted token. With a token the session moves to checking
// and fetches the profile, without one it becomes unauthenticated.
func (m *Manager) Start(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{Status: StatusIdle}, ErrClosed
	}
	if m.status != StatusIdle {
		m.mu.Unlock()
		return m.Ensure(ctx)
	}
	m.mu.Unlock()

	token, err := m.store.Load(ctx)
	if err != nil && !goerrors.Is(err, ErrNoToken) {
		m.logger.Warn("session token load failed: %v", err)
	}

	m.mu.Lock()
	if m.status != StatusIdle {
		m.mu.Unlock()
		return m.Ensure(ctx)
	}

	if token == "" {
		m.status = StatusUnauthenticated
		snap := m.transitionLocked()
		m.mu.Unlock()
		m.notify(snap)
		return snap, nil
	}

	m.status = StatusChecking
	m.token = token
	snap := m.transitionLocked()
	m.mu.Unlock()
	m.notify(snap)

	return m.Ensure(ctx)
}

// Ensure waits for the in flight profile fetch of the current epoch. Outside
// of checking it returns the current snapshot. Cancelling ctx stops waiting
// but never cancels the fetch.
func (m *Manager) Ensure(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.status != StatusChecking {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	epoch, token := m.epoch, m.token
	m.mu.Unlock()

	ch := m.group.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return m.fetch(epoch, token)
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		return snap, res.Err
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

type fetchResult struct {
	profile auth.Profile
	err     error
}

func (m *Manager) fetch(epoch uint64, token string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		profile, err := m.fetcher.FetchProfile(ctx, token)
		done <- fetchResult{profile: profile, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ErrFetchTimeout
	}

	if res.err == nil && !res.profile.Role.IsValid() {
		res.err = ErrInvalidProfile
	}

	m.mu.Lock()
	if m.epoch != epoch || m.status != StatusChecking {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		observability.ProfileFetchesTotal.WithLabelValues("stale").Inc()
		return snap, nil
	}

	if res.err != nil {
		outcome := "failure"
		if goerrors.Is(res.err, ErrFetchTimeout) {
			outcome = "timeout"
		}
		observability.ProfileFetchesTotal.WithLabelValues(outcome).Inc()
		m.logger.Info("profile fetch failed, session is unauthenticated: %v", res.err)

		m.status = StatusUnauthenticated
		m.token = ""
		m.identity = nil
		if err := m.store.Clear(context.Background()); err != nil {
			m.logger.Warn("session token clear failed: %v", err)
		}
		snap := m.transitionLocked()
		m.mu.Unlock()
		m.notify(snap)
		return snap, res.err
	}

	observability.ProfileFetchesTotal.WithLabelValues("success").Inc()
	profile := res.profile
	m.status = StatusAuthenticated
	m.identity = &profile
	snap := m.transitionLocked()
	m.mu.Unlock()
	m.notify(snap)

	return snap, nil
}

// SignIn installs a freshly issued token and its identity
func (m *Manager) SignIn(ctx context.Context, token string, profile auth.Profile) (Snapshot, error) {
	if token == "" {
		return m.Snapshot(), auth.ValidationFailed("access token is required", nil)
	}
	if !profile.Role.IsValid() {
		return m.Snapshot(), ErrInvalidProfile
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{Status: StatusIdle}, ErrClosed
	}
	m.epoch++
	m.status = StatusAuthenticated
	m.token = token
	m.identity = &profile
	err := m.store.Save(ctx, token)
	snap := m.transitionLocked()
	m.mu.Unlock()
	m.notify(snap)

	if err != nil {
		m.logger.Warn("session token save failed: %v", err)
	}

	return snap, err
}

// Logout drops the token and identity and clears the persistence slot. Any
// fetch still in flight belongs to the previous epoch and is discarded.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.epoch++
	m.status = StatusUnauthenticated
	m.token = ""
	m.identity = nil
	err := m.store.Clear(ctx)
	snap := m.transitionLocked()
	m.mu.Unlock()
	m.notify(snap)

	if err != nil {
		m.logger.Warn("session token clear failed: %v", err)
	}

	return err
}

// Close releases listeners and drops in flight results. The persisted token
// is kept for the next process.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.closed = true
	m.status = StatusIdle
	m.token = ""
	m.identity = nil
	for _, l := range m.listeners {
		l.removed = true
	}
	m.listeners = map[int]*listener{}

	return nil
}

// Snapshot returns the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Identity returns the profile only while authenticated
func (m *Manager) Identity() (auth.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAuthenticated || m.identity == nil {
		return auth.Profile{}, false
	}
	return *m.identity, true
}

// Subscribe registers fn for every transition, the returned func removes it
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListener
	m.nextListener++
	l := &listener{fn: fn, queued: m.seq}
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		l.removed = true
		delete(m.listeners, id)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:      m.status,
		AccessToken: m.token,
		Epoch:       m.epoch,
		Seq:         m.seq,
	}
	if m.status == StatusAuthenticated && m.identity != nil {
		identity := *m.identity
		snap.Identity = &identity
	}
	return snap
}

func (m *Manager) transitionLocked() Snapshot {
	m.seq++
	return m.snapshotLocked()
}

// notify queues snap for every listener that has not seen a newer one.
// A listener already being drained by another call, or by a callback that
// caused this transition, picks it up when its current callback returns.
func (m *Manager) notify(snap Snapshot) {
	m.mu.Lock()
	var drain []*listener
	for _, l := range m.listeners {
		if l.fn == nil || snap.Seq <= l.queued {
			continue
		}
		queued := snap
		l.pending = &queued
		l.queued = snap.Seq
		if !l.draining {
			l.draining = true
			drain = append(drain, l)
		}
	}
	m.mu.Unlock()

	for _, l := range drain {
		m.drain(l)
	}
}

func (m *Manager) drain(l *listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for l.pending != nil && !l.removed {
		snap := *l.pending
		l.pending = nil

		m.mu.Unlock()
		l.fn(snap)
		m.mu.Lock()
	}

	l.pending = nil
	l.draining = false
}
