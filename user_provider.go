package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	// DefaultMaxLoginAttempts is the number of failed attempts allowed in a cool down period
	DefaultMaxLoginAttempts = 5
	// DefaultCoolDownPeriod is how long a throttled user has to wait
	DefaultCoolDownPeriod = 15 * time.Minute
)

// UserTracker is a store we can use to retrieve users
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store            UserTracker
	Validator        func(*User) error
	logger           Logger
	maxLoginAttempts int
	coolDownPeriod   time.Duration
	now              func() time.Time
}

// UserProviderOption configures a UserProvider
type UserProviderOption func(*UserProvider)

// WithMaxLoginAttempts sets how many failures are allowed before throttling
func WithMaxLoginAttempts(n int) UserProviderOption {
	return func(u *UserProvider) {
		if n > 0 {
			u.maxLoginAttempts = n
		}
	}
}

// WithCoolDownPeriod sets how long failures are remembered
func WithCoolDownPeriod(d time.Duration) UserProviderOption {
	return func(u *UserProvider) {
		if d > 0 {
			u.coolDownPeriod = d
		}
	}
}

// WithProviderClock injects a custom clock
func WithProviderClock(clock func() time.Time) UserProviderOption {
	return func(u *UserProvider) {
		if clock != nil {
			u.now = clock
		}
	}
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker, opts ...UserProviderOption) *UserProvider {
	u := &UserProvider{
		store:            store,
		logger:           defLogger{},
		Validator:        defaultValidator,
		maxLoginAttempts: DefaultMaxLoginAttempts,
		coolDownPeriod:   DefaultCoolDownPeriod,
		now:              time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}

	return u
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// Unknown usernames and wrong passwords fail with the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, username, password string) (Identity, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.LoginAttemptAt != nil && IsOutsideThresholdPeriod(u.now(), *user.LoginAttemptAt, u.coolDownPeriod) {
		user.LoginAttempts = 0
	}

	if user.LoginAttempts >= u.maxLoginAttempts {
		u.logger.Warn("login throttled for user %s", user.ID)
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.store.TrackSucccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login: %v", err)
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return user.Identity(), nil
}

// FindIdentityByIdentifier loads the identity by id, email or username
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound.Clone()
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve identity")
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return user.Identity(), nil
}

var _ IdentityProvider = (*UserProvider)(nil)

func defaultValidator(u *User) error {
	if u == nil {
		return ErrIdentityNotFound.Clone()
	}

	if !u.Role.IsValid() {
		return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"role": string(u.Role), "user_id": u.ID.String()})
	}

	return nil
}
