package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      Role   `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate re-checks the message regardless of what the caller did
func (e RegisterUserMessage) Validate() error {
	payload := RegistrationPayload{
		Username:  e.Username,
		Password:  e.Password,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Email:     e.Email,
		Phone:     e.Phone,
	}

	fields := map[string]string{}
	if err := payload.Validate(); err != nil {
		fields = FormatValidationErrorToMap(err)
	}

	if e.Role != "" && !e.Role.IsValid() {
		fields["role"] = "must be one of the known roles"
	}

	if len(fields) > 0 {
		return ValidationFailed("invalid registration payload", fields)
	}

	return nil
}

type RegisterUserHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute registers the user and returns the stored record
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	phone, err := NormalizePhone(event.Phone)
	if err != nil {
		return nil, ValidationFailed("invalid registration payload", map[string]string{
			"phone": "must be a valid phone number",
		})
	}

	user := &User{
		Username:     event.Username,
		PasswordHash: hash,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Email:        event.Email,
		Phone:        phone,
		Role:         event.Role,
	}

	if event.UseHashid {
		id, err := hashid.NewUUID(event.Username)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id")
		}
		user.ID = id
	}

	record, err := h.repo.Users().Register(ctx, user)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		h.logger.Error("user registration failed: %v", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if err := h.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserRegistered,
		UserID:     record.ID.String(),
		Username:   record.Username,
		Role:       record.Role,
		OccurredAt: time.Now(),
	}); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}

	return record, nil
}
