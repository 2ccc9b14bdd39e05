package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 64
	PasswordMinLength = 8
	PasswordMaxLength = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate checks both fields are present
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ValidateLoginShape turns a decoded JSON body into a LoginRequest. Missing,
// empty or non string fields fail with a validation error.
func ValidateLoginShape(input map[string]any) (LoginRequest, error) {
	fields := map[string]string{}
	req := LoginRequest{}

	for _, name := range []string{"username", "password"} {
		raw, ok := input[name]
		if !ok || raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			fields[name] = "must be a string"
			continue
		}
		switch name {
		case "username":
			req.Username = value
		case "password":
			req.Password = value
		}
	}

	if err := req.Validate(); err != nil {
		for k, v := range FormatValidationErrorToMap(err) {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}

	if len(fields) > 0 {
		return LoginRequest{}, ValidationFailed("invalid login payload", fields)
	}

	return req, nil
}

func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(UsernameMinLength, UsernameMaxLength),
		validation.Match(usernamePattern).Error("may only contain letters, digits and underscores"),
	}
}

// ValidateUsername checks the username length and character set
func ValidateUsername(candidate string) error {
	if err := validation.Validate(candidate, usernameRules()...); err != nil {
		return ValidationFailed("invalid username", map[string]string{"username": err.Error()})
	}
	return nil
}

// UsernameLookup reports whether a username is already registered
type UsernameLookup interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// CredentialValidator answers advisory availability checks. Registration
// re-checks inside its own transaction.
type CredentialValidator struct {
	lookup UsernameLookup
	logger Logger
}

func NewCredentialValidator(lookup UsernameLookup) *CredentialValidator {
	return &CredentialValidator{
		lookup: lookup,
		logger: defLogger{},
	}
}

func (v *CredentialValidator) WithLogger(logger Logger) *CredentialValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// CheckUsernameAvailable validates the candidate and queries the identity store
func (v *CredentialValidator) CheckUsernameAvailable(ctx context.Context, candidate string) (bool, error) {
	if err := ValidateUsername(candidate); err != nil {
		return false, err
	}

	exists, err := v.lookup.UsernameExists(ctx, candidate)
	if err != nil {
		v.logger.Error("username lookup failed: %v", err)
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username")
	}

	return !exists, nil
}

// RegistrationPayload is the self service sign up body
type RegistrationPayload struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Validate will validate the payload
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, usernameRules()...),
		validation.Field(&r.Password, validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(validPhoneNumber)),
	)
}

// DefaultPhoneRegion is used to parse numbers without an international prefix
var DefaultPhoneRegion = ""

// NormalizePhone parses the number and formats it as E.164
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("is not a valid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := NormalizePhone(s); err != nil {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into field messages
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, fieldErr := range verrs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	if fields := FieldErrors(err); len(fields) > 0 {
		return fields
	}

	out["_"] = err.Error()
	return out
}
