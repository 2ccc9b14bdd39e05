package auth

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

type AuthControllerRoutes struct {
	Login         string
	Profile       string
	CheckUsername string
	Register      string
	Refresh       string
}

type AuthController struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Routes    *AuthControllerRoutes
	Auther    Authenticator
	Guard     *RouteAuthenticator
	Validator *CredentialValidator
	Sink      ActivitySink
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRouteAuthenticator(guard *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sink = sink
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:         "/auth/login",
			Profile:       "/auth/profile",
			CheckUsername: "/auth/check-username",
			Register:      "/auth/register",
			Refresh:       "/auth/refresh",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Validator == nil {
		c.Validator = NewCredentialValidator(c.Repo.Users()).WithLogger(c.Logger)
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the router
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).Name("auth.login")
	app.Get(controller.Routes.Profile, controller.Guard.ProtectedRoute(), controller.ProfileGet).Name("auth.profile")
	app.Get(controller.Routes.CheckUsername, controller.CheckUsernameGet).Name("auth.check-username")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).Name("auth.register")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).Name("auth.refresh")

	return controller
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	AccessToken string  `json:"accessToken"`
	Identity    Profile `json:"identity"`
}

// ProfileResponse wraps the current identity
type ProfileResponse struct {
	Identity Profile `json:"identity"`
}

// AvailabilityResponse answers a username availability check
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// RefreshResponse carries the re-issued token
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// RegistrationResponse is returned once a user is created
type RegistrationResponse struct {
	Identity Profile `json:"identity"`
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	body := map[string]any{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return SendError(c, ValidationFailed("request body must be a JSON object", nil))
	}

	payload, err := ValidateLoginShape(body)
	if err != nil {
		return SendError(c, err)
	}

	debugPayload(a.Logger, a.Debug, "auth login", map[string]string{"username": payload.Username})

	token, identity, err := a.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		if HasTextCode(err, TextCodeTooManyLoginAttempts) {
			return SendError(c, err)
		}
		return SendError(c, ErrUnauthorized)
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		AccessToken: token,
		Identity:    ProfileFromIdentity(identity),
	})
}

func (a *AuthController) ProfileGet(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.Guard.ContextKey())
	if !ok {
		return SendError(c, ErrUnauthorized)
	}

	identity, err := a.Auther.Profile(c.UserContext(), claims)
	if err != nil {
		return SendError(c, ErrUnauthorized)
	}

	return c.JSON(ProfileResponse{Identity: ProfileFromIdentity(identity)})
}

func (a *AuthController) CheckUsernameGet(c *fiber.Ctx) error {
	available, err := a.Validator.CheckUsernameAvailable(c.UserContext(), c.Query("username"))
	if err != nil {
		return SendError(c, err)
	}

	return c.JSON(AvailabilityResponse{Available: available})
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Info("register user parse payload: %v", err)
		return SendError(c, ValidationFailed("failed to parse body", nil))
	}

	debugPayload(a.Logger, a.Debug, "auth register", map[string]string{
		"username":  payload.Username,
		"firstName": payload.FirstName,
		"lastName":  payload.LastName,
	})

	handler := NewRegisterUserHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.Sink)

	user, err := handler.Execute(c.UserContext(), RegisterUserMessage{
		Username:  payload.Username,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Role:      RoleMember,
	})
	if err != nil {
		return SendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RegistrationResponse{
		Identity: ProfileFromIdentity(user.Identity()),
	})
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	raw, err := a.Guard.RawToken(c)
	if err != nil {
		return SendError(c, ErrUnauthorized)
	}

	token, err := a.Auther.Refresh(c.UserContext(), raw)
	if err != nil {
		return SendError(c, ErrUnauthorized)
	}

	return c.JSON(RefreshResponse{AccessToken: token})
}
