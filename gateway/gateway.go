// Package gateway assembles the fiber application: auth endpoints, the
// role protected API views and the metrics endpoint.
package gateway

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/observability"
	"github.com/goliatone/go-welfare-auth/routing"
)

// Options tune the gateway beyond auth.Config
type Options struct {
	Logger           auth.Logger
	Debug            bool
	MaxLoginAttempts int
	CoolDownPeriod   time.Duration
	ActivitySink     auth.ActivitySink
	Registry         *prometheus.Registry
	Routes           map[string]routing.RoutePolicy
	Clock            func() time.Time
}

// Gateway holds the assembled application and its collaborators
type Gateway struct {
	App          *fiber.App
	Repo         auth.RepositoryManager
	Tokens       *auth.TokenServiceImpl
	Auther       *auth.Auther
	Guard        *auth.RouteAuthenticator
	Registry     *prometheus.Registry
	RouteTable   *routing.Table
	logger       auth.Logger
	activitySink auth.ActivitySink
}

// OpenDB opens a sqlite database through bun
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// New builds the gateway on db, creating the users table when missing
func New(ctx context.Context, cfg auth.Config, db *bun.DB, opts Options) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	routes := opts.Routes
	if routes == nil {
		routes = routing.DefaultRoutes()
	}

	table, err := routing.NewTable(routing.NewRouter(), routes)
	if err != nil {
		return nil, err
	}

	if err := auth.CreateSchema(ctx, db); err != nil {
		return nil, err
	}

	var usersOpts []auth.UsersOption
	providerOpts := []auth.UserProviderOption{
		auth.WithMaxLoginAttempts(opts.MaxLoginAttempts),
		auth.WithCoolDownPeriod(opts.CoolDownPeriod),
	}
	tokenOpts := []auth.TokenServiceOption{auth.WithTokenLogger(logger)}
	if opts.Clock != nil {
		usersOpts = append(usersOpts, auth.WithUsersClock(opts.Clock))
		providerOpts = append(providerOpts, auth.WithProviderClock(opts.Clock))
		tokenOpts = append(tokenOpts, auth.WithTokenClock(opts.Clock))
	}

	repo := auth.NewRepositoryManager(db, usersOpts...)
	provider := auth.NewUserProvider(repo.Users(), providerOpts...).WithLogger(logger)
	tokens := auth.NewTokenService(cfg, tokenOpts...)

	auther := auth.NewAuthenticator(provider, cfg).
		WithLogger(logger).
		WithTokenService(tokens).
		WithActivitySink(opts.ActivitySink)

	guard := auth.NewHTTPAuthenticator(tokens, cfg).WithLogger(logger)

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if err := observability.Register(registry); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	auth.RegisterAuthRoutes(app,
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(opts.Debug),
		auth.WithRepositoryManager(repo),
		auth.WithAuthenticator(auther),
		auth.WithRouteAuthenticator(guard),
		auth.WithControllerActivitySink(opts.ActivitySink),
	)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	g := &Gateway{
		App:          app,
		Repo:         repo,
		Tokens:       tokens,
		Auther:       auther,
		Guard:        guard,
		Registry:     registry,
		RouteTable:   table,
		logger:       logger,
		activitySink: opts.ActivitySink,
	}

	g.mountViews()

	return g, nil
}

// ViewResponse is returned by a role protected API view
type ViewResponse struct {
	View    string    `json:"view"`
	Subject string    `json:"subject"`
	Role    auth.Role `json:"role"`
}

// mountViews exposes every declared view under /api behind the guard and
// the role layer of its policy.
func (g *Gateway) mountViews() {
	api := g.App.Group("/api")
	for _, path := range g.RouteTable.Paths() {
		policy, _ := g.RouteTable.Policy(path)
		view := path

		handlers := g.Guard.Protect(policy.AllowedRoles.Roles()...)
		handlers = append(handlers, func(c *fiber.Ctx) error {
			claims, _ := auth.GetClaims(c.UserContext())
			return c.JSON(ViewResponse{
				View:    view,
				Subject: claims.Subject(),
				Role:    claims.Role(),
			})
		})

		api.Get(path, handlers...)
	}
}

// Bootstrap registers an account directly, used to seed the first admin.
// Seeded ids derive from the username so every deployment agrees on them.
// An existing username is not an error.
func (g *Gateway) Bootstrap(ctx context.Context, msg auth.RegisterUserMessage) error {
	msg.UseHashid = true
	_, err := auth.NewRegisterUserHandler(g.Repo).
		WithLogger(g.logger).
		WithActivitySink(g.activitySink).
		Execute(ctx, msg)
	if err != nil && !auth.IsConflictError(err) {
		return err
	}
	return nil
}
