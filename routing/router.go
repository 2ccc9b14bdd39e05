// Package routing decides what a view does for a session: render, show a
// loading placeholder or redirect. Decisions are pure and never fail.
package routing

import (
	"fmt"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/session"
)

// DefaultLoginPath is the login entry point
const DefaultLoginPath = "/login"

type Action string

const (
	ActionLoading  Action = "loading"
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
)

// RoutePolicy declares who may see a view
type RoutePolicy struct {
	AllowedRoles   auth.RoleSet
	RedirectTarget string
}

// Policy builds a RoutePolicy admitting roles
func Policy(roles ...auth.Role) RoutePolicy {
	return RoutePolicy{AllowedRoles: auth.NewRoleSet(roles...)}
}

// WithRedirect returns a copy of the policy sending disallowed roles to target
func (p RoutePolicy) WithRedirect(target string) RoutePolicy {
	p.RedirectTarget = target
	return p
}

// Decision is the outcome of evaluating a policy
type Decision struct {
	Action   Action
	Location string
}

func (d Decision) String() string {
	if d.Action == ActionRedirect {
		return fmt.Sprintf("%s %s", d.Action, d.Location)
	}
	return string(d.Action)
}

// Router maps sessions and policies to decisions
type Router struct {
	loginPath    string
	destinations map[auth.Role]string
}

type Option func(*Router)

// WithLoginPath overrides the login entry point
func WithLoginPath(path string) Option {
	return func(r *Router) {
		if path != "" {
			r.loginPath = path
		}
	}
}

// WithDestination overrides the default destination of a role
func WithDestination(role auth.Role, path string) Option {
	return func(r *Router) {
		if role.IsValid() && path != "" {
			r.destinations[role] = path
		}
	}
}

func NewRouter(opts ...Option) *Router {
	r := &Router{
		loginPath:    DefaultLoginPath,
		destinations: DefaultDestinations(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// DefaultDestinations returns the canonical dashboard of every role
func DefaultDestinations() map[auth.Role]string {
	out := make(map[auth.Role]string, len(auth.GetAllRoles()))
	for _, role := range auth.GetAllRoles() {
		out[role] = "/" + string(role) + "/dashboard"
	}
	return out
}

// LoginPath returns the login entry point
func (r *Router) LoginPath() string {
	return r.loginPath
}

// Destination returns the default destination of role
func (r *Router) Destination(role auth.Role) (string, bool) {
	switch role {
	case auth.RoleMember, auth.RoleTreasurer, auth.RoleSecretary,
		auth.RoleCommittee, auth.RoleAuditor, auth.RoleAdmin:
		path, ok := r.destinations[role]
		return path, ok
	default:
		return "", false
	}
}

// Decide evaluates policy for the session snapshot
func (r *Router) Decide(snap session.Snapshot, policy RoutePolicy) Decision {
	switch snap.Status {
	case session.StatusIdle, session.StatusChecking:
		return Decision{Action: ActionLoading}
	case session.StatusAuthenticated:
		return r.decideAuthenticated(snap, policy)
	default:
		return r.toLogin()
	}
}

func (r *Router) decideAuthenticated(snap session.Snapshot, policy RoutePolicy) Decision {
	if snap.Identity == nil {
		return r.toLogin()
	}

	role := snap.Identity.Role
	destination, known := r.Destination(role)
	if !known {
		return r.toLogin()
	}

	if policy.AllowedRoles.Contains(role) {
		return Decision{Action: ActionRender}
	}

	if policy.RedirectTarget != "" {
		return Decision{Action: ActionRedirect, Location: policy.RedirectTarget}
	}

	return Decision{Action: ActionRedirect, Location: destination}
}

func (r *Router) toLogin() Decision {
	return Decision{Action: ActionRedirect, Location: r.loginPath}
}
