package routing

import (
	"fmt"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/session"
)

// ErrInvalidRouteTable is returned when a role cannot reach its own destination
var ErrInvalidRouteTable = goerrors.New("invalid route table", goerrors.CategoryValidation).
	WithTextCode("INVALID_ROUTE_TABLE")

// Table holds the policy of every protected view
type Table struct {
	router   *Router
	policies map[string]RoutePolicy
}

// NewTable checks that every role's default destination is declared and
// admits that role, and that following redirects from any declared path
// settles on a rendered view without revisiting a path.
func NewTable(router *Router, policies map[string]RoutePolicy) (*Table, error) {
	if router == nil {
		router = NewRouter()
	}

	problems := map[string]string{}
	for _, role := range auth.GetAllRoles() {
		destination, ok := router.Destination(role)
		if !ok {
			problems[string(role)] = "no default destination"
			continue
		}

		policy, ok := policies[destination]
		if !ok {
			problems[string(role)] = fmt.Sprintf("destination %s has no policy", destination)
			continue
		}

		if !policy.AllowedRoles.Contains(role) {
			problems[string(role)] = fmt.Sprintf("destination %s does not admit %s", destination, role)
		}
	}

	copied := make(map[string]RoutePolicy, len(policies))
	for path, policy := range policies {
		copied[path] = policy
	}
	table := &Table{router: router, policies: copied}

	for _, role := range auth.GetAllRoles() {
		if _, failed := problems[string(role)]; failed {
			continue
		}
		if chain := table.redirectLoop(role); chain != nil {
			problems[string(role)] = "redirect loop " + strings.Join(chain, " -> ")
		}
	}

	if len(problems) > 0 {
		keys := make([]string, 0, len(problems))
		for k := range problems {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, k+": "+problems[k])
		}

		err := ErrInvalidRouteTable.Clone()
		err.Message = "invalid route table: " + strings.Join(msgs, "; ")
		return nil, err.WithMetadata(map[string]any{"roles": problems})
	}

	return table, nil
}

// redirectLoop returns the first chain of paths that leads role back to a
// path it already visited, or nil.
func (t *Table) redirectLoop(role auth.Role) []string {
	snap := session.Snapshot{
		Status:      session.StatusAuthenticated,
		AccessToken: "route-table",
		Identity:    &auth.Profile{Role: role},
	}

	for _, start := range t.Paths() {
		chain := []string{start}
		seen := map[string]bool{start: true}
		path := start

		for {
			decision := t.Evaluate(snap, path)
			if decision.Action != ActionRedirect {
				break
			}

			path = decision.Location
			chain = append(chain, path)
			if seen[path] {
				return chain
			}
			seen[path] = true
		}
	}

	return nil
}

// MustNewTable is NewTable for startup code
func MustNewTable(router *Router, policies map[string]RoutePolicy) *Table {
	t, err := NewTable(router, policies)
	if err != nil {
		panic(err)
	}
	return t
}

// Policy returns the policy declared for path
func (t *Table) Policy(path string) (RoutePolicy, bool) {
	p, ok := t.policies[path]
	return p, ok
}

// Paths returns the declared paths sorted
func (t *Table) Paths() []string {
	out := make([]string, 0, len(t.policies))
	for p := range t.policies {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Evaluate decides what to do for the view at path. Undeclared paths are
// public. A redirect never points back at path.
func (t *Table) Evaluate(snap session.Snapshot, path string) Decision {
	policy, ok := t.policies[path]
	if !ok {
		return Decision{Action: ActionRender}
	}

	decision := t.router.Decide(snap, policy)
	if decision.Action != ActionRedirect || decision.Location != path {
		return decision
	}

	if snap.Identity != nil {
		if destination, ok := t.router.Destination(snap.Identity.Role); ok {
			return Decision{Action: ActionRedirect, Location: destination}
		}
	}

	return t.router.toLogin()
}

// DefaultRoutes is the route tree of the welfare app
func DefaultRoutes() map[string]RoutePolicy {
	routes := map[string]RoutePolicy{}
	for role, destination := range DefaultDestinations() {
		routes[destination] = Policy(role)
	}

	routes["/committee/requests"] = Policy(auth.RoleCommittee, auth.RoleAdmin)
	routes["/finance/contributions"] = Policy(auth.RoleTreasurer, auth.RoleAuditor, auth.RoleAdmin)
	routes["/finance/disbursements"] = Policy(auth.RoleTreasurer, auth.RoleAdmin)
	routes["/members"] = Policy(auth.RoleSecretary, auth.RoleCommittee, auth.RoleAdmin)
	routes["/reports"] = Policy(auth.RoleAuditor, auth.RoleTreasurer, auth.RoleAdmin).
		WithRedirect("/")
	routes["/admin/users"] = Policy(auth.RoleAdmin)

	return routes
}
