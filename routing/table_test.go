package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/routing"
	"github.com/goliatone/go-welfare-auth/session"
)

func TestNewTable_DefaultRoutes(t *testing.T) {
	table, err := routing.NewTable(routing.NewRouter(), routing.DefaultRoutes())
	require.NoError(t, err)

	assert.Contains(t, table.Paths(), "/committee/requests")
	assert.IsIncreasing(t, table.Paths())

	policy, ok := table.Policy("/admin/users")
	require.True(t, ok)
	assert.Equal(t, []auth.Role{auth.RoleAdmin}, policy.AllowedRoles.Roles())
}

func TestNewTable_RejectsUnreachableDestinations(t *testing.T) {
	routes := routing.DefaultRoutes()
	delete(routes, "/auditor/dashboard")
	routes["/treasurer/dashboard"] = routing.Policy(auth.RoleAdmin)

	_, err := routing.NewTable(routing.NewRouter(), routes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auditor")
	assert.Contains(t, err.Error(), "treasurer")
	assert.NotContains(t, err.Error(), "member")

	assert.Panics(t, func() {
		routing.MustNewTable(routing.NewRouter(), routes)
	})
}

func TestNewTable_RejectsRedirectCycles(t *testing.T) {
	routes := routing.DefaultRoutes()
	routes["/a"] = routing.Policy(auth.RoleAdmin).WithRedirect("/b")
	routes["/b"] = routing.Policy(auth.RoleAdmin).WithRedirect("/a")

	_, err := routing.NewTable(routing.NewRouter(), routes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect loop /a -> /b -> /a")
	assert.Contains(t, err.Error(), "member")
	assert.NotContains(t, err.Error(), "admin:", "admin renders both views")

	routes["/b"] = routing.Policy(auth.RoleAdmin).WithRedirect("/members")
	table, err := routing.NewTable(routing.NewRouter(), routes)
	require.NoError(t, err, "a chain that settles is fine")
	assert.Equal(t, routing.Decision{Action: routing.ActionRedirect, Location: "/member/dashboard"},
		table.Evaluate(authenticated(auth.RoleMember), "/members"))
}

func TestTable_Evaluate(t *testing.T) {
	table := routing.MustNewTable(routing.NewRouter(), routing.DefaultRoutes())

	assert.Equal(t, routing.Decision{Action: routing.ActionRender},
		table.Evaluate(session.Snapshot{Status: session.StatusUnauthenticated}, "/about"),
		"undeclared paths are public")

	assert.Equal(t, routing.Decision{Action: routing.ActionRedirect, Location: "/member/dashboard"},
		table.Evaluate(authenticated(auth.RoleMember), "/committee/requests"))

	assert.Equal(t, routing.Decision{Action: routing.ActionRender},
		table.Evaluate(authenticated(auth.RoleAuditor), "/finance/contributions"))

	assert.Equal(t, routing.Decision{Action: routing.ActionRedirect, Location: "/"},
		table.Evaluate(authenticated(auth.RoleMember), "/reports"))
}

func TestTable_RedirectNeverPointsAtCurrentPath(t *testing.T) {
	routes := routing.DefaultRoutes()
	routes["/loop"] = routing.Policy(auth.RoleAdmin).WithRedirect("/loop")
	table := routing.MustNewTable(routing.NewRouter(), routes)

	assert.Equal(t, routing.Decision{Action: routing.ActionRedirect, Location: "/secretary/dashboard"},
		table.Evaluate(authenticated(auth.RoleSecretary), "/loop"))
}

// Following redirects from any view must settle on a rendered view within a
// couple of hops, for every role.
func TestTable_NoRedirectLoops(t *testing.T) {
	table := routing.MustNewTable(routing.NewRouter(), routing.DefaultRoutes())

	for _, role := range auth.GetAllRoles() {
		snap := authenticated(role)
		for _, start := range table.Paths() {
			path := start
			visited := map[string]bool{}
			settled := false

			for hop := 0; hop < 3; hop++ {
				decision := table.Evaluate(snap, path)
				if decision.Action == routing.ActionRender {
					settled = true
					break
				}
				require.Equal(t, routing.ActionRedirect, decision.Action)
				require.NotEqual(t, path, decision.Location, "%s redirected %s to itself", role, path)
				require.False(t, visited[decision.Location], "%s loops from %s", role, start)
				visited[path] = true
				path = decision.Location
			}

			assert.True(t, settled, "%s never settled starting from %s", role, start)
		}
	}
}
