package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-welfare-auth"
)

func TestRole_IsValid(t *testing.T) {
	for _, role := range auth.GetAllRoles() {
		assert.True(t, role.IsValid(), role)
	}

	assert.False(t, auth.Role("").IsValid())
	assert.False(t, auth.Role("Admin").IsValid())
	assert.False(t, auth.Role("guest").IsValid())
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("  Treasurer ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleTreasurer, role)

	_, ok = auth.ParseRole("chairperson")
	assert.False(t, ok)
}

func TestRoleSet(t *testing.T) {
	set := auth.NewRoleSet(auth.RoleTreasurer, auth.RoleAdmin, auth.Role("guest"), auth.RoleAdmin)

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(auth.RoleAdmin))
	assert.False(t, set.Contains(auth.RoleMember))
	assert.False(t, set.Contains(auth.Role("guest")))
	assert.Equal(t, []auth.Role{auth.RoleAdmin, auth.RoleTreasurer}, set.Roles())

	var empty auth.RoleSet
	assert.False(t, empty.Contains(auth.RoleMember))
	assert.Empty(t, empty.Roles())
}

func TestClaimsContext(t *testing.T) {
	claims := &auth.Claims{UserRole: auth.RoleCommittee}
	claims.RegisteredClaims.Subject = "user-9"

	ctx := auth.WithClaimsContext(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-9", got.Subject())

	assert.True(t, auth.HasRole(ctx, auth.RoleCommittee, auth.RoleAdmin))
	assert.False(t, auth.HasRole(ctx, auth.RoleTreasurer))

	_, ok = auth.GetClaims(context.Background())
	assert.False(t, ok)
	assert.False(t, auth.HasRole(context.Background(), auth.RoleCommittee))
}
