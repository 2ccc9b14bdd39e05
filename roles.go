package auth

import (
	"sort"
	"strings"
)

// Role is the welfare organisation role of a user
type Role string

const (
	// RoleMember is a regular welfare member
	RoleMember Role = "member"
	// RoleTreasurer manages contributions and disbursements
	RoleTreasurer Role = "treasurer"
	// RoleSecretary manages member records and minutes
	RoleSecretary Role = "secretary"
	// RoleCommittee is a committee member voting on requests
	RoleCommittee Role = "committee"
	// RoleAuditor reviews financial records
	RoleAuditor Role = "auditor"
	// RoleAdmin administers the application
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleTreasurer, RoleSecretary, RoleCommittee, RoleAuditor, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleMember,
		RoleTreasurer,
		RoleSecretary,
		RoleCommittee,
		RoleAuditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// RoleSet is an immutable set of roles
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set, unknown roles are ignored
func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		if r.IsValid() {
			set.roles[r] = struct{}{}
		}
	}
	return set
}

// Contains reports whether role is a valid member of the set
func (s RoleSet) Contains(role Role) bool {
	if !role.IsValid() {
		return false
	}
	_, ok := s.roles[role]
	return ok
}

// Len returns the number of roles in the set
func (s RoleSet) Len() int {
	return len(s.roles)
}

// Roles returns the members sorted by name
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
