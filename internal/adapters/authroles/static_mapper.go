// Package authroles maps backend role and group names onto session roles.
package authroles

import (
	"strings"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

var _ ports.RoleMapper = StaticRoleMapper{}

// rank orders roles so the strongest match wins.
var rank = map[domainauth.Role]int{
	domainauth.RoleGuest: 0,
	domainauth.RoleUser:  1,
	domainauth.RoleAgent: 2,
	domainauth.RoleAdmin: 3,
}

// StaticRoleMapper maps names by exact (case-insensitive) membership rules.
// Names that are themselves role names map to that role; "company" is an
// alias for agent. AdminGroup, AgentGroup and UserGroup add IdP group names.
// Unmatched input maps to guest.
type StaticRoleMapper struct {
	AdminGroup string
	AgentGroup string
	UserGroup  string
}

func (m StaticRoleMapper) Map(names []string) domainauth.Role {
	best := domainauth.RoleGuest
	for _, n := range names {
		if r := m.one(n); rank[r] > rank[best] {
			best = r
		}
	}
	return best
}

func (m StaticRoleMapper) one(name string) domainauth.Role {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return domainauth.RoleGuest
	case m.AdminGroup != "" && strings.EqualFold(n, m.AdminGroup):
		return domainauth.RoleAdmin
	case m.AgentGroup != "" && strings.EqualFold(n, m.AgentGroup):
		return domainauth.RoleAgent
	case m.UserGroup != "" && strings.EqualFold(n, m.UserGroup):
		return domainauth.RoleUser
	case strings.EqualFold(n, "company"):
		return domainauth.RoleAgent
	}
	if r, ok := domainauth.ParseRole(n); ok {
		return r
	}
	return domainauth.RoleGuest
}
