package authapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
)

// compiledPath is a JMESPath expression parsed once at construction.
type compiledPath struct {
	expr  string
	query jmespath.JMESPath
}

func compilePath(expr string) (*compiledPath, error) {
	query, err := jmespath.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &compiledPath{expr: expr, query: query}, nil
}

func (p *compiledPath) search(doc any) (any, error) {
	v, err := p.query.Search(doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", p.expr, err)
	}
	return v, nil
}

// extractProfile applies the profile and role paths to a decoded /me body.
// A body without a usable id is malformed.
func (c *Client) extractProfile(doc any) (domainauth.Profile, error) {
	raw, err := c.profile.search(doc)
	if err != nil {
		return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed /me response")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return domainauth.Profile{}, apperrors.Internal("malformed /me response: profile is not an object")
	}

	id, ok := asID(obj["id"])
	if !ok {
		return domainauth.Profile{}, apperrors.Internal("malformed /me response: missing or invalid id")
	}
	user := domainauth.User{
		ID:    id,
		Name:  asString(obj["name"]),
		Email: asString(obj["email"]),
	}

	var role domainauth.Role
	if rv, err := c.role.search(doc); err == nil {
		role = c.mapRole(rv)
	}
	return domainauth.Profile{User: user, Role: role}, nil
}

// mapRole returns "" when the body carries no recognizable role.
func (c *Client) mapRole(v any) domainauth.Role {
	var names []string
	switch t := v.(type) {
	case string:
		names = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	if c.roles != nil {
		if r := c.roles.Map(names); r != domainauth.RoleGuest {
			return r
		}
		return ""
	}
	for _, n := range names {
		if r, ok := domainauth.ParseRole(n); ok && r != domainauth.RoleGuest {
			return r
		}
	}
	return ""
}

func asID(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t < 0 {
			return 0, false
		}
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
