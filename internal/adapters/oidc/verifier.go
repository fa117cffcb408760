package oidc

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// Verifier checks ID tokens issued to this client and implements ports.IdentityVerifier.
type Verifier struct {
	idTokens   *gooidc.IDTokenVerifier
	roles      ports.RoleMapper
	httpClient *http.Client
}

var _ ports.IdentityVerifier = (*Verifier)(nil)

// NewVerifier builds a Verifier from an explicit key set, for issuers whose
// keys are known up front.
func NewVerifier(issuer, clientID string, keys gooidc.KeySet, roles ports.RoleMapper) *Verifier {
	return &Verifier{
		idTokens: gooidc.NewVerifier(issuer, keys, &gooidc.Config{ClientID: clientID}),
		roles:    roles,
	}
}

// Verify validates signature, issuer, audience and expiry of an ID token and
// returns its profile.
func (v *Verifier) Verify(ctx context.Context, token string) (domainauth.Profile, error) {
	if v.httpClient != nil {
		ctx = gooidc.ClientContext(ctx, v.httpClient)
	}
	c, err := v.verifyClaims(ctx, token)
	if err != nil {
		return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid id token")
	}
	return v.profile(c), nil
}

func (v *Verifier) verifyClaims(ctx context.Context, raw string) (idClaims, error) {
	tok, err := v.idTokens.Verify(ctx, raw)
	if err != nil {
		return idClaims{}, err
	}
	var c idClaims
	if err := tok.Claims(&c); err != nil {
		return idClaims{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	return c, nil
}

func (v *Verifier) profile(c idClaims) domainauth.Profile {
	return domainauth.Profile{
		User: domainauth.User{
			ID:    subjectID(c.Sub),
			Name:  c.name(),
			Email: c.email(),
		},
		Role: userRole(v.roles, c.groups()),
	}
}

// idClaims covers standard OIDC claims plus the AD/ADFS shape some IdPs emit.
type idClaims struct {
	Sub        string   `json:"sub"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Groups     []string `json:"groups"`
	Roles      []string `json:"roles"`
	Nonce      string   `json:"nonce"`

	Mail      string   `json:"mail"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	MemberOf  []string `json:"memberof"`
}

func (c idClaims) email() string { return firstNonEmpty(c.Email, c.Mail) }

func (c idClaims) name() string {
	if c.Name != "" {
		return c.Name
	}
	given := firstNonEmpty(c.GivenName, c.FirstName)
	family := firstNonEmpty(c.FamilyName, c.LastName)
	return strings.TrimSpace(given + " " + family)
}

func (c idClaims) groups() []string {
	out := make([]string, 0, len(c.Groups)+len(c.Roles)+len(c.MemberOf))
	out = append(out, c.Groups...)
	out = append(out, c.Roles...)
	return append(out, c.MemberOf...)
}

// fillFrom copies profile fields missing from c out of UserInfo claims.
func (c *idClaims) fillFrom(ui idClaims) {
	if c.email() == "" {
		c.Email = ui.email()
	}
	if c.name() == "" {
		c.Name = ui.name()
	}
	if len(c.groups()) == 0 {
		c.Groups = ui.groups()
	}
}

// subjectID keeps numeric subjects as-is and hashes any other subject into a
// stable positive ID.
func subjectID(sub string) int64 {
	if n, err := strconv.ParseInt(sub, 10, 64); err == nil && n >= 0 {
		return n
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(sub))
	return int64(h.Sum64() >> 1)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
