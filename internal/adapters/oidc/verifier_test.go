package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatcher/jm-portal/internal/adapters/authroles"
	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
)

const testIssuer = "https://idp.example.com"

func signIDToken(t *testing.T, key *rsa.PrivateKey, c idClaims, exp time.Time, aud string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": c.Sub,
		"aud": aud,
		"iat": time.Now().Unix(),
		"exp": exp.Unix(),
	}
	set := func(k, v string) {
		if v != "" {
			claims[k] = v
		}
	}
	set("email", c.Email)
	set("mail", c.Mail)
	set("name", c.Name)
	set("given_name", c.GivenName)
	set("family_name", c.FamilyName)
	if len(c.Groups) > 0 {
		claims["groups"] = c.Groups
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return NewVerifier(testIssuer, "portal", keys, authroles.StaticRoleMapper{AdminGroup: "jm-admins"}), key
}

func TestVerifier_Verify(t *testing.T) {
	v, key := newTestVerifier(t)
	raw := signIDToken(t, key, idClaims{
		Sub:        "42",
		GivenName:  "Taro",
		FamilyName: "Yamada",
		Email:      "taro@example.com",
		Groups:     []string{"jm-admins"},
	}, time.Now().Add(time.Hour), "portal")

	p, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domainauth.User{ID: 42, Name: "Taro Yamada", Email: "taro@example.com"}, p.User)
	assert.Equal(t, domainauth.RoleAdmin, p.Role)
}

func TestVerifier_DefaultsToUserRole(t *testing.T) {
	v, key := newTestVerifier(t)
	raw := signIDToken(t, key, idClaims{Sub: "google-oauth2|abc", Mail: "a@example.com", Name: "A"},
		time.Now().Add(time.Hour), "portal")

	p, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, p.Role)
	assert.Equal(t, "a@example.com", p.User.Email)
	assert.Positive(t, p.User.ID)
	assert.Equal(t, subjectID("google-oauth2|abc"), p.User.ID)
}

func TestVerifier_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":        signIDToken(t, key, idClaims{Sub: "1"}, time.Now().Add(-time.Minute), "portal"),
		"wrong audience": signIDToken(t, key, idClaims{Sub: "1"}, time.Now().Add(time.Hour), "someone-else"),
		"foreign key":    signIDToken(t, other, idClaims{Sub: "1"}, time.Now().Add(time.Hour), "portal"),
		"garbage":        "not.a.jwt",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsUnauthorized(err))
		})
	}
}

func TestIDClaims_FillFrom(t *testing.T) {
	c := idClaims{Sub: "1"}
	c.fillFrom(idClaims{Mail: "m@example.com", FirstName: "F", LastName: "L", MemberOf: []string{"g"}})
	assert.Equal(t, "m@example.com", c.email())
	assert.Equal(t, "F L", c.name())
	assert.Equal(t, []string{"g"}, c.groups())

	keep := idClaims{Email: "keep@example.com", Name: "Keep", Groups: []string{"x"}}
	keep.fillFrom(idClaims{Email: "other@example.com", Name: "Other", Groups: []string{"y"}})
	assert.Equal(t, "keep@example.com", keep.email())
	assert.Equal(t, "Keep", keep.name())
	assert.Equal(t, []string{"x"}, keep.groups())
}

func TestSubjectID(t *testing.T) {
	assert.Equal(t, int64(7), subjectID("7"))
	assert.Equal(t, subjectID("abc"), subjectID("abc"))
	assert.NotEqual(t, subjectID("abc"), subjectID("abd"))
	assert.GreaterOrEqual(t, subjectID("-5"), int64(0))
}
