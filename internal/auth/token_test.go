package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

func TestStaffTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	token, expiresAt, err := tm.GenerateStaffToken("staff-1", domain.StaffRoleTeamLead)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.StaffRoleTeamLead, *claims.Role)
}

func TestSystemTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	token, _, err := tm.GenerateSystemToken("helpdesk")
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeSystem, claims.Subject)
	assert.Nil(t, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	sign := func(claims *Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	foreignIssuer := valid
	foreignIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	role := domain.StaffRoleAgent

	tests := map[string]string{
		"wrong secret":       sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeSystem, RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("other")),
		"expired":            sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeSystem, RegisteredClaims: expired}, jwt.SigningMethodHS256, []byte("secret")),
		"foreign issuer":     sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeSystem, RegisteredClaims: foreignIssuer}, jwt.SigningMethodHS256, []byte("secret")),
		"no expiry":          sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeStaff, Role: &role, RegisteredClaims: noExpiry}, jwt.SigningMethodHS256, []byte("secret")),
		"other algorithm":    sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeSystem, RegisteredClaims: valid}, jwt.SigningMethodHS512, []byte("secret")),
		"no subject":         sign(&Claims{Subject: domain.SubjectTypeSystem, RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("secret")),
		"staff without role": sign(&Claims{SubjectID: "s", Subject: domain.SubjectTypeStaff, RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("secret")),
		"garbage":            "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.ParseToken(token)
			assert.Error(t, err)
		})
	}
}
