package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classwork/core"
)

func newTestIssuer(t *testing.T, secret string) *Issuer {
	t.Helper()
	iss, err := NewIssuer([]byte(secret), time.Hour, "Classwork")
	require.NoError(t, err)
	return iss
}

func setNow(t *testing.T, now time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour, "Classwork")
	assert.Error(t, err)
	_, err = NewIssuer([]byte("secret"), 0, "Classwork")
	assert.Error(t, err)
}

func TestIssuer_roundTrip(t *testing.T) {
	iss := newTestIssuer(t, "s3cret")

	token, err := iss.Issue(42, "alice", core.RoleTeacher)
	require.NoError(t, err)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	caller, err := claims.Caller()
	require.NoError(t, err)
	assert.Equal(t, Caller{ID: 42, Username: "alice", Role: core.RoleTeacher}, caller)
	assert.Equal(t, "Classwork", claims.Issuer)
}

func TestIssuer_Verify(t *testing.T) {
	iss := newTestIssuer(t, "s3cret")
	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	setNow(t, issued)

	token, err := iss.Issue(1, "alice", core.RoleStudent)
	require.NoError(t, err)

	// flip one character of the payload
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[5] == 'A' {
		payload[5] = 'B'
	} else {
		payload[5] = 'A'
	}
	tampered := strings.Join([]string{parts[0], string(payload), parts[2]}, ".")

	foreign, err := newTestIssuer(t, "other").Issue(1, "alice", core.RoleStudent)
	require.NoError(t, err)

	otherName, err := NewIssuer([]byte("s3cret"), time.Hour, "Elsewhere")
	require.NoError(t, err)
	misnamed, err := otherName.Issue(1, "alice", core.RoleStudent)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "Classwork", ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
		Role:             core.RoleAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "Classwork", ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
		Role:             "principal",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		now     time.Time
		wantErr bool
	}{
		{name: "fresh", token: token, now: issued.Add(time.Minute)},
		{name: "just before expiry", token: token, now: issued.Add(59 * time.Minute)},
		{name: "expired", token: token, now: issued.Add(time.Hour + time.Second), wantErr: true},
		{name: "tampered", token: tampered, now: issued, wantErr: true},
		{name: "foreign secret", token: foreign, now: issued, wantErr: true},
		{name: "foreign issuer", token: misnamed, now: issued, wantErr: true},
		{name: "alg none", token: unsigned, now: issued, wantErr: true},
		{name: "unknown role", token: badRole, now: issued, wantErr: true},
		{name: "garbage", token: "not.a.token", now: issued, wantErr: true},
		{name: "empty", token: "", now: issued, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setNow(t, tt.now)
			_, err := iss.Verify(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrAuthenticationFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClaims_Caller(t *testing.T) {
	tests := []struct {
		name    string
		claims  Claims
		wantErr bool
	}{
		{name: "valid", claims: Claims{Role: core.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}}},
		{name: "non numeric subject", claims: Claims{Role: core.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "seven"}}, wantErr: true},
		{name: "zero subject", claims: Claims{Role: core.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "0"}}, wantErr: true},
		{name: "no role", claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.claims.Caller()
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
