package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
)

var nowFunc = time.Now // mockable

// Claims represents the identity claims transmitted via a session token.
type Claims struct {
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
	jwt.RegisteredClaims
}

// Caller returns the authenticated identity carried by the claims.
func (c Claims) Caller() (Caller, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return Caller{}, core.ErrAuthenticationFailed
	}
	if !c.Role.Valid() {
		return Caller{}, core.ErrAuthenticationFailed
	}
	return Caller{ID: id, Username: c.Username, Role: c.Role}, nil
}

// Issuer signs and verifies session tokens with a secret loaded once at startup.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	name   string
}

func NewIssuer(secret []byte, ttl time.Duration, name string) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Issuer{secret: key, ttl: ttl, name: name}, nil
}

func (iss *Issuer) TTL() time.Duration { return iss.ttl }

// Issue returns a signed token for the user, valid for the issuer's ttl.
func (iss *Issuer) Issue(userID int, username string, role core.Role) (string, error) {
	now := nowFunc().UTC()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			Issuer:    iss.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(iss.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Verify checks the signature, then the expiry.
// Any failure is reported as core.ErrAuthenticationFailed, whichever check failed.
func (iss *Issuer) Verify(tokenString string) (Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) { return iss.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(iss.name),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(nowFunc),
	)
	if err != nil || !token.Valid {
		return Claims{}, core.ErrAuthenticationFailed
	}
	if _, err = claims.Caller(); err != nil {
		return Claims{}, core.ErrAuthenticationFailed
	}
	return *claims, nil
}
