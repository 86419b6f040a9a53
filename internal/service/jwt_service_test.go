package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-apply/internal/domain"
)

func TestJWTService_IssueParse(t *testing.T) {
	svc := NewJWTService("secret", 0)
	user := domain.User{
		ID:           "u1",
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: "hash",
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}

	token, err := svc.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "u1", claims.Actor().UserID)
	assert.True(t, claims.Actor().IsAdmin)

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 30*24*time.Hour, ttl)
	assert.Equal(t, defaultTokenTTL, svc.TTL())
}

func TestJWTService_ClaimsNeverCarryPasswordHash(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := svc.Issue(domain.User{ID: "u1", Email: "a@b.c", PasswordHash: "$2a$12$secret"})
	require.NoError(t, err)

	parser := jwt.NewParser()
	raw := jwt.MapClaims{}
	_, _, err = parser.ParseUnverified(token, raw)
	require.NoError(t, err)
	for key, value := range raw {
		assert.NotContains(t, key, "password")
		if s, ok := value.(string); ok {
			assert.NotEqual(t, "$2a$12$secret", s)
		}
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "startup-apply",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Parse(signed)
	assert.True(t, errors.Is(err, ErrJWTExpired), "got %v", err)
}

func TestJWTService_Invalid(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	other := NewJWTService("other-secret", time.Hour)
	foreign, err := other.Issue(domain.User{ID: "u1"})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"bad secret": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(token)
			assert.True(t, errors.Is(err, ErrJWTInvalid), "got %v", err)
		})
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", time.Hour)
	_, err := svc.Issue(domain.User{ID: "u1"})
	assert.True(t, errors.Is(err, ErrJWTInvalid))
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Parse(signed)
	assert.True(t, errors.Is(err, ErrJWTInvalid))
}
