package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"startup-apply/internal/domain"
	"startup-apply/internal/policy"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// JWTService emite y valida los tokens de sesion.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// Claims lleva el usuario completo, sin el hash de password.
type Claims struct {
	UserID    string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	jwt.RegisteredClaims
}

// Actor devuelve la identidad que usa la politica de acceso.
func (c Claims) Actor() policy.Actor {
	return policy.Actor{UserID: c.UserID, IsAdmin: c.IsAdmin}
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "startup-apply",
	}
}

// TTL devuelve la vigencia de los tokens emitidos.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

func (s *JWTService) Issue(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		ImageURL:  user.ImageURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse valida firma, expiracion, issuer y subject. Un token vencido devuelve
// ErrJWTExpired; cualquier otra falla, ErrJWTInvalid.
func (s *JWTService) Parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
