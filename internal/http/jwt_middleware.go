package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"startup-apply/internal/policy"
	"startup-apply/internal/service"
)

const authClaimsKey = "auth_claims"

// Auth agrupa los middlewares de sesion.
type Auth struct {
	logger *zap.Logger
	jwt    *service.JWTService
}

func NewAuth(logger *zap.Logger, jwtSvc *service.JWTService) *Auth {
	return &Auth{logger: logger, jwt: jwtSvc}
}

// bearerToken devuelve el token y si el header estaba presente. Un header ausente o
// con el literal "undefined" cuenta como ausente.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || header == "undefined" {
		return "", false
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", true
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	if token == "" || token == "undefined" {
		return "", false
	}
	return token, true
}

func (a *Auth) authenticate(c *gin.Context, token string) bool {
	claims, err := a.jwt.Parse(token)
	if err != nil {
		if errors.Is(err, service.ErrJWTExpired) {
			a.logger.Warn("token rejected", zap.String("reason", "expired"), zap.String("path", c.Request.URL.Path))
			fail(c, http.StatusUnauthorized, "token expired")
			return false
		}
		a.logger.Warn("token rejected", zap.String("reason", "invalid"), zap.String("path", c.Request.URL.Path))
		fail(c, http.StatusUnauthorized, "invalid token")
		return false
	}
	c.Set(authClaimsKey, claims)
	return true
}

// RequireAuth exige "Authorization: Bearer <token>" y guarda los claims en el contexto.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			a.logger.Warn("token rejected", zap.String("reason", "missing"), zap.String("path", c.Request.URL.Path))
			fail(c, http.StatusUnauthorized, "not authorized")
			return
		}
		if !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth deja pasar sin header como anonimo, pero un token presente debe ser valido.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// RequireAdmin va despues de RequireAuth.
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok || !claims.IsAdmin {
			fail(c, http.StatusUnauthorized, "admin access required")
			return
		}
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// actorFrom devuelve la identidad del request; sin claims es anonimo.
func actorFrom(c *gin.Context) policy.Actor {
	claims, ok := GetAuthClaims(c)
	if !ok {
		return policy.Actor{}
	}
	return claims.Actor()
}
