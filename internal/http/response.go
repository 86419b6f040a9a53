package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"startup-apply/internal/query"
	"startup-apply/internal/service"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type pagedEnvelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: status < http.StatusBadRequest, Message: message, Data: data})
}

func respondPaged[T any](c *gin.Context, page query.Paged[T]) {
	c.JSON(http.StatusOK, pagedEnvelope{
		Success:  true,
		Data:     page.Data,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// respondError traduce errores de servicio a status HTTP. Lo que no reconoce se
// loguea completo y sale como 500 generico.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
	}
	fail(c, status, message)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, query.ErrInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrOTPExpired):
		return http.StatusBadRequest, "reset code expired"
	case errors.Is(err, service.ErrOTPInvalid):
		return http.StatusBadRequest, "invalid reset code"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusUnauthorized, "admin access required"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, service.ErrEmailSendFailure):
		return http.StatusServiceUnavailable, "email delivery unavailable"
	case errors.Is(err, service.ErrMediaUnavailable):
		return http.StatusServiceUnavailable, "media storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// queryParams aplana la query string; si una clave se repite gana el primer valor.
func queryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}
