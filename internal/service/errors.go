package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"startup-apply/internal/policy"
	"startup-apply/internal/repository"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPInvalid         = errors.New("otp invalid")
	ErrRateLimited        = errors.New("rate limited")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrMediaUnavailable   = errors.New("media storage unavailable")
)

// translate convierte errores de repositorio en errores de servicio.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	default:
		return err
	}
}

// authorize traduce la decision de la politica a un error.
func authorize(actor policy.Actor, op policy.Operation, target policy.Target) error {
	switch policy.Decide(actor, op, target) {
	case policy.Allow:
		return nil
	case policy.Forbidden:
		return ErrForbidden
	default:
		return ErrNotFound
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: invalid fields %s", ErrValidation, strings.Join(fields, ", "))
}
