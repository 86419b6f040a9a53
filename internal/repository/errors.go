package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound se devuelve cuando el registro no existe.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate se devuelve ante una violacion de indice unico.
	ErrDuplicate = errors.New("duplicate key")
)

const uniqueViolation = "23505"

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// validID evita mandar a postgres ids que no son uuid y responderlos como inexistentes.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
