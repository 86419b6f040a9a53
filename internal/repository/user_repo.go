package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"startup-apply/internal/domain"
	"startup-apply/internal/query"
)

// UserColumns son los campos de usuario que admiten filtros, busqueda y orden.
var UserColumns = query.Columns{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"isAdmin":   "is_admin",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, q query.Query) ([]domain.User, int64, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) (domain.User, error)
	Summaries(ctx context.Context, ids []string) (map[string]domain.UserSummary, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, is_admin, image_url, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.ImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const stmt = `
		INSERT INTO users (id, name, email, password_hash, is_admin, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, stmt,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, ErrNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *PgUserRepository) List(ctx context.Context, q query.Query) ([]domain.User, int64, error) {
	where, args, orderBy, err := q.SQL(UserColumns, 1)
	if err != nil {
		return nil, 0, err
	}
	if where != "" {
		where = " WHERE " + where
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	sql := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s, id LIMIT $%d OFFSET $%d`, userColumns, where, orderBy, n+1, n+2)
	rows, err := r.pool.Query(ctx, sql, append(args, q.Limit(), q.Skip())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	if !validID(user.ID) {
		return domain.User{}, ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()

	const stmt = `
		UPDATE users
		SET name = $1,
			email = $2,
			password_hash = $3,
			is_admin = $4,
			image_url = $5,
			updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, stmt,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.ImageURL,
		user.UpdatedAt,
		user.ID,
	))
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, ErrNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

// Summaries devuelve nombre y email de los ids pedidos, indexados por id.
func (r *PgUserRepository) Summaries(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, email FROM users WHERE id::text = ANY($1::text[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}
