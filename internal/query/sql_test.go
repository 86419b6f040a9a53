package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = Columns{
	"name":      "name",
	"email":     "email",
	"isAdmin":   "is_admin",
	"createdAt": "created_at",
}

func TestQuerySQL(t *testing.T) {
	q, err := Build(map[string]string{
		"filters": "isAdmin=true",
		"search":  "50%_off",
	}, []string{"name", "email"})
	require.NoError(t, err)

	where, args, order, err := q.SQL(userColumns, 1)
	require.NoError(t, err)

	assert.Equal(t, "is_admin::text = $1 AND (name::text ILIKE $2 OR email::text ILIKE $2)", where)
	assert.Equal(t, []any{"true", `%50\%\_off%`}, args)
	assert.Equal(t, "created_at DESC", order)
}

func TestQuerySQL_StartArgOffset(t *testing.T) {
	q, err := Build(map[string]string{"filters": "name=ana", "sortOrder": "asc"}, nil)
	require.NoError(t, err)

	where, args, order, err := q.SQL(userColumns, 3)
	require.NoError(t, err)
	assert.Equal(t, "name::text = $3", where)
	assert.Equal(t, []any{"ana"}, args)
	assert.Equal(t, "created_at ASC", order)
}

func TestQuerySQL_Empty(t *testing.T) {
	where, args, order, err := Default().SQL(userColumns, 1)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)
	assert.Equal(t, "created_at DESC", order)
}

func TestQuerySQL_RejectsUnknownFields(t *testing.T) {
	q, err := Build(map[string]string{"filters": "password_hash=x"}, nil)
	require.NoError(t, err)
	_, _, _, err = q.SQL(userColumns, 1)
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	q, err = Build(map[string]string{"sortBy": "name; DROP TABLE users"}, nil)
	require.NoError(t, err)
	_, _, _, err = q.SQL(userColumns, 1)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}
