package query

import (
	"fmt"
	"strings"
)

// Columns mapea nombres de campo publicos a columnas SQL. Solo los campos presentes
// pueden filtrarse, buscarse u ordenarse.
type Columns map[string]string

func (c Columns) column(field string) (string, error) {
	col, ok := c[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, field)
	}
	return col, nil
}

// SQL compila la consulta a un WHERE parametrizado (sin la palabra WHERE) y un ORDER BY.
// Los placeholders arrancan en $startArg.
func (q Query) SQL(cols Columns, startArg int) (where string, args []any, orderBy string, err error) {
	var parts []string
	next := startArg

	for _, c := range q.Conditions {
		col, err := cols.column(c.Field)
		if err != nil {
			return "", nil, "", err
		}
		parts = append(parts, fmt.Sprintf("%s::text = $%d", col, next))
		args = append(args, c.Value)
		next++
	}

	if q.Search != nil && len(q.Search.Fields) > 0 {
		ors := make([]string, 0, len(q.Search.Fields))
		pattern := "%" + escapeLike(q.Search.Term) + "%"
		for _, f := range q.Search.Fields {
			col, err := cols.column(f)
			if err != nil {
				return "", nil, "", err
			}
			ors = append(ors, fmt.Sprintf("%s::text ILIKE $%d", col, next))
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
		args = append(args, pattern)
	}

	sortCol, err := cols.column(q.SortBy)
	if err != nil {
		return "", nil, "", err
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	orderBy = fmt.Sprintf("%s %s", sortCol, direction)

	return strings.Join(parts, " AND "), args, orderBy, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
