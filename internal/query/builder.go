// Package query traduce los parametros de listado (search, filters, sort, paginacion)
// a una consulta neutral que los repositorios compilan a SQL.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidQuery = errors.New("invalid query")

const (
	ClauseSeparator = "||"
	TermSeparator   = "&&"

	DefaultSortBy   = "createdAt"
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Condition es una igualdad campo = valor.
type Condition struct {
	Field string
	Value string
}

// Search es una disyuncion de coincidencias parciales, sin distinguir mayusculas, sobre Fields.
type Search struct {
	Term   string
	Fields []string
}

// Query es el resultado de Build. Conditions se combinan con AND entre si y con Search.
type Query struct {
	Conditions []Condition
	Search     *Search
	SortBy     string
	SortDesc   bool
	Page       int
	PageSize   int
}

// Skip devuelve el offset de la pagina pedida.
func (q Query) Skip() int {
	return (q.Page - 1) * q.PageSize
}

func (q Query) Limit() int {
	return q.PageSize
}

// Default devuelve la consulta que Build produce con parametros vacios.
func Default() Query {
	return Query{
		SortBy:   DefaultSortBy,
		SortDesc: true,
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}
}

// Build arma una Query a partir de params. Las clausulas OR de filters se aplanan en
// igualdades y, si un campo aparece varias veces, gana el ultimo valor.
func Build(params map[string]string, searchable []string) (Query, error) {
	q := Default()

	conditions, err := parseFilters(params["filters"])
	if err != nil {
		return Query{}, err
	}
	q.Conditions = conditions

	if term := strings.TrimSpace(params["search"]); term != "" && len(searchable) > 0 {
		fields := make([]string, len(searchable))
		copy(fields, searchable)
		q.Search = &Search{Term: term, Fields: fields}
	}

	if sortBy := strings.TrimSpace(params["sortBy"]); sortBy != "" {
		q.SortBy = sortBy
	}
	if order, ok := params["sortOrder"]; ok && strings.TrimSpace(order) != "" {
		q.SortDesc = strings.EqualFold(strings.TrimSpace(order), "desc")
	}

	q.Page = positiveInt(params["page"], DefaultPage)
	q.PageSize = positiveInt(params["pageSize"], DefaultPageSize)
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	return q, nil
}

func parseFilters(raw string) ([]Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var conditions []Condition
	index := make(map[string]int)
	for _, clause := range strings.Split(raw, ClauseSeparator) {
		for _, term := range strings.Split(clause, TermSeparator) {
			if strings.TrimSpace(term) == "" {
				continue
			}
			field, value, ok := strings.Cut(term, "=")
			field = strings.TrimSpace(field)
			if !ok || field == "" {
				return nil, fmt.Errorf("%w: malformed filter term %q", ErrInvalidQuery, term)
			}
			value = strings.TrimSpace(value)
			if i, seen := index[field]; seen {
				conditions[i].Value = value
				continue
			}
			index[field] = len(conditions)
			conditions = append(conditions, Condition{Field: field, Value: value})
		}
	}
	return conditions, nil
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Match evalua la consulta contra un documento cuyos campos se leen con get. Es la
// contraparte en memoria de SQL, para repositorios en memoria; los de Postgres usan SQL.
func (q Query) Match(get func(field string) (string, bool)) bool {
	for _, c := range q.Conditions {
		v, ok := get(c.Field)
		if !ok || v != c.Value {
			return false
		}
	}
	if q.Search == nil {
		return true
	}
	term := strings.ToLower(q.Search.Term)
	for _, f := range q.Search.Fields {
		if v, ok := get(f); ok && strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
