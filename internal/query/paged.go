package query

// Paged es una pagina de resultados junto con el total sin paginar.
type Paged[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func NewPaged[T any](q Query, total int64, data []T) Paged[T] {
	if data == nil {
		data = []T{}
	}
	return Paged[T]{
		Data:     data,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}

// Map transforma los elementos conservando los datos de paginacion.
func Map[T, U any](p Paged[T], f func(T) U) Paged[U] {
	data := make([]U, len(p.Data))
	for i, d := range p.Data {
		data[i] = f(d)
	}
	return Paged[U]{Data: data, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}
