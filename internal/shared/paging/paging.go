// Package paging holds the page/pageSize conventions shared by list endpoints.
package paging

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is the list envelope returned by every paginated endpoint.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Normalize clamps page and size and returns the row offset.
func Normalize(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, (page - 1) * size
}

// New builds a Page; a nil items slice is encoded as [].
func New[T any](items []T, total, page, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: size, TotalPages: pages}
}

// Map converts the items of a page.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Page[U]{Items: out, Total: p.Total, Page: p.Page, PageSize: p.PageSize, TotalPages: p.TotalPages}
}

// Search turns a free-text filter into an ILIKE argument, or nil when blank.
func Search(value string) interface{} {
	if value == "" {
		return nil
	}
	return "%" + value + "%"
}

// SortOrder validates asc/desc with desc as default.
func SortOrder(value string) (string, bool) {
	switch value {
	case "":
		return "desc", true
	case "asc", "desc":
		return value, true
	default:
		return "", false
	}
}
