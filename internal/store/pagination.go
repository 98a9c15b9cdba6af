package store

// MaxPerPage bounds any requested page size.
const MaxPerPage = 100

// Page is the resolved position of one page within a listing.
type Page struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage clamps a requested page against the total item count.
// A non-positive perPage falls back to defaultPerPage; pages below 1 become 1
// and pages past the end become the last page.
func NewPage(page, perPage, defaultPerPage, total int) Page {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	total = max(total, 0)

	totalPages := (total + perPage - 1) / perPage
	page = max(page, 1)
	page = min(page, max(totalPages, 1))

	return Page{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the number of items preceding this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit returns the page size, for use in LIMIT clauses.
func (p Page) Limit() int {
	return p.PerPage
}

// PaginatedResult is one page of items with its position.
type PaginatedResult[T any] struct {
	Items []T `json:"items"`
	Page
}
