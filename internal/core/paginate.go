package core

// Page is one slice of a query result plus its navigation bounds.
type Page struct {
	Rows        []Row
	Page        int
	TotalPages  int
	TotalRows   int
	RowsPerPage int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// TotalPages returns max(1, ceil(n / perPage)).
func TotalPages(n, perPage int) int {
	if perPage < 1 {
		perPage = DefaultRowsPerPage
	}
	pages := (n + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage forces page into [1, total].
func ClampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate slices rows for ps. An out-of-range page is clamped rather than
// rejected, so a filter that shrinks the result never yields an empty page
// while rows remain.
func Paginate(rows []Row, ps PageState) Page {
	perPage := ps.RowsPerPage
	if perPage < 1 {
		perPage = DefaultRowsPerPage
	}
	total := TotalPages(len(rows), perPage)
	page := ClampPage(ps.Page, total)

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	return Page{
		Rows:        rows[start:end],
		Page:        page,
		TotalPages:  total,
		TotalRows:   len(rows),
		RowsPerPage: perPage,
	}
}

// Prev returns the state for the previous page; a no-op on page 1.
func (ps PageState) Prev(totalPages int) PageState {
	page := ClampPage(ps.Page, totalPages)
	if page > 1 {
		page--
	}
	ps.Page = page
	return ps
}

// Next returns the state for the next page; a no-op on the last page.
func (ps PageState) Next(totalPages int) PageState {
	page := ClampPage(ps.Page, totalPages)
	if page < totalPages {
		page++
	}
	ps.Page = page
	return ps
}
