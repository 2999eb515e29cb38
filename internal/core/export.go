package core

import (
	"errors"
	"strings"
)

// ErrNothingToExport is returned when neither the selection nor the filtered
// result contains any rows.
var ErrNothingToExport = errors.New("no rows to export")

// Export file metadata.
const (
	ExportFileName    = "students_export.csv"
	ExportContentType = "text/csv;charset=utf-8"
)

// quoteField wraps s in double quotes, doubling any quote inside it.
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ToCSV renders headers and rows as CSV text. Every field is quoted, lines
// are joined with CRLF and columns follow the header order. RowIDs are not
// exported.
func ToCSV(headers []string, rows []Row) string {
	var b strings.Builder
	writeLine := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteField(f))
		}
	}

	writeLine(headers)
	fields := make([]string, len(headers))
	for _, r := range rows {
		for i, h := range headers {
			fields[i] = r.Get(h).String()
		}
		b.WriteString("\r\n")
		writeLine(fields)
	}
	return b.String()
}

// ExportRows picks the rows to export. A non-empty selection exports exactly
// the selected rows in dataset order; otherwise every row matching the view's
// filters is exported in view order, ignoring pagination.
func ExportRows(ds Dataset, sel *SelectionSet, view ViewState) ([]Row, error) {
	var rows []Row
	if sel != nil && sel.Len() > 0 {
		rows = sel.SelectedRows(ds)
	} else {
		rows = Query(ds, view.Criteria, view.Sort)
	}
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}
	return rows, nil
}
