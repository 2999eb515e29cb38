package core

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies what a cell holds.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
)

// Value is a single cell: empty, a string, or a number.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

// Empty is the zero cell.
var Empty = Value{}

// Text returns a string cell. An empty string is still a string cell;
// use Empty for a missing cell.
func Text(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// IsEmpty reports whether the cell renders as an empty string.
func (v Value) IsEmpty() bool {
	return v.String() == ""
}

// String renders the cell the way it is displayed, searched, sorted and exported.
// Whole numbers have no decimal point.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return ""
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalText lets Values appear as plain strings in JSON payloads.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// fold returns the case-folded rendering used by every case-insensitive comparison.
func (v Value) fold() string {
	return strings.ToLower(v.String())
}

// RowID identifies a row for the lifetime of a loaded dataset.
// It is the 1-based ordinal position of the row in the source sheet.
type RowID int

// Row is one data record keyed by header name.
type Row struct {
	ID    RowID
	Cells map[string]Value
}

// Get returns the cell for a column, or Empty if the row has no such column.
func (r Row) Get(column string) Value {
	if r.Cells == nil {
		return Empty
	}
	return r.Cells[column]
}

// Dataset is the full in-memory collection of rows plus headers for one upload.
// Headers order is display and export order.
type Dataset struct {
	Headers []string
	Rows    []Row
}

// HasHeader reports whether column is one of the dataset headers.
func (d Dataset) HasHeader(column string) bool {
	for _, h := range d.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// Well-known columns bound to the categorical filters.
const (
	ColumnBranch    = "Branch"
	ColumnYear      = "Year"
	ColumnInterests = "Interests"
	ColumnName      = "Name"
)

// SortSpec is the single active sort column. An empty Column means unsorted.
type SortSpec struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// Dir returns "asc" or "desc".
func (s SortSpec) Dir() string {
	if s.Ascending {
		return "asc"
	}
	return "desc"
}

// FilterCriteria holds the free-text search and the categorical filters.
// An empty field is inactive.
type FilterCriteria struct {
	Search   string `json:"search"`
	Branch   string `json:"branch"`
	Year     string `json:"year"`
	Interest string `json:"interest"`
}

// Active reports whether any condition is set.
func (c FilterCriteria) Active() bool {
	return c.Search != "" || c.Branch != "" || c.Year != "" || c.Interest != ""
}

// PageState is the requested page and the page size.
type PageState struct {
	Page        int `json:"page"`
	RowsPerPage int `json:"rows_per_page"`
}

// DefaultRowsPerPage is used when a page size is missing or invalid.
const DefaultRowsPerPage = 10

// Tristate summarises how much of a row sequence is selected.
type Tristate string

const (
	TriNone Tristate = "none"
	TriSome Tristate = "some"
	TriAll  Tristate = "all"
)
