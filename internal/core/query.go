package core

import (
	"sort"
	"strings"
)

// Predicate reports whether a row satisfies one filter condition.
type Predicate func(Row) bool

// MatchExact matches rows whose column equals value. With foldCase the
// comparison is case-insensitive. Missing cells compare as "".
func MatchExact(column, value string, foldCase bool) Predicate {
	if foldCase {
		want := strings.ToLower(value)
		return func(r Row) bool {
			return r.Get(column).fold() == want
		}
	}
	return func(r Row) bool {
		return r.Get(column).String() == value
	}
}

// MatchContains matches rows whose column contains value, case-insensitively.
// Multi-value cells ("AI; Web | ML") are matched as one joined string.
func MatchContains(column, value string) Predicate {
	want := strings.ToLower(value)
	return func(r Row) bool {
		return strings.Contains(r.Get(column).fold(), want)
	}
}

// MatchAnyCell matches rows where any cell contains value, case-insensitively.
// The RowID is not a cell and is never searched.
func MatchAnyCell(value string) Predicate {
	want := strings.ToLower(value)
	return func(r Row) bool {
		for _, v := range r.Cells {
			if strings.Contains(v.fold(), want) {
				return true
			}
		}
		return false
	}
}

// Predicates returns the active conditions, bound to their columns.
func (c FilterCriteria) Predicates() []Predicate {
	var preds []Predicate
	if c.Branch != "" {
		preds = append(preds, MatchExact(ColumnBranch, c.Branch, true))
	}
	if c.Year != "" {
		preds = append(preds, MatchExact(ColumnYear, c.Year, false))
	}
	if c.Interest != "" {
		preds = append(preds, MatchContains(ColumnInterests, c.Interest))
	}
	if c.Search != "" {
		preds = append(preds, MatchAnyCell(c.Search))
	}
	return preds
}

// Query returns the rows matching every active condition, ordered by sort.
//
// Without a sort column the dataset order is kept. With one, rows are
// ordered by the case-folded rendering of that column; the sort is stable
// so equal keys keep their relative order. Query never mutates ds.
func Query(ds Dataset, c FilterCriteria, s SortSpec) []Row {
	preds := c.Predicates()

	out := make([]Row, 0, len(ds.Rows))
rows:
	for _, r := range ds.Rows {
		for _, p := range preds {
			if !p(r) {
				continue rows
			}
		}
		out = append(out, r)
	}

	if s.Column != "" {
		col := s.Column
		keys := make([]string, len(out))
		for i, r := range out {
			keys[i] = r.Get(col).fold()
		}
		sort.Stable(byKey{rows: out, keys: keys, asc: s.Ascending})
	}

	return out
}

// byKey sorts rows by precomputed keys.
type byKey struct {
	rows []Row
	keys []string
	asc  bool
}

func (b byKey) Len() int { return len(b.rows) }

func (b byKey) Less(i, j int) bool {
	if b.asc {
		return b.keys[i] < b.keys[j]
	}
	return b.keys[i] > b.keys[j]
}

func (b byKey) Swap(i, j int) {
	b.rows[i], b.rows[j] = b.rows[j], b.rows[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// FilterOptions lists the values offered by the categorical filters.
type FilterOptions struct {
	Branches  []string `json:"branches"`
	Years     []string `json:"years"`
	Interests []string `json:"interests"`
}

// splitInterests splits a multi-value cell on ',', ';' and '|'.
func splitInterests(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Options collects the distinct non-empty Branch and Year values and the
// distinct Interests tokens of ds, each sorted ascending.
func Options(ds Dataset) FilterOptions {
	branches := make(map[string]struct{})
	years := make(map[string]struct{})
	interests := make(map[string]struct{})

	for _, r := range ds.Rows {
		if b := r.Get(ColumnBranch).String(); b != "" {
			branches[b] = struct{}{}
		}
		if y := r.Get(ColumnYear).String(); y != "" {
			years[y] = struct{}{}
		}
		for _, tok := range splitInterests(r.Get(ColumnInterests).String()) {
			interests[tok] = struct{}{}
		}
	}

	return FilterOptions{
		Branches:  sortedKeys(branches),
		Years:     sortedKeys(years),
		Interests: sortedKeys(interests),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
