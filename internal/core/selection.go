package core

import "sort"

// SelectScope controls which rows the select-all control covers.
type SelectScope string

const (
	// ScopeFiltered covers the rows matching the active filter and search.
	ScopeFiltered SelectScope = "filtered"
	// ScopeTable covers every row of the dataset regardless of filters.
	ScopeTable SelectScope = "table"
)

// ParseSelectScope returns the scope named s, defaulting to ScopeFiltered.
func ParseSelectScope(s string) SelectScope {
	if SelectScope(s) == ScopeTable {
		return ScopeTable
	}
	return ScopeFiltered
}

// SelectionSet is the set of selected rows. Selection is global: a row stays
// selected while filtered out of view, and only a new dataset clears it.
type SelectionSet struct {
	ids map[RowID]struct{}
}

// NewSelectionSet returns an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[RowID]struct{})}
}

// Toggle adds id if absent and removes it if present.
// It returns whether id is selected afterwards.
func (s *SelectionSet) Toggle(id RowID) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s *SelectionSet) Has(id RowID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected rows.
func (s *SelectionSet) Len() int {
	return len(s.ids)
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.ids = make(map[RowID]struct{})
}

// SelectAllVisible selects every row in rows.
func (s *SelectionSet) SelectAllVisible(rows []Row) {
	for _, r := range rows {
		s.ids[r.ID] = struct{}{}
	}
}

// DeselectAllVisible deselects every row in rows.
func (s *SelectionSet) DeselectAllVisible(rows []Row) {
	for _, r := range rows {
		delete(s.ids, r.ID)
	}
}

// Tristate reports none, some or all for rows. An empty sequence is none.
func (s *SelectionSet) Tristate(rows []Row) Tristate {
	selected := 0
	for _, r := range rows {
		if s.Has(r.ID) {
			selected++
		}
	}
	switch {
	case selected == 0:
		return TriNone
	case selected == len(rows):
		return TriAll
	default:
		return TriSome
	}
}

// IDs returns the selected IDs in ascending order.
func (s *SelectionSet) IDs() []RowID {
	out := make([]RowID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SelectedRows returns the selected rows of ds in dataset order.
func (s *SelectionSet) SelectedRows(ds Dataset) []Row {
	out := make([]Row, 0, len(s.ids))
	for _, r := range ds.Rows {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
