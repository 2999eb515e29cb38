package core

// RowStore holds the loaded dataset. It is the single source of truth for
// rows and headers; the dataset is read-only until it is replaced wholesale.
type RowStore struct {
	ds    Dataset
	index map[RowID]int
}

// NewRowStore returns a store holding ds.
func NewRowStore(ds Dataset) *RowStore {
	s := &RowStore{}
	s.Replace(ds)
	return s
}

// Replace swaps in a new dataset.
func (s *RowStore) Replace(ds Dataset) {
	s.ds = ds
	s.index = make(map[RowID]int, len(ds.Rows))
	for i, r := range ds.Rows {
		s.index[r.ID] = i
	}
}

// Dataset returns the loaded dataset.
func (s *RowStore) Dataset() Dataset {
	return s.ds
}

// Headers returns a copy of the header list.
func (s *RowStore) Headers() []string {
	out := make([]string, len(s.ds.Headers))
	copy(out, s.ds.Headers)
	return out
}

// Rows returns the rows in dataset order. Callers must not mutate them.
func (s *RowStore) Rows() []Row {
	return s.ds.Rows
}

// Row returns the row with the given ID.
func (s *RowStore) Row(id RowID) (Row, bool) {
	i, ok := s.index[id]
	if !ok {
		return Row{}, false
	}
	return s.ds.Rows[i], true
}

// Len returns the number of rows.
func (s *RowStore) Len() int {
	return len(s.ds.Rows)
}

// Loaded reports whether a dataset with headers is present.
func (s *RowStore) Loaded() bool {
	return len(s.ds.Headers) > 0
}
