package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or expired session ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrRowNotFound is returned when toggling a RowID the dataset lacks.
var ErrRowNotFound = errors.New("row not found")

// Session is one viewer: a dataset plus the selection and view over it.
// All methods are safe for concurrent use; each runs to completion before
// the next is admitted.
type Session struct {
	ID string

	mu          sync.Mutex
	store       *RowStore
	sel         *SelectionSet
	view        ViewState
	scope       SelectScope
	rowsPerPage int
	fileName    string
	lastAccess  time.Time
}

// NewSession returns an empty session.
func NewSession(id string, rowsPerPage int, scope SelectScope) *Session {
	return &Session{
		ID:          id,
		store:       NewRowStore(Dataset{}),
		sel:         NewSelectionSet(),
		view:        NewViewState(rowsPerPage),
		scope:       scope,
		rowsPerPage: rowsPerPage,
		lastAccess:  time.Now(),
	}
}

// Load replaces the dataset. Selection, sort, filters and page are reset;
// the page size is kept.
func (s *Session) Load(fileName string, ds Dataset) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	perPage := s.view.Page.RowsPerPage
	s.store.Replace(ds)
	s.sel.Clear()
	s.view = NewViewState(perPage)
	s.fileName = fileName
	return s.snapshotLocked()
}

// FileName returns the name of the loaded file.
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// Apply applies a view event and returns the resulting snapshot.
func (s *Session) Apply(ev Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.view.Apply(s.store.Dataset(), ev)
	if err != nil {
		return Snapshot{}, err
	}
	s.view = next
	return s.snapshotLocked(), nil
}

// Toggle flips the selection of one row.
func (s *Session) Toggle(id RowID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.Row(id); !ok {
		return Snapshot{}, fmt.Errorf("toggle %d: %w", id, ErrRowNotFound)
	}
	s.sel.Toggle(id)
	return s.snapshotLocked(), nil
}

// SetAllVisible selects (checked) or deselects every row the select-all
// control covers under the session's scope.
func (s *Session) SetAllVisible(checked bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.scopedRowsLocked()
	if checked {
		s.sel.SelectAllVisible(rows)
	} else {
		s.sel.DeselectAllVisible(rows)
	}
	return s.snapshotLocked()
}

// Snapshot renders the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Export renders the export set as CSV and returns it with its row count.
func (s *Session) Export() (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Dataset()
	rows, err := ExportRows(ds, s.sel, s.view)
	if err != nil {
		return "", 0, err
	}
	return ToCSV(ds.Headers, rows), len(rows), nil
}

// SelectedRows returns the headers and the selected rows in dataset order.
func (s *Session) SelectedRows() ([]string, []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Headers(), s.sel.SelectedRows(s.store.Dataset())
}

func (s *Session) scopedRowsLocked() []Row {
	ds := s.store.Dataset()
	if s.scope == ScopeTable {
		return ds.Rows
	}
	return Query(ds, s.view.Criteria, s.view.Sort)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Render(s.store.Dataset(), s.sel, s.view, s.scope)
	s.view = snap.View
	return snap
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}

// SessionManager keeps the live sessions, keyed by ID.
type SessionManager struct {
	rowsPerPage int
	scope       SelectScope

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager returns a manager whose sessions start with the given
// page size and select-all scope.
func NewSessionManager(rowsPerPage int, scope SelectScope) *SessionManager {
	if rowsPerPage < 1 {
		rowsPerPage = DefaultRowsPerPage
	}
	return &SessionManager{
		rowsPerPage: rowsPerPage,
		scope:       scope,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new empty session.
func (m *SessionManager) Create() *Session {
	s := NewSession(uuid.NewString(), m.rowsPerPage, m.scope)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Debug("session created", "session_id", s.ID)
	return s
}

// Get returns a session and marks it as used.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch(time.Now())
	return s, nil
}

// Delete drops a session. Unknown IDs are ignored.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *SessionManager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > maxIdle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
