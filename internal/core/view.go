package core

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownColumn is returned when sorting by a column the dataset lacks.
var ErrUnknownColumn = errors.New("column not found")

// ErrUnknownEvent is returned for an event type the reducer does not handle.
var ErrUnknownEvent = errors.New("unknown view event")

// ViewState is everything that decides what the table shows: filters,
// sort and page. It is a value; transitions return a new ViewState.
type ViewState struct {
	Criteria FilterCriteria `json:"criteria"`
	Sort     SortSpec       `json:"sort"`
	Page     PageState      `json:"page"`
}

// NewViewState returns an unfiltered, unsorted view on page 1.
func NewViewState(rowsPerPage int) ViewState {
	if rowsPerPage < 1 {
		rowsPerPage = DefaultRowsPerPage
	}
	return ViewState{Page: PageState{Page: 1, RowsPerPage: rowsPerPage}}
}

// EventType names a discrete UI interaction.
type EventType string

const (
	EventSearch      EventType = "search"
	EventBranch      EventType = "branch"
	EventYear        EventType = "year"
	EventInterest    EventType = "interest"
	EventSort        EventType = "sort"
	EventRowsPerPage EventType = "rows_per_page"
	EventNextPage    EventType = "next_page"
	EventPrevPage    EventType = "prev_page"
	EventGoToPage    EventType = "page"
)

// Event is one UI interaction. Value carries the search text, filter value,
// column name or number, depending on Type.
type Event struct {
	Type  EventType `json:"type"`
	Value string    `json:"value"`
}

// Apply returns the view after ev. Filter, search and sort changes go back
// to page 1; a page size change also resets to page 1. Page moves are
// bounded by the page count of the current result over ds.
func (v ViewState) Apply(ds Dataset, ev Event) (ViewState, error) {
	switch ev.Type {
	case EventSearch:
		v.Criteria.Search = ev.Value
		v.Page.Page = 1
	case EventBranch:
		v.Criteria.Branch = ev.Value
		v.Page.Page = 1
	case EventYear:
		v.Criteria.Year = ev.Value
		v.Page.Page = 1
	case EventInterest:
		v.Criteria.Interest = ev.Value
		v.Page.Page = 1

	case EventSort:
		if !ds.HasHeader(ev.Value) {
			return v, fmt.Errorf("sort by %q: %w", ev.Value, ErrUnknownColumn)
		}
		if v.Sort.Column == ev.Value {
			v.Sort.Ascending = !v.Sort.Ascending
		} else {
			v.Sort = SortSpec{Column: ev.Value, Ascending: true}
		}
		v.Page.Page = 1

	case EventRowsPerPage:
		n, err := strconv.Atoi(ev.Value)
		if err != nil || n < 1 {
			return v, fmt.Errorf("rows per page %q: must be a positive integer", ev.Value)
		}
		v.Page.RowsPerPage = n
		v.Page.Page = 1

	case EventNextPage:
		v.Page = v.Page.Next(v.totalPages(ds))
	case EventPrevPage:
		v.Page = v.Page.Prev(v.totalPages(ds))
	case EventGoToPage:
		n, err := strconv.Atoi(ev.Value)
		if err != nil {
			return v, fmt.Errorf("page %q: must be an integer", ev.Value)
		}
		v.Page.Page = ClampPage(n, v.totalPages(ds))

	default:
		return v, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return v, nil
}

func (v ViewState) totalPages(ds Dataset) int {
	return TotalPages(len(Query(ds, v.Criteria, v.Sort)), v.Page.RowsPerPage)
}

// Snapshot is a rendered view: the current page plus everything the table
// chrome needs (page info, select-all state, selection count).
type Snapshot struct {
	View      ViewState
	Headers   []string
	Page      Page
	Selected  map[RowID]bool
	Tristate  Tristate
	Selection int
	Options   FilterOptions
}

// PageInfo formats the pagination summary line.
func (s Snapshot) PageInfo() string {
	return fmt.Sprintf("Page %d of %d (%d rows)", s.Page.Page, s.Page.TotalPages, s.Page.TotalRows)
}

// Render threads view through Query and Paginate. The returned snapshot
// carries the view with its page clamped to the current result.
func Render(ds Dataset, sel *SelectionSet, view ViewState, scope SelectScope) Snapshot {
	filtered := Query(ds, view.Criteria, view.Sort)
	page := Paginate(filtered, view.Page)
	view.Page.Page = page.Page
	view.Page.RowsPerPage = page.RowsPerPage

	selected := make(map[RowID]bool, len(page.Rows))
	for _, r := range page.Rows {
		if sel.Has(r.ID) {
			selected[r.ID] = true
		}
	}

	scoped := filtered
	if scope == ScopeTable {
		scoped = ds.Rows
	}

	return Snapshot{
		View:      view,
		Headers:   ds.Headers,
		Page:      page,
		Selected:  selected,
		Tristate:  sel.Tristate(scoped),
		Selection: sel.Len(),
		Options:   Options(ds),
	}
}
