// Package core provides the row-state engine for the roster viewer.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the rosterctl CLI and tests without
// modification.
//
// # Architecture
//
// Data flows leaf to root:
//
//   - Normalizer: [BuildDataset] and [NormalizeRow] turn parsed cells into
//     rows with stable [RowID]s, trimmed values and ordinal years.
//   - RowStore: [RowStore] holds the dataset; it is replaced wholesale on upload.
//   - QueryEngine: [Query] filters and stably sorts. It is a pure function.
//   - SelectionTracker: [SelectionSet] survives filtering, sorting and paging.
//   - Paginator: [Paginate] slices a result and clamps the page.
//   - ExportFormatter: [ToCSV] and [ExportRows].
//
// # View State
//
// Filters, sort and page live in an immutable [ViewState]. UI interactions
// arrive as [Event]s and [ViewState.Apply] returns the next state:
//
//	next, err := view.Apply(ds, core.Event{Type: core.EventSort, Value: "Name"})
//	snap := core.Render(ds, sel, next, core.ScopeFiltered)
//
// A [Session] owns one dataset, its selection and its view behind a mutex;
// [SessionManager] keys sessions by ID and expires idle ones.
//
// # Error Handling
//
// Errors are sentinel values wrapped with context. [MapError] turns them into
// coded user messages (FILE, VIEW, EXP, MAIL, SES, UPL).
package core
