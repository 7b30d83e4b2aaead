package scan

import (
	"sort"
	"sync"
	"time"
)

// DefaultPageSize is the initial display limit, and the step each
// load-more request adds.
const DefaultPageSize = 100

// View is an ordered, paginated slice of the filtered result set plus the
// bookkeeping a consumer needs to render it.
type View struct {
	Files         []File `json:"files"`
	FilteredTotal int    `json:"filtered_total"`
	DisplayLimit  int    `json:"display_limit"`
	RangeExceeded bool   `json:"range_exceeded"`
	SelectedCount int    `json:"selected_count"`
}

// Browser owns the derived-view state over a session's accumulated files:
// the active query, the incremental display limit, and the selection set.
// Selection is defined over the full filtered set, never just the
// paginated slice.
type Browser struct {
	mu       sync.Mutex
	query    Query
	pageSize int
	limit    int
	selected map[string]struct{}
}

// NewBrowser creates a browser with the default query and page size.
func NewBrowser() *Browser {
	return &Browser{
		query:    DefaultQuery(),
		pageSize: DefaultPageSize,
		limit:    DefaultPageSize,
		selected: make(map[string]struct{}),
	}
}

// Query returns the active query.
func (b *Browser) Query() Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetQuery applies a new query. The display limit resets to one page only
// when the category changed; every other filter keeps the current limit.
// The asymmetry is intentional: switching category is a fresh browse,
// narrowing within one is not.
func (b *Browser) SetQuery(q Query) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.Category != b.query.Category {
		b.limit = b.pageSize
	}
	b.query = q
}

// LoadMore grows the display limit by one page, capped at nothing: the
// view clamps to the filtered total.
func (b *Browser) LoadMore() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit += b.pageSize
}

// View computes the current paginated view over files.
func (b *Browser) View(files []File, record *Record, statusOf StatusFunc, now time.Time) View {
	b.mu.Lock()
	q := b.query
	limit := b.limit
	selected := len(b.selected)
	b.mu.Unlock()

	filtered, exceeds := Filter(files, q, record, statusOf, now)
	if limit > len(filtered) {
		limit = len(filtered)
	}

	return View{
		Files:         filtered[:limit],
		FilteredTotal: len(filtered),
		DisplayLimit:  limit,
		RangeExceeded: exceeds,
		SelectedCount: selected,
	}
}

// Select adds a path to the selection.
func (b *Browser) Select(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected[path] = struct{}{}
}

// Deselect removes a path from the selection.
func (b *Browser) Deselect(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.selected, path)
}

// ClearSelection empties the selection.
func (b *Browser) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = make(map[string]struct{})
}

// ToggleSelectAll selects every currently filtered file, or clears the
// selection when the filtered set is already fully selected. Pagination
// plays no part: files beyond the display limit are selected too.
func (b *Browser) ToggleSelectAll(files []File, record *Record, statusOf StatusFunc, now time.Time) {
	b.mu.Lock()
	q := b.query
	b.mu.Unlock()

	filtered, _ := Filter(files, q, record, statusOf, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	all := len(filtered) > 0
	for _, f := range filtered {
		if _, ok := b.selected[f.Path]; !ok {
			all = false
			break
		}
	}

	if all {
		b.selected = make(map[string]struct{})
		return
	}
	b.selected = make(map[string]struct{}, len(filtered))
	for _, f := range filtered {
		b.selected[f.Path] = struct{}{}
	}
}

// Selected returns the selected paths in stable order.
func (b *Browser) Selected() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.selected))
	for p := range b.selected {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
