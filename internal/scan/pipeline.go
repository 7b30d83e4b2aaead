package scan

import (
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/seralin/baleen/internal/index"
	"github.com/seralin/baleen/internal/timewindow"
)

// Category filters files by kind; CategoryAll passes everything through.
type Category string

// CategoryAll disables category filtering.
const CategoryAll Category = "all"

// StatusFilter narrows files by derived indexing status.
type StatusFilter string

// Status filters. NotIndexed covers files the index has no usable record
// for, including errored ones; Indexed covers fast, deep, and pending.
const (
	FilterAll        StatusFilter = "all"
	FilterIndexed    StatusFilter = "indexed"
	FilterNotIndexed StatusFilter = "not_indexed"
)

// SortField selects the sort key.
type SortField string

// Sort fields.
const (
	SortByModified SortField = "modified_at"
	SortBySize     SortField = "size"
	SortByName     SortField = "name"
)

// SortOrder is ascending or descending.
type SortOrder string

// Sort orders.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query is everything the pipeline needs besides the files themselves.
type Query struct {
	Category Category         `json:"category"`
	Status   StatusFilter     `json:"status"`
	Search   string           `json:"search"`
	Range    timewindow.Range `json:"range"`
	Sort     SortField        `json:"sort"`
	Order    SortOrder        `json:"order"`
}

// DefaultQuery is the initial browse state: everything visible, newest
// first.
func DefaultQuery() Query {
	return Query{
		Category: CategoryAll,
		Status:   FilterAll,
		Range:    timewindow.Range{Selector: timewindow.SelectorAllTime},
		Sort:     SortByModified,
		Order:    OrderDesc,
	}
}

// StatusFunc resolves the derived indexing status of a path.
type StatusFunc func(path string) index.Status

// Filter runs the stages of the result pipeline short of pagination:
// code-kind drop, category, index status, text search, time window, sort.
// The returned flag reports whether the selected range exceeds what the
// recorded scan covered; when it does, the time-window stage is skipped
// entirely, because the accumulated set cannot be trusted to represent
// the wider window and date-trimming it would only hide real files.
func Filter(files []File, q Query, record *Record, statusOf StatusFunc, now time.Time) ([]File, bool) {
	exceeds := timewindow.ExceedsScanned(q.Range, record.TimeRecord(), now)

	var window timewindow.Window
	applyWindow := !exceeds
	if applyWindow {
		window = timewindow.Resolve(q.Range, now)
	}

	out := make([]File, 0, len(files))
	search := strings.ToLower(strings.TrimSpace(q.Search))

	for _, f := range files {
		// Accumulated state should already be code-free; kept as a
		// defensive stage.
		if f.Kind == KindCode {
			continue
		}
		if q.Category != "" && q.Category != CategoryAll && Kind(q.Category) != f.Kind {
			continue
		}
		if !matchesStatus(q.Status, f.Path, statusOf) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(f.Name), search) &&
			!strings.Contains(strings.ToLower(f.Path), search) {
			continue
		}
		if applyWindow && !window.Contains(f.ModifiedAt) {
			continue
		}
		out = append(out, f)
	}

	sortFiles(out, q.Sort, q.Order)
	return out, exceeds
}

func matchesStatus(f StatusFilter, path string, statusOf StatusFunc) bool {
	if f == "" || f == FilterAll || statusOf == nil {
		return true
	}
	st := statusOf(path)
	switch f {
	case FilterIndexed:
		return st.Indexed()
	case FilterNotIndexed:
		return st == index.StatusNotIndexed || st == index.StatusError
	}
	return true
}

// sortFiles orders files by the requested field. Name comparison is
// natural-order and case-insensitive; ties keep the stable order of the
// preceding stage.
func sortFiles(files []File, field SortField, order SortOrder) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if order == OrderDesc {
			a, b = b, a
		}
		switch field {
		case SortBySize:
			return a.Size < b.Size
		case SortByName:
			return natural.Less(strings.ToLower(a.Name), strings.ToLower(b.Name))
		default:
			return a.ModifiedAt.Before(b.ModifiedAt)
		}
	})
}
