package scan

import (
	"context"
	"time"
)

// Request describes one scan issued to the provider. Relative windows are
// passed as DaysBack; bounded windows carry explicit instants.
type Request struct {
	From                     *time.Time
	To                       *time.Time
	DaysBack                 int
	Directories              []string
	UseRecommendedExclusions bool
	CustomExclusions         []string
}

// ProgressUpdate carries counter advances from the provider. Counts are
// absolute totals, not deltas; the session applies them monotonically.
type ProgressUpdate struct {
	Phase        Status
	ScannedCount int64
	MatchedCount int64
	SkippedCount int64
	CurrentPath  string
}

// Complete is the provider's terminal payload. Files is the authoritative
// final inventory and supersedes everything accumulated from batches.
// Partial marks a scan that was cut short by cancellation.
type Complete struct {
	Files   []File
	Tree    *FolderNode
	Partial bool
}

// Event is one message on the provider's ordered stream. Exactly one field
// is set. A Complete or Err event is terminal and is followed by the
// channel closing.
type Event struct {
	Progress *ProgressUpdate
	Batch    []File
	Complete *Complete
	Err      string
}

// CancelFunc requests best-effort cancellation of one scan.
type CancelFunc func()

// Provider is the external scan collaborator. Events for one scan are
// delivered in order on the returned channel; the provider may be backed
// by concurrent work but the stream itself is sequential.
type Provider interface {
	// Scan starts enumeration and returns the event stream plus a
	// cancellation handle for this scan.
	Scan(ctx context.Context, req Request) (<-chan Event, CancelFunc, error)

	// Cancel aborts any running scan, independent of per-scan handles.
	Cancel()
}
