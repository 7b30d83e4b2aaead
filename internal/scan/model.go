package scan

import (
	"time"

	"github.com/seralin/baleen/internal/timewindow"
)

// Kind is the coarse content category of a scanned file.
type Kind string

// File kinds. KindCode exists upstream in the provider's classification but
// is excluded from this subsystem entirely: batches are filtered at
// ingestion so code files never reach accumulated state.
const (
	KindDocument Kind = "document"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindArchive  Kind = "archive"
	KindBook     Kind = "book"
	KindOther    Kind = "other"
	KindCode     Kind = "code"
)

// Origin describes how a file arrived on disk.
type Origin string

// File origins.
const (
	OriginDownloaded  Origin = "downloaded"
	OriginSynced      Origin = "synced"
	OriginCreatedHere Origin = "created_here"
	OriginUnknown     Origin = "unknown"
)

// File is one scanned file. Immutable once produced by the provider;
// Path is the unique key.
type File struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Parent     string    `json:"parent"`
	Kind       Kind      `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Origin     Origin    `json:"origin"`
}

// Directory is one scan root configured by the caller.
type Directory struct {
	Path      string `json:"path" yaml:"path"`
	Label     string `json:"label" yaml:"label"`
	CloudSync bool   `json:"cloud_sync" yaml:"cloud_sync"`
}

// Scope is the caller-owned scan configuration. The session reads it and
// never mutates it.
type Scope struct {
	Directories              []Directory `json:"directories" yaml:"directories"`
	UseRecommendedExclusions bool        `json:"use_recommended_exclusions" yaml:"use_recommended_exclusions"`
	CustomExclusions         []string    `json:"custom_exclusions" yaml:"custom_exclusions"`
}

// Status is the lifecycle state of a scan session.
type Status string

// Session statuses. Planning and building are advisory aliases of a busy
// scan kept only for display text; every other consumer treats the three
// busy states identically.
const (
	StatusIdle      Status = "idle"
	StatusPlanning  Status = "planning"
	StatusScanning  Status = "scanning"
	StatusBuilding  Status = "building"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Busy reports whether the status denotes an active scan.
func (s Status) Busy() bool {
	return s == StatusPlanning || s == StatusScanning || s == StatusBuilding
}

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// Progress is an immutable snapshot of session counters. The session
// replaces it wholesale on every transition; callers never see partial
// updates. Counters are monotonically non-decreasing within one session.
type Progress struct {
	SessionID      string     `json:"session_id,omitempty"`
	Status         Status     `json:"status"`
	ScannedCount   int64      `json:"scanned_count"`
	MatchedCount   int64      `json:"matched_count"`
	SkippedCount   int64      `json:"skipped_count"`
	StartedAt      time.Time  `json:"started_at,omitzero"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CurrentPath    string     `json:"current_path,omitempty"`
	Error          string     `json:"error,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
}

// FolderNode is one node of the provider's derived folder tree.
type FolderNode struct {
	Path      string        `json:"path"`
	Name      string        `json:"name"`
	FileCount int           `json:"file_count"`
	Children  []*FolderNode `json:"children,omitempty"`
}

// Record is the persisted outcome of the most recently completed scan:
// the range actually used, its resolved window, and summary counts.
// Filtering logic must never assume it matches the currently selected
// range.
type Record struct {
	Range       timewindow.Range  `json:"range"`
	Window      timewindow.Window `json:"window"`
	CompletedAt time.Time         `json:"completed_at"`
	FileCount   int               `json:"file_count"`
}

// TimeRecord adapts the record for window comparisons.
func (r *Record) TimeRecord() *timewindow.Record {
	if r == nil {
		return nil
	}
	return &timewindow.Record{Range: r.Range, Window: r.Window}
}
