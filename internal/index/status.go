// Package index tracks what the external indexing subsystem knows about
// scanned files: a cached snapshot of its records, derivation of a
// per-file status, and coordination of bulk indexing actions.
package index

import "strings"

// Status is the derived indexing state of one path.
type Status string

// Derived statuses. Fast and deep correspond to the external subsystem's
// two processing modes; pending marks a path submitted but not yet
// confirmed.
const (
	StatusNotIndexed Status = "not_indexed"
	StatusFast       Status = "fast"
	StatusDeep       Status = "deep"
	StatusPending    Status = "pending"
	StatusError      Status = "error"
)

// Indexed reports whether the status counts as indexed for filtering
// purposes. Pending counts: the file is on its way into the index.
func (s Status) Indexed() bool {
	return s == StatusFast || s == StatusDeep || s == StatusPending
}

// IndexedFile is the external subsystem's record for one path. Metadata is
// a free-form record whose shape the provider does not guarantee.
type IndexedFile struct {
	Path     string         `json:"path"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Metadata fields consulted to infer the processing mode, in fallback
// order. Field presence is never assumed.
const (
	metaChunking = "chunking_strategy"
	metaVision   = "vision_mode"
)

// Derive maps an external record plus local in-flight tracking onto the
// status lattice. Precedence: in-flight beats everything, then missing
// record, then a record-level error, then metadata inspection, and a
// record with no contrary signal defaults to fast.
func Derive(rec *IndexedFile, inFlight bool) Status {
	if inFlight {
		return StatusPending
	}
	if rec == nil {
		return StatusNotIndexed
	}
	if rec.Status == "error" {
		return StatusError
	}

	if v, ok := stringField(rec.Metadata, metaChunking); ok {
		switch {
		case strings.Contains(v, "fine"):
			return StatusDeep
		case strings.Contains(v, "fast"):
			return StatusFast
		}
	}
	if v, ok := stringField(rec.Metadata, metaVision); ok {
		switch v {
		case "deep":
			return StatusDeep
		case "fast":
			return StatusFast
		}
	}

	// A record exists and nothing says otherwise: the cheaper mode was used.
	return StatusFast
}

func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
