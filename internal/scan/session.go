package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seralin/baleen/internal/event"
	"github.com/seralin/baleen/internal/timewindow"
)

// errProviderUnavailable is the fixed message used when the provider
// cannot be reached at all. Provider-reported errors are carried verbatim.
const errProviderUnavailable = "scan provider unavailable"

// Session owns the lifecycle of one scan at a time: idle, busy
// (scanning, with planning/building as display-only aliases), then one of
// completed, cancelled, or error. Terminal states persist until the next
// Start, which unconditionally discards accumulated results and counters.
//
// All mutation happens through Start and Cancel plus the internal event
// consumer; readers get immutable snapshots.
type Session struct {
	provider Provider
	store    *Store
	bus      *event.Bus
	logger   *slog.Logger

	flushInterval time.Duration
	tickInterval  time.Duration

	mu       sync.Mutex
	gen      int
	progress Progress
	files    []File
	tree     *FolderNode
	record   *Record
	pending  *Record // range/window of the in-flight scan
	cancelFn CancelFunc
}

// NewSession creates a session driving the given provider. store and bus
// may be nil.
func NewSession(provider Provider, store *Store, bus *event.Bus, logger *slog.Logger) *Session {
	return &Session{
		provider:      provider,
		store:         store,
		bus:           bus,
		logger:        logger.With("component", "scan-session"),
		flushInterval: defaultFlushInterval,
		tickInterval:  time.Second,
		progress:      Progress{Status: StatusIdle},
	}
}

// SetIntervals overrides the ingestion flush and elapsed-time tick
// intervals (for testing).
func (s *Session) SetIntervals(flush, tick time.Duration) {
	s.flushInterval = flush
	s.tickInterval = tick
}

// Restore installs a previously persisted scan outcome so the view and
// window comparisons survive a restart. Lifecycle status stays idle.
func (s *Session) Restore(record *Record, files []File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	s.files = dropCode(files)
}

// Progress returns the current progress snapshot.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress
	if p.Status.Busy() {
		p.ElapsedSeconds = int64(time.Since(p.StartedAt).Seconds())
	}
	return p
}

// Files returns the accumulated file list. The returned slice is shared
// and must be treated as read-only; entries are immutable.
func (s *Session) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}

// Tree returns the provider's derived folder tree from the last terminal
// payload, if any.
func (s *Session) Tree() *FolderNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Record returns the record of the last completed scan, or nil.
func (s *Session) Record() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Start begins a new scan over scope, restricted to the given range.
// An empty directory scope is a configuration error the UI is expected to
// prevent; it is silently refused. A scan already in flight is superseded:
// its cancellation handle is invoked and its remaining events are ignored.
func (s *Session) Start(ctx context.Context, scope Scope, rng timewindow.Range) {
	if len(scope.Directories) == 0 {
		s.logger.Debug("scan refused, empty directory scope")
		return
	}

	now := time.Now().UTC()
	window := timewindow.Resolve(rng, now)
	req := buildRequest(scope, rng, window)

	s.mu.Lock()
	if s.cancelFn != nil {
		// Old provider work must not be orphaned.
		go s.cancelFn()
		s.cancelFn = nil
	}
	s.gen++
	gen := s.gen
	id := uuid.New().String()
	s.progress = Progress{
		SessionID: id,
		Status:    StatusScanning,
		StartedAt: now,
	}
	s.files = nil
	s.tree = nil
	s.pending = &Record{Range: rng, Window: window}
	s.mu.Unlock()

	events, cancel, err := s.provider.Scan(ctx, req)
	if err != nil {
		s.logger.Error("starting scan", "error", err)
		s.mu.Lock()
		if gen == s.gen {
			s.finalize(StatusError, errProviderUnavailable, now)
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		// Superseded between Scan and here; stop the orphan.
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancelFn = cancel
	s.mu.Unlock()

	s.publish(event.ScanStarted, map[string]any{"session_id": id})
	s.logger.Info("scan started", "session_id", id, "directories", len(scope.Directories), "selector", string(rng.Selector))

	go s.consume(ctx, gen, events)
}

// Cancel requests best-effort cancellation. Local status flips to
// cancelled immediately so callers are not blocked on provider
// acknowledgment; the per-scan handle and the provider's global cancel are
// then invoked. Idempotent; a no-op when no scan is busy.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.progress.Status.Busy() {
		s.mu.Unlock()
		return
	}
	s.finalize(StatusCancelled, "", time.Now().UTC())
	cancel := s.cancelFn
	id := s.progress.SessionID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.provider.Cancel()

	s.publish(event.ScanCancelled, map[string]any{"session_id": id})
	s.logger.Info("scan cancelled", "session_id", id)
}

// consume drains one scan's event stream in delivery order. The tick also
// drives staged-batch flushing, so a quiet provider cannot strand files in
// the buffer.
func (s *Session) consume(ctx context.Context, gen int, events <-chan Event) {
	buf := newIngestBuffer(time.Now(), s.flushInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(gen, ev, buf)
		case <-ticker.C:
			s.flushStaged(gen, buf)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) apply(gen int, ev Event, buf *ingestBuffer) {
	now := time.Now().UTC()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	switch {
	case ev.Progress != nil:
		if s.progress.Status.Terminal() {
			// Locally overridden (cancelled); only the terminal event
			// is still honored.
			s.mu.Unlock()
			return
		}
		s.applyProgress(*ev.Progress, now)
		s.mu.Unlock()

	case ev.Batch != nil:
		if s.progress.Status.Terminal() {
			s.mu.Unlock()
			return
		}
		if flushed := buf.Add(dropCode(ev.Batch), now); flushed != nil {
			s.files = append(s.files, flushed...)
		}
		s.mu.Unlock()

	case ev.Complete != nil:
		s.applyComplete(*ev.Complete, now)

	case ev.Err != "":
		if s.progress.Status.Terminal() {
			s.mu.Unlock()
			return
		}
		s.finalize(StatusError, ev.Err, now)
		id := s.progress.SessionID
		s.mu.Unlock()
		s.publish(event.ScanFailed, map[string]any{"session_id": id, "error": ev.Err})
		s.logger.Error("scan failed", "session_id", id, "error", ev.Err)

	default:
		s.mu.Unlock()
	}
}

// applyProgress merges a counter update into a fresh snapshot. Counters
// never decrease within one session; CurrentPath and the advisory phase
// are display-only.
func (s *Session) applyProgress(u ProgressUpdate, now time.Time) {
	p := s.progress
	p.ScannedCount = max(p.ScannedCount, u.ScannedCount)
	p.MatchedCount = max(p.MatchedCount, u.MatchedCount)
	p.SkippedCount = max(p.SkippedCount, u.SkippedCount)
	if u.CurrentPath != "" {
		p.CurrentPath = u.CurrentPath
	}
	if u.Phase.Busy() {
		p.Status = u.Phase
	}
	p.ElapsedSeconds = int64(now.Sub(p.StartedAt).Seconds())
	s.progress = p
}

// applyComplete installs the provider's authoritative final payload. It
// runs even after a local cancel, replacing whatever batches accumulated,
// but a locally cancelled session never transitions back to completed.
// Must be entered holding s.mu; releases it.
func (s *Session) applyComplete(c Complete, now time.Time) {
	s.files = dropCode(c.Files)
	s.tree = c.Tree

	locallyCancelled := s.progress.Status == StatusCancelled
	if !locallyCancelled && !s.progress.Status.Terminal() {
		if c.Partial {
			s.finalize(StatusCancelled, "", now)
		} else {
			s.finalize(StatusCompleted, "", now)
		}
	}

	status := s.progress.Status
	id := s.progress.SessionID

	var record *Record
	if status == StatusCompleted && s.pending != nil {
		record = &Record{
			Range:       s.pending.Range,
			Window:      s.pending.Window,
			CompletedAt: now,
			FileCount:   len(s.files),
		}
		s.record = record
	}
	files := s.files
	s.cancelFn = nil
	s.mu.Unlock()

	if record != nil && s.store != nil {
		if err := s.store.SaveRecord(context.Background(), record, files); err != nil {
			s.logger.Error("persisting scan record", "error", err)
		}
	}

	switch status {
	case StatusCompleted:
		s.publish(event.ScanCompleted, map[string]any{"session_id": id, "files": len(files)})
		s.logger.Info("scan completed", "session_id", id, "files", len(files))
	case StatusCancelled:
		s.publish(event.ScanCancelled, map[string]any{"session_id": id, "files": len(files), "partial": true})
		s.logger.Info("scan ended partial", "session_id", id, "files", len(files))
	}
}

func (s *Session) flushStaged(gen int, buf *ingestBuffer) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.progress.Status.Terminal() {
		return
	}
	if flushed := buf.Flush(now); flushed != nil {
		s.files = append(s.files, flushed...)
	}
	// Keep the live elapsed display moving even when the provider is quiet.
	p := s.progress
	p.ElapsedSeconds = int64(now.Sub(p.StartedAt).Seconds())
	s.progress = p
}

// finalize moves the session to a terminal status and freezes elapsed
// time. Caller holds s.mu.
func (s *Session) finalize(status Status, errMsg string, now time.Time) {
	p := s.progress
	p.Status = status
	p.Error = errMsg
	p.CurrentPath = ""
	completed := now
	p.CompletedAt = &completed
	if !p.StartedAt.IsZero() {
		p.ElapsedSeconds = int64(completed.Sub(p.StartedAt).Seconds())
	}
	s.progress = p
}

func (s *Session) publish(t event.Type, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(event.Event{Type: t, Data: data})
	}
}

// buildRequest translates scope and window into the provider request.
// Relative selectors travel as a day count, bounded ones as instants, and
// all-time as no bounds at all.
func buildRequest(scope Scope, rng timewindow.Range, window timewindow.Window) Request {
	req := Request{
		UseRecommendedExclusions: scope.UseRecommendedExclusions,
		CustomExclusions:         scope.CustomExclusions,
	}
	for _, d := range scope.Directories {
		req.Directories = append(req.Directories, d.Path)
	}

	switch rng.Selector {
	case timewindow.SelectorAllTime:
		// Unbounded: no window fields.
	case timewindow.SelectorYear, timewindow.SelectorCustom:
		from, to := window.From, window.To
		req.From = &from
		req.To = &to
	default:
		req.DaysBack = int(window.To.Sub(window.From).Hours() / 24)
	}
	return req
}

// dropCode filters out the upstream code kind so it never reaches
// accumulated state.
func dropCode(files []File) []File {
	out := make([]File, 0, len(files))
	for _, f := range files {
		if f.Kind == KindCode {
			continue
		}
		out = append(out, f)
	}
	return out
}
