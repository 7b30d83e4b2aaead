// Package local implements the scan provider against the local
// filesystem. Directory trees are walked with bounded goroutine
// parallelism; results stream back to the session as an ordered event
// sequence produced by a single emitter.
package local

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seralin/baleen/internal/scan"
)

const (
	progressInterval = 200 * time.Millisecond
	batchSize        = 100
)

// recommendedExclusions are directory names skipped by default: tooling
// and system trees that are never user content.
var recommendedExclusions = map[string]struct{}{
	".git":         {},
	".svn":         {},
	".hg":          {},
	".cache":       {},
	".Trash":       {},
	"node_modules": {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"AppData":      {},
	"Library":      {},
}

// Scanner walks configured directories and streams scan events. It
// implements scan.Provider. One scan runs at a time from its own
// perspective; the session guarantees serialization.
type Scanner struct {
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	running context.CancelFunc
}

// NewScanner creates a filesystem scanner. concurrency <= 0 picks a
// default based on GOMAXPROCS.
func NewScanner(concurrency int, logger *slog.Logger) *Scanner {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0) * 2
	}
	return &Scanner{
		logger:      logger.With("component", "local-scanner"),
		concurrency: concurrency,
	}
}

// Scan starts walking req.Directories and returns the event stream. The
// channel closes after the terminal event.
func (s *Scanner) Scan(ctx context.Context, req scan.Request) (<-chan scan.Event, scan.CancelFunc, error) {
	for _, dir := range req.Directories {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			return nil, nil, &os.PathError{Op: "scan", Path: dir, Err: os.ErrInvalid}
		}
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.running != nil {
		s.running()
	}
	s.running = cancel
	s.mu.Unlock()

	events := make(chan scan.Event, 16)
	go s.run(scanCtx, req, events)

	return events, scan.CancelFunc(cancel), nil
}

// Cancel aborts the running scan, if any.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		s.running()
	}
}

// run owns the event channel: walkers feed results through an internal
// channel and only this goroutine writes events, so ordering holds.
func (s *Scanner) run(ctx context.Context, req scan.Request, events chan<- scan.Event) {
	defer close(events)

	window := newWindowFilter(req, time.Now().UTC())
	matcher := newExclusionMatcher(req)

	var scanned, matched, skipped atomic.Int64
	var currentPath atomic.Value
	currentPath.Store("")

	results := make(chan scan.File, 256)
	sem := make(chan struct{}, s.concurrency)

	var wg sync.WaitGroup
	for _, root := range req.Directories {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			s.walk(ctx, root, matcher, window, sem, &wg, results, &scanned, &matched, &skipped, &currentPath)
		}(root)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var all []scan.File
	var pending []scan.File

	flush := func() {
		if len(pending) == 0 {
			return
		}
		events <- scan.Event{Batch: pending}
		pending = nil
	}
	progress := func() scan.Event {
		return scan.Event{Progress: &scan.ProgressUpdate{
			Phase:        scan.StatusScanning,
			ScannedCount: scanned.Load(),
			MatchedCount: matched.Load(),
			SkippedCount: skipped.Load(),
			CurrentPath:  currentPath.Load().(string),
		}}
	}

	for {
		select {
		case f, ok := <-results:
			if !ok {
				flush()
				events <- progress()
				events <- scan.Event{Complete: &scan.Complete{
					Files:   all,
					Tree:    buildTree(req.Directories, all),
					Partial: ctx.Err() != nil,
				}}
				s.logger.Info("scan finished",
					"scanned", scanned.Load(), "matched", matched.Load(),
					"partial", ctx.Err() != nil)
				return
			}
			all = append(all, f)
			pending = append(pending, f)
			if len(pending) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
			events <- progress()
		}
	}
}

// walk descends one directory. Subdirectories run on the shared worker
// pool when a slot is free and inline otherwise, so a full pool degrades
// to sequential traversal instead of blocking.
func (s *Scanner) walk(
	ctx context.Context,
	dir string,
	matcher *exclusionMatcher,
	window windowFilter,
	sem chan struct{},
	wg *sync.WaitGroup,
	results chan<- scan.File,
	scanned, matched, skipped *atomic.Int64,
	currentPath *atomic.Value,
) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug("reading directory", "path", dir, "error", err)
		skipped.Add(1)
		return
	}
	currentPath.Store(dir)

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		name := entry.Name()
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			if matcher.excluded(name) {
				skipped.Add(1)
				continue
			}
			select {
			case sem <- struct{}{}:
				wg.Add(1)
				go func(p string) {
					defer wg.Done()
					defer func() { <-sem }()
					s.walk(ctx, p, matcher, window, sem, wg, results, scanned, matched, skipped, currentPath)
				}(full)
			default:
				s.walk(ctx, full, matcher, window, sem, wg, results, scanned, matched, skipped, currentPath)
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		scanned.Add(1)
		if matcher.excluded(name) {
			skipped.Add(1)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			skipped.Add(1)
			continue
		}
		if !window.contains(info.ModTime()) {
			skipped.Add(1)
			continue
		}

		matched.Add(1)
		f := scan.File{
			Path:       full,
			Name:       name,
			Parent:     dir,
			Kind:       classify(name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
			Origin:     inferOrigin(full),
		}
		select {
		case results <- f:
		case <-ctx.Done():
			return
		}
	}
}

// windowFilter bounds files by modification time. The zero value passes
// everything.
type windowFilter struct {
	from, to time.Time
	bounded  bool
}

func newWindowFilter(req scan.Request, now time.Time) windowFilter {
	switch {
	case req.From != nil && req.To != nil:
		return windowFilter{from: *req.From, to: *req.To, bounded: true}
	case req.DaysBack > 0:
		return windowFilter{from: now.AddDate(0, 0, -req.DaysBack), to: now, bounded: true}
	default:
		return windowFilter{}
	}
}

func (w windowFilter) contains(t time.Time) bool {
	if !w.bounded {
		return true
	}
	return !t.Before(w.from) && !t.After(w.to)
}

// exclusionMatcher combines the recommended name set with caller glob
// patterns. Patterns match the base name only.
type exclusionMatcher struct {
	recommended bool
	patterns    []string
}

func newExclusionMatcher(req scan.Request) *exclusionMatcher {
	return &exclusionMatcher{
		recommended: req.UseRecommendedExclusions,
		patterns:    req.CustomExclusions,
	}
}

func (m *exclusionMatcher) excluded(name string) bool {
	if m.recommended {
		if _, ok := recommendedExclusions[name]; ok {
			return true
		}
	}
	for _, p := range m.patterns {
		if p == name {
			return true
		}
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

var kindByExt = map[string]scan.Kind{
	".pdf": scan.KindDocument, ".doc": scan.KindDocument, ".docx": scan.KindDocument,
	".odt": scan.KindDocument, ".rtf": scan.KindDocument, ".txt": scan.KindDocument,
	".md": scan.KindDocument, ".xls": scan.KindDocument, ".xlsx": scan.KindDocument,
	".ods": scan.KindDocument, ".csv": scan.KindDocument, ".ppt": scan.KindDocument,
	".pptx": scan.KindDocument, ".odp": scan.KindDocument,

	".jpg": scan.KindImage, ".jpeg": scan.KindImage, ".png": scan.KindImage,
	".gif": scan.KindImage, ".bmp": scan.KindImage, ".svg": scan.KindImage,
	".webp": scan.KindImage, ".tiff": scan.KindImage, ".tif": scan.KindImage,
	".heic": scan.KindImage, ".heif": scan.KindImage, ".avif": scan.KindImage,
	".raw": scan.KindImage, ".cr2": scan.KindImage, ".nef": scan.KindImage,

	".mp4": scan.KindVideo, ".mkv": scan.KindVideo, ".avi": scan.KindVideo,
	".mov": scan.KindVideo, ".wmv": scan.KindVideo, ".webm": scan.KindVideo,
	".m4v": scan.KindVideo, ".mpg": scan.KindVideo, ".mpeg": scan.KindVideo,

	".mp3": scan.KindAudio, ".flac": scan.KindAudio, ".wav": scan.KindAudio,
	".aac": scan.KindAudio, ".ogg": scan.KindAudio, ".m4a": scan.KindAudio,
	".opus": scan.KindAudio, ".wma": scan.KindAudio,

	".zip": scan.KindArchive, ".tar": scan.KindArchive, ".gz": scan.KindArchive,
	".bz2": scan.KindArchive, ".xz": scan.KindArchive, ".7z": scan.KindArchive,
	".rar": scan.KindArchive,

	".epub": scan.KindBook, ".mobi": scan.KindBook, ".azw3": scan.KindBook,
	".fb2": scan.KindBook, ".djvu": scan.KindBook,

	".go": scan.KindCode, ".py": scan.KindCode, ".js": scan.KindCode,
	".ts": scan.KindCode, ".jsx": scan.KindCode, ".tsx": scan.KindCode,
	".c": scan.KindCode, ".h": scan.KindCode, ".cpp": scan.KindCode,
	".rs": scan.KindCode, ".java": scan.KindCode, ".rb": scan.KindCode,
	".php": scan.KindCode, ".cs": scan.KindCode, ".sh": scan.KindCode,
	".sql": scan.KindCode, ".html": scan.KindCode, ".css": scan.KindCode,
	".json": scan.KindCode, ".yaml": scan.KindCode, ".yml": scan.KindCode,
	".toml": scan.KindCode,
}

func classify(name string) scan.Kind {
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return scan.KindOther
}

// inferOrigin guesses how a file arrived from its path segments. Best
// effort only.
func inferOrigin(path string) scan.Origin {
	for _, seg := range strings.Split(path, string(filepath.Separator)) {
		switch seg {
		case "Downloads":
			return scan.OriginDownloaded
		case "Dropbox", "OneDrive", "Google Drive", "iCloud Drive", "Nextcloud":
			return scan.OriginSynced
		case "Documents", "Desktop":
			return scan.OriginCreatedHere
		}
	}
	return scan.OriginUnknown
}

// buildTree folds the flat file list into a folder tree rooted at the
// scanned directories. Counts are per-folder, not cumulative.
func buildTree(roots []string, files []scan.File) *scan.FolderNode {
	top := &scan.FolderNode{Path: "", Name: ""}
	nodes := map[string]*scan.FolderNode{"": top}

	ensure := func(path string) *scan.FolderNode {
		if n, ok := nodes[path]; ok {
			return n
		}
		n := &scan.FolderNode{Path: path, Name: filepath.Base(path)}
		nodes[path] = n
		return n
	}

	var link func(path string, stop map[string]struct{}) *scan.FolderNode
	rootSet := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		rootSet[filepath.Clean(r)] = struct{}{}
	}
	link = func(path string, stop map[string]struct{}) *scan.FolderNode {
		if n, ok := nodes[path]; ok {
			return n
		}
		n := ensure(path)
		var parent *scan.FolderNode
		if _, isRoot := stop[path]; isRoot {
			parent = top
		} else {
			up := filepath.Dir(path)
			if up == path {
				parent = top
			} else {
				parent = link(up, stop)
			}
		}
		parent.Children = append(parent.Children, n)
		return n
	}

	for _, r := range roots {
		link(filepath.Clean(r), rootSet)
	}
	for _, f := range files {
		n := link(filepath.Clean(f.Parent), rootSet)
		n.FileCount++
	}

	var sortChildren func(n *scan.FolderNode)
	sortChildren = func(n *scan.FolderNode) {
		sort.Slice(n.Children, func(i, j int) bool {
			return n.Children[i].Path < n.Children[j].Path
		})
		for _, c := range n.Children {
			sortChildren(c)
		}
	}
	sortChildren(top)
	return top
}
