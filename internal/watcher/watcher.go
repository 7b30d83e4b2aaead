// Package watcher observes the configured scan directories and suggests
// a rescan when their contents change. Suggestions are advisory: the
// watcher only publishes events, it never starts a scan itself.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/seralin/baleen/internal/event"
	"github.com/seralin/baleen/internal/scan"
)

// ScopeLister retrieves the currently configured scan scope.
type ScopeLister interface {
	LoadScope(ctx context.Context) (scan.Scope, error)
}

// SkipFunc reports whether changes under a directory should be ignored.
type SkipFunc func(path string) bool

// Service watches scope directories for create, remove, and rename
// events, coalescing bursts into a single rescan suggestion.
type Service struct {
	scope    ScopeLister
	skip     SkipFunc
	bus      *event.Bus
	logger   *slog.Logger
	debounce time.Duration

	refreshPeriod time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool
}

// NewService creates a watcher over the given scope. skip may be nil.
func NewService(scope ScopeLister, skip SkipFunc, bus *event.Bus, logger *slog.Logger, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &Service{
		scope:         scope,
		skip:          skip,
		bus:           bus,
		logger:        logger.With("component", "fs-watcher"),
		debounce:      debounce,
		refreshPeriod: 5 * time.Minute,
		watching:      make(map[string]bool),
	}
}

// SetRefreshPeriod overrides how often the watch list is reconciled with
// the scope (for testing).
func (s *Service) SetRefreshPeriod(d time.Duration) {
	s.refreshPeriod = d
}

// Start blocks until ctx is canceled. Scope directories are re-read
// periodically so configuration changes take effect without a restart.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("fsnotify unavailable, watcher disabled", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	s.refreshWatchPaths(ctx)

	s.logger.Info("filesystem watcher starting", "debounce", s.debounce)

	refreshTicker := time.NewTicker(s.refreshPeriod)
	defer refreshTicker.Stop()

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false
	var lastPath string

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			lastPath = ev.Name
			if !pending {
				pending = true
			} else if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if pending {
				pending = false
				s.logger.Info("directory contents changed, suggesting rescan", "path", lastPath)
				if s.bus != nil {
					s.bus.Publish(event.Event{
						Type: event.RescanSuggested,
						Data: map[string]any{"path": lastPath},
					})
				}
			}

		case <-refreshTicker.C:
			s.refreshWatchPaths(ctx)
		}
	}
}

// relevant filters out chmod noise, hidden entries, and anything under a
// skipped directory.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if s.skip != nil && s.skip(filepath.Dir(ev.Name)) {
		return false
	}
	return true
}

// refreshWatchPaths reconciles the fsnotify watch list with the scope.
func (s *Service) refreshWatchPaths(ctx context.Context) {
	scope, err := s.scope.LoadScope(ctx)
	if err != nil {
		s.logger.Error("loading scope for watcher", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(scope.Directories))
	for _, d := range scope.Directories {
		want[filepath.Clean(d.Path)] = true
	}

	for path := range s.watching {
		if !want[path] {
			if err := s.watcher.Remove(path); err != nil {
				s.logger.Debug("removing watch", "path", path, "error", err)
			}
			delete(s.watching, path)
			s.logger.Info("stopped watching", "path", path)
		}
	}
	for path := range want {
		if s.watching[path] {
			continue
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("watching directory", "path", path, "error", err)
			continue
		}
		s.watching[path] = true
		s.logger.Info("watching directory", "path", path)
	}
}
