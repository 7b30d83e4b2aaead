package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/seralin/baleen/internal/event"
)

// Mode selects the external processing depth for an indexing request.
type Mode string

// Indexing modes.
const (
	ModeFast Mode = "fast"
	ModeDeep Mode = "deep"
)

// PolicyManual registers a directory without enrolling it in ambient
// re-scan triggers; only explicit requests touch it.
const PolicyManual = "manual"

// StagedIndexRequest is the lightweight indexing call used for fast mode.
type StagedIndexRequest struct {
	Folders []string `json:"folders,omitempty"`
	Files   []string `json:"files,omitempty"`
	Mode    string   `json:"mode,omitempty"`
}

// IndexRequest is the full indexing call used for deep mode.
type IndexRequest struct {
	Mode         string   `json:"mode"`
	Scope        string   `json:"scope"`
	Folders      []string `json:"folders,omitempty"`
	Files        []string `json:"files,omitempty"`
	IndexingMode string   `json:"indexing_mode,omitempty"`
}

// Indexer is the external subsystem's action surface.
type Indexer interface {
	RegisterDirectory(ctx context.Context, path, policy string) error
	RunStagedIndex(ctx context.Context, req StagedIndexRequest) error
	RunIndex(ctx context.Context, req IndexRequest) error
}

// Coordinator drives bulk indexing actions and owns the in-flight set:
// paths submitted for indexing whose outcome the external cache has not
// confirmed yet.
type Coordinator struct {
	client Indexer
	cache  *Cache
	bus    *event.Bus
	logger *slog.Logger

	mu         sync.Mutex
	inFlight   map[string]struct{}
	manualDirs map[string]struct{}
}

// NewCoordinator creates a coordinator. bus may be nil.
func NewCoordinator(client Indexer, cache *Cache, bus *event.Bus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client:     client,
		cache:      cache,
		bus:        bus,
		logger:     logger.With("component", "index-coordinator"),
		inFlight:   make(map[string]struct{}),
		manualDirs: make(map[string]struct{}),
	}
}

// InFlight reports whether path has a pending indexing request.
func (c *Coordinator) InFlight(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[path]
	return ok
}

// Status derives the indexing status of path from the cached record and
// the in-flight set.
func (c *Coordinator) Status(path string) Status {
	rec, _ := c.cache.Get(path)
	return Derive(rec, c.InFlight(path))
}

// ManualDirs returns directories registered under the manual policy, in
// stable order. The watcher consults this to keep them out of ambient
// re-scan triggering.
func (c *Coordinator) ManualDirs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.manualDirs))
	for d := range c.manualDirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IndexFiles submits paths for indexing in the given mode. Each distinct
// parent directory is registered under the manual policy first; a failed
// registration is logged and the remaining work continues. Exactly one
// indexing call is issued per invocation: a staged reindex for fast mode,
// a full deep-flagged run for deep. Whatever the outcome, the in-flight
// markers for exactly these paths are cleared and the indexed cache is
// refreshed in full.
func (c *Coordinator) IndexFiles(ctx context.Context, paths []string, mode Mode) error {
	if len(paths) == 0 {
		return nil
	}
	if mode != ModeFast && mode != ModeDeep {
		return fmt.Errorf("unknown indexing mode %q", mode)
	}

	c.mu.Lock()
	for _, p := range paths {
		c.inFlight[p] = struct{}{}
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		for _, p := range paths {
			delete(c.inFlight, p)
		}
		c.mu.Unlock()

		if err := c.cache.Refresh(ctx); err != nil {
			c.logger.Warn("refreshing indexed cache after submit", "error", err)
		}
	}()

	for _, dir := range parentDirs(paths) {
		if err := c.client.RegisterDirectory(ctx, dir, PolicyManual); err != nil {
			c.logger.Warn("registering directory", "path", dir, "error", err)
			continue
		}
		c.mu.Lock()
		c.manualDirs[dir] = struct{}{}
		c.mu.Unlock()
	}

	c.publish(event.IndexSubmitted, map[string]any{"files": len(paths), "mode": string(mode)})

	var err error
	switch mode {
	case ModeFast:
		err = c.client.RunStagedIndex(ctx, StagedIndexRequest{
			Files: paths,
			Mode:  "reindex",
		})
	case ModeDeep:
		err = c.client.RunIndex(ctx, IndexRequest{
			Mode:         "full",
			Scope:        "files",
			Files:        paths,
			IndexingMode: "deep",
		})
	}
	if err != nil {
		c.logger.Error("indexing call failed", "mode", string(mode), "files", len(paths), "error", err)
		return fmt.Errorf("running %s index: %w", mode, err)
	}

	c.publish(event.IndexCompleted, map[string]any{"files": len(paths), "mode": string(mode)})
	return nil
}

func (c *Coordinator) publish(t event.Type, data map[string]any) {
	if c.bus != nil {
		c.bus.Publish(event.Event{Type: t, Data: data})
	}
}

// parentDirs returns the distinct parent directories of paths in
// first-seen order.
func parentDirs(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}
