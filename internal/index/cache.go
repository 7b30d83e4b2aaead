package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Lister is the external subsystem's paginated listing call.
type Lister interface {
	ListIndexedFiles(ctx context.Context, limit, offset int) ([]IndexedFile, int, error)
}

// Cache is a read-only snapshot of the external subsystem's indexed-file
// records, keyed by path. It is only ever rebuilt by a full re-fetch and
// swapped wholesale; field-level patching of a live snapshot is how stale
// partial-update bugs happen. Concurrent refreshes are coalesced: callers
// arriving while one is running wait for that one's result.
type Cache struct {
	lister   Lister
	logger   *slog.Logger
	pageSize int

	mu      sync.Mutex
	byPath  map[string]IndexedFile
	pending *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// NewCache creates an empty cache over the given lister.
func NewCache(lister Lister, pageSize int, logger *slog.Logger) *Cache {
	if pageSize < 1 {
		pageSize = 200
	}
	return &Cache{
		lister:   lister,
		logger:   logger.With("component", "index-cache"),
		pageSize: pageSize,
		byPath:   make(map[string]IndexedFile),
	}
}

// Get returns the record for path, if the snapshot has one.
func (c *Cache) Get(path string) (*IndexedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.byPath[path]
	if !ok {
		return nil, false
	}
	return &rec, true
}

// Len returns the number of records in the current snapshot.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPath)
}

// Refresh rebuilds the snapshot by paging through the external listing
// until the reported total is reached or a short page comes back. On any
// failure the prior snapshot is kept unchanged. A refresh already in
// flight is joined rather than run again.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.pending != nil {
		call := c.pending
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.pending = call
	c.mu.Unlock()

	snapshot, err := c.fetchAll(ctx)

	c.mu.Lock()
	if err == nil {
		c.byPath = snapshot
	}
	c.pending = nil
	c.mu.Unlock()

	call.err = err
	close(call.done)

	if err != nil {
		c.logger.Warn("cache refresh failed, keeping prior snapshot", "error", err)
	} else {
		c.logger.Debug("cache refreshed", "records", len(snapshot))
	}
	return err
}

func (c *Cache) fetchAll(ctx context.Context) (map[string]IndexedFile, error) {
	out := make(map[string]IndexedFile)
	offset := 0
	for {
		page, total, err := c.lister.ListIndexedFiles(ctx, c.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listing indexed files at offset %d: %w", offset, err)
		}
		for _, rec := range page {
			out[rec.Path] = rec
		}
		offset += len(page)
		if len(page) < c.pageSize || (total > 0 && offset >= total) || len(page) == 0 {
			return out, nil
		}
	}
}
