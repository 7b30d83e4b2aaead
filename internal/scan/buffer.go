package scan

import "time"

// defaultFlushInterval is how long staged batches may sit before they are
// appended to the session's accumulated list in one operation.
const defaultFlushInterval = 500 * time.Millisecond

// ingestBuffer decouples the arrival rate of provider batches from the
// recompute rate of the result pipeline. Batches are staged append-only and
// released together once the flush interval has elapsed. Files are never
// dropped or reordered; a terminal event makes any remaining staged files
// irrelevant because the provider's final payload replaces the accumulated
// list wholesale.
type ingestBuffer struct {
	staged    []File
	lastFlush time.Time
	interval  time.Duration
}

func newIngestBuffer(now time.Time, interval time.Duration) *ingestBuffer {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &ingestBuffer{lastFlush: now, interval: interval}
}

// Add stages a batch and returns the accumulated stage when the flush
// interval has elapsed, or nil if the files should keep waiting.
func (b *ingestBuffer) Add(batch []File, now time.Time) []File {
	b.staged = append(b.staged, batch...)
	if now.Sub(b.lastFlush) < b.interval {
		return nil
	}
	return b.take(now)
}

// Flush releases whatever is staged regardless of elapsed time. Returns
// nil when nothing is staged.
func (b *ingestBuffer) Flush(now time.Time) []File {
	if len(b.staged) == 0 {
		return nil
	}
	return b.take(now)
}

func (b *ingestBuffer) take(now time.Time) []File {
	out := b.staged
	b.staged = nil
	b.lastFlush = now
	return out
}
