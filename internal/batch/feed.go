package batch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFeedClosed is returned by Fetch once the batch has finished and every
// buffered entry has been delivered.
var ErrFeedClosed = errors.New("batch feed closed")

// Entry is one line of the batch feed.
type Entry struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	MediaID   string    `json:"media_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Message   string    `json:"msg"`
}

// Feed is an ordered, bounded log of batch events. It shares the owning
// handle's mutex so feed order always matches counter updates.
type Feed struct {
	mu       *sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Entry
	nextSeq  uint64
	closed   bool
}

func newFeed(mu *sync.Mutex, capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	return &Feed{mu: mu, cond: sync.NewCond(mu), capacity: capacity}
}

// appendLocked adds an entry; the caller holds f.mu.
func (f *Feed) appendLocked(entry Entry) Entry {
	f.nextSeq++
	entry.Sequence = f.nextSeq
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(f.buffer) == f.capacity {
		copy(f.buffer, f.buffer[1:])
		f.buffer = f.buffer[:f.capacity-1]
	}
	f.buffer = append(f.buffer, entry)
	f.cond.Broadcast()
	return entry
}

// closeLocked wakes all waiters for the last time; the caller holds f.mu.
func (f *Feed) closeLocked() {
	f.closed = true
	f.cond.Broadcast()
}

// Fetch returns entries with a sequence greater than since. When wait is
// true it blocks until an entry arrives, the batch finishes or ctx ends.
func (f *Feed) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Entry, uint64, error) {
	if f == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}

	stopWaker := make(chan struct{})
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				f.mu.Lock()
				f.cond.Broadcast()
				f.mu.Unlock()
			case <-stopWaker:
			}
		}()
	}
	defer close(stopWaker)

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		entries, next := f.snapshotLocked(since, limit)
		if len(entries) > 0 || !wait {
			return entries, next, ctx.Err()
		}
		if f.closed {
			return nil, next, ErrFeedClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		f.cond.Wait()
	}
}

// Tail returns the most recent limit entries without blocking.
func (f *Feed) Tail(limit int) ([]Entry, uint64) {
	if f == nil {
		return nil, 0
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	start := max(len(f.buffer)-limit, 0)
	out := make([]Entry, len(f.buffer)-start)
	copy(out, f.buffer[start:])
	return out, f.nextSeq
}

func (f *Feed) snapshotLocked(since uint64, limit int) ([]Entry, uint64) {
	startIdx := len(f.buffer)
	for i, entry := range f.buffer {
		if entry.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx == len(f.buffer) {
		return nil, f.nextSeq
	}
	end := min(startIdx+limit, len(f.buffer))
	out := make([]Entry, end-startIdx)
	copy(out, f.buffer[startIdx:end])
	return out, out[len(out)-1].Sequence
}
