package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"tunegrab/internal/logging"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/pipeline"
)

// Status is the lifecycle of a whole batch.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// Snapshot is a consistent copy of the batch counters.
type Snapshot struct {
	BatchID   string  `json:"batch_id"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Cancelled int     `json:"cancelled"`
	Rejected  int     `json:"rejected"`
	Fraction  float64 `json:"fraction"`
	Status    Status  `json:"status"`
	Message   string  `json:"message"`
}

// Finished reports whether the terminal counters cover every job.
func (s Snapshot) Finished() bool {
	return s.Completed+s.Skipped+s.Failed == s.Total
}

// Summary is the final account of a batch.
type Summary struct {
	Snapshot
	Jobs       []pipeline.Job      `json:"jobs"`
	Rejections []mediaid.Rejection `json:"rejections,omitempty"`
	Elapsed    time.Duration       `json:"elapsed"`
}

// Handle tracks one submitted batch.
type Handle struct {
	id         string
	mu         sync.Mutex
	jobs       []pipeline.Job
	samplers   []*logging.ProgressSampler
	snap       Snapshot
	rejections []mediaid.Rejection
	feed       *Feed
	observers  []Observer
	logger     *slog.Logger

	cancel     context.CancelFunc
	cancelOnce sync.Once
	stopTimer  func()
	done       chan struct{}
	started    time.Time
	finished   time.Time
}

func newHandle(id string, feedCapacity int, observers []Observer) *Handle {
	h := &Handle{
		id:        id,
		observers: append([]Observer(nil), observers...),
		logger:    logging.NewNop(),
		done:      make(chan struct{}),
		started:   time.Now(),
	}
	h.feed = newFeed(&h.mu, feedCapacity)
	h.snap = Snapshot{BatchID: id, Status: StatusRunning}
	h.recomputeLocked()
	return h
}

// ID returns the batch identifier.
func (h *Handle) ID() string { return h.id }

// Feed returns the batch event feed.
func (h *Handle) Feed() *Feed { return h.feed }

// Done is closed exactly once when the batch reaches a terminal status.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Progress returns the current counters without waiting on workers.
func (h *Handle) Progress() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Jobs returns a copy of every job's current state.
func (h *Handle) Jobs() []pipeline.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]pipeline.Job, len(h.jobs))
	copy(out, h.jobs)
	return out
}

// Rejections lists the identifiers that failed validation.
func (h *Handle) Rejections() []mediaid.Rejection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]mediaid.Rejection(nil), h.rejections...)
}

// Cancel stops the batch. Running jobs end at their next output line and
// jobs not yet started are marked cancelled. Calling Cancel more than once
// has no further effect.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		if h.cancel == nil {
			return
		}
		h.logger.Info("batch cancel requested", logging.String(logging.FieldEventType, "batch_cancel"))
		h.cancel()
	})
}

// Wait blocks until the batch is done or ctx ends and returns the summary.
func (h *Handle) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-h.done:
		return h.Summary(), nil
	case <-ctx.Done():
		return h.Summary(), ctx.Err()
	}
}

// Summary returns the current account of the batch.
func (h *Handle) Summary() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	jobs := make([]pipeline.Job, len(h.jobs))
	copy(jobs, h.jobs)
	end := h.finished
	if end.IsZero() {
		end = time.Now()
	}
	return Summary{
		Snapshot:   h.snap,
		Jobs:       jobs,
		Rejections: append([]mediaid.Rejection(nil), h.rejections...),
		Elapsed:    end.Sub(h.started),
	}
}

func (h *Handle) job(idx int) pipeline.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jobs[idx]
}

func (h *Handle) transition(idx int, next pipeline.State, detail string) error {
	h.mu.Lock()
	job := &h.jobs[idx]
	if err := job.Apply(next); err != nil {
		h.mu.Unlock()
		return err
	}
	job.Detail = detail
	if next.Terminal() {
		switch next {
		case pipeline.StateCompleted:
			job.Percent = 100
			h.snap.Completed++
		case pipeline.StateDuplicateSkipped:
			h.snap.Skipped++
		case pipeline.StateCancelled:
			h.snap.Skipped++
			h.snap.Cancelled++
		case pipeline.StateFailed:
			h.snap.Failed++
		}
		h.recomputeLocked()
	}
	h.feed.appendLocked(transitionEntry(*job))
	evt := Event{Kind: EventTransition, BatchID: h.id, Job: *job, Snapshot: h.snap}
	h.mu.Unlock()

	h.notify(evt)
	return nil
}

func (h *Handle) progress(idx int, percent float64) {
	h.mu.Lock()
	job := &h.jobs[idx]
	if job.State.Terminal() {
		h.mu.Unlock()
		return
	}
	job.Percent = percent
	if h.samplers[idx].ShouldLog(percent, string(job.State)) {
		h.feed.appendLocked(Entry{
			Level:   "info",
			MediaID: job.ID.String(),
			State:   string(job.State),
			Message: fmt.Sprintf("%s: %s%%", job.ID, strconv.FormatFloat(percent, 'f', 1, 64)),
		})
	}
	evt := Event{Kind: EventProgress, BatchID: h.id, Job: *job, Snapshot: h.snap}
	h.mu.Unlock()

	h.notify(evt)
}

// record attaches the pipeline outcome to the job after its terminal
// transition.
func (h *Handle) record(idx int, result pipeline.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	job := &h.jobs[idx]
	job.Kind = result.Kind
	job.Diagnostic = result.Diagnostic
	if result.Record != nil {
		job.LocalPath = result.Record.LocalPath
	}
}

func (h *Handle) dropUndispatched(idx int) {
	if err := h.transition(idx, pipeline.StateCancelled, "cancelled before start"); err != nil {
		h.logger.Debug("undispatched job already terminal", logging.Int("index", idx), logging.Error(err))
	}
}

// finish moves the batch to a terminal status, notifies observers and then
// closes Done. Only the first call has any effect.
func (h *Handle) finish(status Status, message string) {
	h.mu.Lock()
	if h.snap.Status != StatusRunning {
		h.mu.Unlock()
		return
	}
	if h.stopTimer != nil {
		h.stopTimer()
	}
	h.finished = time.Now()
	h.snap.Status = status
	h.recomputeLocked()
	if message != "" {
		h.snap.Message = message
	}
	level := "info"
	if status != StatusCompleted {
		level = "warn"
	}
	h.feed.appendLocked(Entry{Level: level, State: string(status), Message: "batch " + string(status) + ": " + h.snap.Message})
	h.feed.closeLocked()
	snap := h.snap
	elapsed := h.finished.Sub(h.started)
	h.mu.Unlock()

	h.logger.Info("batch finished",
		logging.String("status", string(status)),
		logging.Int("total", snap.Total),
		logging.Int("completed", snap.Completed),
		logging.Int("skipped", snap.Skipped),
		logging.Int("failed", snap.Failed),
		logging.Int("rejected", snap.Rejected),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	h.notify(Event{Kind: EventFinished, BatchID: h.id, Snapshot: snap})
	close(h.done)
}

// recomputeLocked refreshes the fraction and status message; the caller
// holds h.mu.
func (h *Handle) recomputeLocked() {
	s := &h.snap
	if s.Total > 0 {
		s.Fraction = min(max(float64(s.Completed+s.Skipped+s.Failed)/float64(s.Total), 0), 1)
	} else {
		s.Fraction = 0
	}
	s.Message = fmt.Sprintf("total %d | completed %d | skipped %d | failed %d", s.Total, s.Completed, s.Skipped, s.Failed)
}

func (h *Handle) notify(evt Event) {
	for _, obs := range h.observers {
		obs(evt)
	}
}

func transitionEntry(job pipeline.Job) Entry {
	entry := Entry{
		Level:   "info",
		MediaID: job.ID.String(),
		State:   string(job.State),
		Message: fmt.Sprintf("%s: %s", job.ID, job.State),
	}
	switch job.State {
	case pipeline.StateFailed:
		entry.Level = "error"
		entry.Message += ": " + job.Detail
	case pipeline.StateCompleted:
		entry.Message += " -> " + job.Detail
	case pipeline.StateDuplicateSkipped, pipeline.StateCancelled:
		entry.Message += " (" + job.Detail + ")"
	}
	return entry
}

func quote(s string) string {
	return strconv.Quote(s)
}
