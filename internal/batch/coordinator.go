package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunegrab/internal/config"
	"tunegrab/internal/logging"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/pipeline"
	"tunegrab/internal/services"
)

const (
	defaultFeedCapacity = 1024
	defaultTimeout      = 2 * time.Hour
)

// EventKind distinguishes observer notifications.
type EventKind string

const (
	EventTransition EventKind = "transition"
	EventProgress   EventKind = "progress"
	EventFinished   EventKind = "finished"
)

// Event is delivered to observers outside the coordinator lock.
type Event struct {
	Kind     EventKind
	BatchID  string
	Job      pipeline.Job
	Snapshot Snapshot
}

// Observer receives batch events. Observers run on worker goroutines and
// must not block for long.
type Observer func(Event)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds how long a batch may run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithObserver registers an observer for every batch submitted afterwards.
func WithObserver(obs Observer) Option {
	return func(c *Coordinator) {
		if obs != nil {
			c.observers = append(c.observers, obs)
		}
	}
}

// WithFeedCapacity bounds the number of feed entries retained per batch.
func WithFeedCapacity(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.feedCapacity = n
		}
	}
}

// Coordinator validates identifiers and runs accepted jobs on a bounded
// worker pool.
type Coordinator struct {
	pipeline     *pipeline.Pipeline
	logger       *slog.Logger
	timeout      time.Duration
	feedCapacity int
	observers    []Observer
}

// New constructs a coordinator around the pipeline collaborators.
func New(acquirer pipeline.Acquirer, finalizer pipeline.Finalizer, cat pipeline.Catalog, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       logging.NewNop(),
		timeout:      defaultTimeout,
		feedCapacity: defaultFeedCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "batch")
	c.pipeline = pipeline.New(acquirer, finalizer, cat, c.logger)
	return c
}

// Submit starts a batch for raws and returns immediately. maxConcurrency is
// clamped to the supported worker range. A context that is already done
// produces a finished, empty batch.
func (c *Coordinator) Submit(ctx context.Context, raws []string, maxConcurrency int) *Handle {
	workers := config.ClampConcurrency(maxConcurrency)
	ids, rejected := mediaid.Collect(raws)

	h := newHandle(uuid.NewString(), c.feedCapacity, c.observers)
	h.logger = c.logger.With(logging.String(logging.FieldBatchID, h.id))

	h.mu.Lock()
	h.rejections = rejected
	h.snap.Rejected = len(rejected)
	for _, rej := range rejected {
		h.feed.appendLocked(Entry{Level: "warn", Message: "rejected " + quote(rej.Raw) + ": " + rej.Reason})
	}
	h.mu.Unlock()
	for _, rej := range rejected {
		h.logger.Info("identifier rejected",
			logging.String("raw", rej.Raw),
			logging.String("reason", rej.Reason),
			logging.String(logging.FieldEventType, "identifier_rejected"),
		)
	}

	if ctx.Err() != nil {
		h.logger.Info("batch cancelled before start", logging.Int("rejected", len(rejected)))
		h.finish(StatusCancelled, "")
		return h
	}

	h.mu.Lock()
	h.jobs = make([]pipeline.Job, len(ids))
	h.samplers = make([]*logging.ProgressSampler, len(ids))
	for i, id := range ids {
		h.jobs[i] = pipeline.Job{ID: id, Raw: id.String(), State: pipeline.StatePending}
		h.samplers[i] = logging.NewProgressSampler(0)
	}
	h.snap.Total = len(ids)
	h.recomputeLocked()
	h.mu.Unlock()

	if len(ids) == 0 {
		h.finish(StatusCompleted, "")
		return h
	}

	batchCtx, cancel := context.WithCancel(services.WithBatchID(ctx, h.id))
	h.cancel = cancel
	if c.timeout > 0 {
		h.mu.Lock()
		timer := time.AfterFunc(c.timeout, func() {
			h.finish(StatusTimedOut, "timed out, jobs may still be running")
			cancel()
		})
		h.stopTimer = func() { timer.Stop() }
		h.mu.Unlock()
	}

	h.logger.Info("batch started",
		logging.Int("jobs", len(ids)),
		logging.Int("rejected", len(rejected)),
		logging.Int("workers", workers),
		logging.String(logging.FieldEventType, "batch_start"),
	)

	queue := make(chan int)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(queue)
		for i := range ids {
			select {
			case queue <- i:
			case <-batchCtx.Done():
				for j := i; j < len(ids); j++ {
					h.dropUndispatched(j)
				}
				return
			}
		}
	}()

	for w := 0; w < min(workers, len(ids)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				job := h.job(idx)
				result := c.pipeline.Run(batchCtx, job, jobReporter{h: h, idx: idx})
				h.record(idx, result)
			}
		}()
	}

	go func() {
		wg.Wait()
		status := StatusCompleted
		if batchCtx.Err() != nil {
			status = StatusCancelled
		}
		h.finish(status, "")
		cancel()
	}()

	return h
}

type jobReporter struct {
	h   *Handle
	idx int
}

func (r jobReporter) Transition(next pipeline.State, detail string) error {
	return r.h.transition(r.idx, next, detail)
}

func (r jobReporter) Progress(percent float64) {
	r.h.progress(r.idx, percent)
}
