package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tunegrab/internal/catalog"
	"tunegrab/internal/finalize"
	"tunegrab/internal/logging"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/services"
	"tunegrab/internal/ytdlp"
)

// Catalog is the persistent record store consulted for duplicates.
type Catalog interface {
	Lookup(ctx context.Context, id mediaid.ID) (*catalog.Record, error)
	Upsert(ctx context.Context, rec *catalog.Record) error
}

// Acquirer runs the extraction process for one identifier.
type Acquirer interface {
	Acquire(ctx context.Context, req ytdlp.Request, progress func(float64)) (*ytdlp.Result, error)
}

// Finalizer relocates a finished acquisition and builds its record.
type Finalizer interface {
	Finalize(ctx context.Context, req finalize.Request) (*catalog.Record, error)
}

// Reporter receives every state change and progress update of a running job.
// Transition returns ErrInvalidTransition for edges the state machine forbids.
type Reporter interface {
	Transition(next State, detail string) error
	Progress(percent float64)
}

// Result summarizes how a job ended.
type Result struct {
	State      State
	Kind       FailureKind
	Err        error
	Record     *catalog.Record
	Diagnostic string
}

// Pipeline drives one job from validation to a terminal state.
type Pipeline struct {
	catalog   Catalog
	acquirer  Acquirer
	finalizer Finalizer
	logger    *slog.Logger
}

// New constructs a pipeline. A nil logger discards output.
func New(acquirer Acquirer, finalizer Finalizer, cat Catalog, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		catalog:   cat,
		acquirer:  acquirer,
		finalizer: finalizer,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes job and returns its terminal outcome. Failures never escape as
// errors; they are reported through report and the returned Result.
func (p *Pipeline) Run(ctx context.Context, job Job, report Reporter) Result {
	ctx = services.WithMediaID(ctx, string(job.ID))
	r := &run{p: p, ctx: ctx, job: job, report: report}
	return r.execute()
}

type run struct {
	p      *Pipeline
	ctx    context.Context
	job    Job
	report Reporter
	logger *slog.Logger
}

func (r *run) enter(state State, detail string) {
	r.ctx = services.WithStage(r.ctx, string(state))
	r.logger = logging.WithContext(r.ctx, r.p.logger)
	if err := r.report.Transition(state, detail); err != nil {
		r.logger.Warn("job transition rejected",
			logging.String("target", string(state)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "invalid_transition"),
		)
	}
}

func (r *run) cancelled() Result {
	r.enter(StateCancelled, "cancelled")
	r.logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	return Result{State: StateCancelled}
}

func (r *run) fail(kind FailureKind, err error, transcript string) Result {
	diagnostic := err.Error()
	if transcript != "" {
		diagnostic += "\n" + transcript
	}
	r.enter(StateFailed, err.Error())
	logging.ErrorWithContext(r.logger, "job failed", "job_failed",
		logging.String("failure_kind", string(kind)),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.Error(err),
	)
	return Result{State: StateFailed, Kind: kind, Err: err, Diagnostic: diagnostic}
}

func (r *run) interrupted(err error) bool {
	return r.ctx.Err() != nil || errors.Is(err, context.Canceled)
}

func (r *run) execute() Result {
	if r.ctx.Err() != nil {
		return r.cancelled()
	}

	r.enter(StateValidating, "checking library")
	existing, err := r.p.catalog.Lookup(r.ctx, r.job.ID)
	if err != nil {
		if r.interrupted(err) {
			return r.cancelled()
		}
		return r.fail(KindCatalogFailed, services.Wrap(services.ErrTransient, "validating", "catalog lookup", string(r.job.ID), err), "")
	}
	if existing != nil {
		r.enter(StateDuplicateSkipped, "already in library: "+existing.LocalPath)
		r.logger.Info("skipping duplicate",
			logging.String("local_path", existing.LocalPath),
			logging.String(logging.FieldEventType, "duplicate_skipped"),
		)
		return Result{State: StateDuplicateSkipped, Record: existing}
	}
	if r.ctx.Err() != nil {
		return r.cancelled()
	}

	r.enter(StateAcquiring, "downloading")
	r.logger.Info("acquisition started", logging.String(logging.FieldEventType, "acquire_start"))
	sampler := logging.NewProgressSampler(0)
	acquired, err := r.p.acquirer.Acquire(r.ctx, ytdlp.Request{ID: r.job.ID}, func(percent float64) {
		r.report.Progress(percent)
		if sampler.ShouldLog(percent, string(StateAcquiring)) {
			r.logger.Debug("download progress", logging.Float64("percent", percent))
		}
	})
	if err != nil {
		if r.interrupted(err) {
			return r.cancelled()
		}
		return r.fail(KindAcquisitionFailed, err, acquired.Transcript())
	}
	if acquired == nil {
		acquired = &ytdlp.Result{}
	}

	r.enter(StateFinalizing, "moving into library")
	rec, err := r.p.finalizer.Finalize(r.ctx, finalize.Request{
		ID:          r.job.ID,
		Raw:         r.job.Raw,
		SidecarPath: acquired.Artifact.SidecarPath,
		OutputPath:  acquired.Artifact.OutputPath,
		BatchID:     batchID(r.ctx),
		StageDir:    acquired.StageDir,
	})
	if err != nil {
		if r.interrupted(err) {
			return r.cancelled()
		}
		return r.fail(KindFinalizationFailed, err, "")
	}

	// The file already sits in the library; record it even if the batch was
	// cancelled meanwhile.
	if err := r.p.catalog.Upsert(context.WithoutCancel(r.ctx), rec); err != nil {
		wrapped := services.Wrap(services.ErrTransient, "finalizing", "catalog upsert",
			fmt.Sprintf("file kept at %s", rec.LocalPath), err)
		return r.fail(KindCatalogFailed, wrapped, "")
	}

	r.enter(StateCompleted, rec.LocalPath)
	r.logger.Info("job completed",
		logging.String("local_path", rec.LocalPath),
		logging.String("title", strings.TrimSpace(rec.Title)),
		logging.String(logging.FieldEventType, "job_complete"),
	)
	return Result{State: StateCompleted, Record: rec}
}

func batchID(ctx context.Context) string {
	id, _ := services.BatchIDFromContext(ctx)
	return id
}
