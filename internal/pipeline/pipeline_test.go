package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"tunegrab/internal/catalog"
	"tunegrab/internal/finalize"
	"tunegrab/internal/mediaid"
	"tunegrab/internal/pipeline"
	"tunegrab/internal/services"
	"tunegrab/internal/ytdlp"
)

const testID = mediaid.ID("BV1xx411c7mD")

type fakeCatalog struct {
	mu        sync.Mutex
	records   map[mediaid.ID]*catalog.Record
	lookupErr error
	upsertErr error
	lookups   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: map[mediaid.ID]*catalog.Record{}}
}

func (c *fakeCatalog) Lookup(_ context.Context, id mediaid.ID) (*catalog.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	return c.records[id], nil
}

func (c *fakeCatalog) Upsert(_ context.Context, rec *catalog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.upsertErr != nil {
		return c.upsertErr
	}
	c.records[rec.ID] = rec
	return nil
}

type fakeAcquirer struct {
	calls    int
	percents []float64
	result   *ytdlp.Result
	err      error
	onCall   func(ctx context.Context)
}

func (a *fakeAcquirer) Acquire(ctx context.Context, req ytdlp.Request, progress func(float64)) (*ytdlp.Result, error) {
	a.calls++
	if a.onCall != nil {
		a.onCall(ctx)
	}
	for _, p := range a.percents {
		progress(p)
	}
	if a.err == nil && ctx.Err() != nil {
		return a.result, ctx.Err()
	}
	return a.result, a.err
}

type fakeFinalizer struct {
	calls int
	req   finalize.Request
	err   error
}

func (f *fakeFinalizer) Finalize(_ context.Context, req finalize.Request) (*catalog.Record, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.Record{ID: req.ID, Title: "Song", LocalPath: "/library/Song.mp3", BatchID: req.BatchID}, nil
}

type recorder struct {
	job      pipeline.Job
	states   []pipeline.State
	percents []float64
}

func (r *recorder) Transition(next pipeline.State, detail string) error {
	if err := r.job.Apply(next); err != nil {
		return err
	}
	r.job.Detail = detail
	r.states = append(r.states, next)
	return nil
}

func (r *recorder) Progress(percent float64) {
	r.percents = append(r.percents, percent)
}

func newJob() pipeline.Job {
	return pipeline.Job{ID: testID, Raw: string(testID), State: pipeline.StatePending}
}

func successResult() *ytdlp.Result {
	return &ytdlp.Result{
		Artifact: ytdlp.Artifact{
			Percent:     100,
			SidecarPath: "/staging/BV1xx411c7mD/Song.info.json",
			OutputPath:  "/staging/BV1xx411c7mD/Song.mp3",
		},
		StageDir: "/staging/BV1xx411c7mD",
	}
}

func statesEqual(got, want []pipeline.State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRunCompletes(t *testing.T) {
	cat := newFakeCatalog()
	acq := &fakeAcquirer{result: successResult(), percents: []float64{10, 55, 100}}
	fin := &fakeFinalizer{}
	rec := &recorder{job: newJob()}

	ctx := services.WithBatchID(context.Background(), "batch-7")
	res := pipeline.New(acq, fin, cat, nil).Run(ctx, rec.job, rec)

	if res.State != pipeline.StateCompleted {
		t.Fatalf("state = %s, want completed (err %v)", res.State, res.Err)
	}
	want := []pipeline.State{pipeline.StateValidating, pipeline.StateAcquiring, pipeline.StateFinalizing, pipeline.StateCompleted}
	if !statesEqual(rec.states, want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	if len(rec.percents) != 3 || rec.percents[1] != 55 {
		t.Fatalf("percents = %v", rec.percents)
	}
	if fin.req.SidecarPath != successResult().Artifact.SidecarPath || fin.req.StageDir != "/staging/BV1xx411c7mD" {
		t.Fatalf("finalize request = %+v", fin.req)
	}
	if fin.req.BatchID != "batch-7" {
		t.Fatalf("batch id = %q, want batch-7", fin.req.BatchID)
	}
	if stored := cat.records[testID]; stored == nil || stored.LocalPath != "/library/Song.mp3" {
		t.Fatalf("catalog not updated: %+v", stored)
	}
	if rec.job.Detail != "/library/Song.mp3" {
		t.Fatalf("detail = %q", rec.job.Detail)
	}
}

func TestRunSkipsDuplicateWithoutAcquiring(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[testID] = &catalog.Record{ID: testID, LocalPath: "/library/Old.mp3"}
	acq := &fakeAcquirer{result: successResult()}
	rec := &recorder{job: newJob()}

	res := pipeline.New(acq, &fakeFinalizer{}, cat, nil).Run(context.Background(), rec.job, rec)

	if res.State != pipeline.StateDuplicateSkipped {
		t.Fatalf("state = %s, want duplicate_skipped", res.State)
	}
	if acq.calls != 0 {
		t.Fatalf("acquirer invoked %d times for duplicate", acq.calls)
	}
	want := []pipeline.State{pipeline.StateValidating, pipeline.StateDuplicateSkipped}
	if !statesEqual(rec.states, want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
}

func TestRunFailureKinds(t *testing.T) {
	exitErr := services.Wrap(services.ErrExternalTool, "acquiring", "yt-dlp", "url", &ytdlp.ExitError{Code: 1})
	tests := []struct {
		name     string
		setup    func(*fakeCatalog, *fakeAcquirer, *fakeFinalizer)
		kind     pipeline.FailureKind
		diagWant string
	}{
		{
			name: "lookup error",
			setup: func(c *fakeCatalog, _ *fakeAcquirer, _ *fakeFinalizer) {
				c.lookupErr = errors.New("disk I/O error")
			},
			kind:     pipeline.KindCatalogFailed,
			diagWant: "disk I/O error",
		},
		{
			name: "non-zero exit",
			setup: func(_ *fakeCatalog, a *fakeAcquirer, _ *fakeFinalizer) {
				a.result = &ytdlp.Result{ExitCode: 1, Output: []string{"ERROR: Video unavailable"}}
				a.err = exitErr
			},
			kind:     pipeline.KindAcquisitionFailed,
			diagWant: "ERROR: Video unavailable",
		},
		{
			name: "finalize error",
			setup: func(_ *fakeCatalog, _ *fakeAcquirer, f *fakeFinalizer) {
				f.err = finalize.ErrOutputMissing
			},
			kind:     pipeline.KindFinalizationFailed,
			diagWant: "output file missing",
		},
		{
			name: "upsert error",
			setup: func(c *fakeCatalog, _ *fakeAcquirer, _ *fakeFinalizer) {
				c.upsertErr = errors.New("database is full")
			},
			kind:     pipeline.KindCatalogFailed,
			diagWant: "file kept at /library/Song.mp3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newFakeCatalog()
			acq := &fakeAcquirer{result: successResult()}
			fin := &fakeFinalizer{}
			tt.setup(cat, acq, fin)
			rec := &recorder{job: newJob()}

			res := pipeline.New(acq, fin, cat, nil).Run(context.Background(), rec.job, rec)

			if res.State != pipeline.StateFailed {
				t.Fatalf("state = %s, want failed", res.State)
			}
			if res.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", res.Kind, tt.kind)
			}
			if !strings.Contains(res.Diagnostic, tt.diagWant) {
				t.Fatalf("diagnostic %q missing %q", res.Diagnostic, tt.diagWant)
			}
			if rec.job.State != pipeline.StateFailed {
				t.Fatalf("reporter state = %s", rec.job.State)
			}
		})
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := newFakeCatalog()
	acq := &fakeAcquirer{result: successResult()}
	rec := &recorder{job: newJob()}

	res := pipeline.New(acq, &fakeFinalizer{}, cat, nil).Run(ctx, rec.job, rec)

	if res.State != pipeline.StateCancelled {
		t.Fatalf("state = %s, want cancelled", res.State)
	}
	if cat.lookups != 0 || acq.calls != 0 {
		t.Fatalf("work performed after cancellation: lookups=%d acquires=%d", cat.lookups, acq.calls)
	}
}

func TestRunCancelledDuringAcquire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	acq := &fakeAcquirer{result: &ytdlp.Result{}, onCall: func(context.Context) { cancel() }}
	fin := &fakeFinalizer{}
	rec := &recorder{job: newJob()}

	res := pipeline.New(acq, fin, newFakeCatalog(), nil).Run(ctx, rec.job, rec)

	if res.State != pipeline.StateCancelled {
		t.Fatalf("state = %s, want cancelled", res.State)
	}
	if res.Err != nil {
		t.Fatalf("cancellation reported as error: %v", res.Err)
	}
	if fin.calls != 0 {
		t.Fatal("finalizer invoked after cancellation")
	}
	want := []pipeline.State{pipeline.StateValidating, pipeline.StateAcquiring, pipeline.StateCancelled}
	if !statesEqual(rec.states, want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
}
