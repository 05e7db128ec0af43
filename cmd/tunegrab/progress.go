package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"tunegrab/internal/batch"
	"tunegrab/internal/pipeline"
)

// progressView renders batch progress as a terminal bar. It is driven by
// coordinator events and never blocks workers for long.
type progressView struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressView(out io.Writer) *progressView {
	return &progressView{out: out}
}

func (v *progressView) observe(evt batch.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bar == nil {
		if evt.Snapshot.Total == 0 {
			return
		}
		v.bar = progressbar.NewOptions(evt.Snapshot.Total,
			progressbar.OptionSetWriter(v.out),
			progressbar.OptionSetDescription("fetching"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	snap := evt.Snapshot
	switch evt.Kind {
	case batch.EventProgress:
		v.bar.Describe(fmt.Sprintf("%s %3.0f%%", evt.Job.ID, evt.Job.Percent))
	case batch.EventTransition:
		if evt.Job.State.Terminal() {
			_ = v.bar.Set(snap.Completed + snap.Skipped + snap.Failed)
		}
		if evt.Job.State == pipeline.StateFailed {
			v.bar.Describe(fmt.Sprintf("%s failed", evt.Job.ID))
		}
	case batch.EventFinished:
		_ = v.bar.Finish()
	}
}

// streamFeed prints feed entries to out until the batch finishes.
func streamFeed(ctx context.Context, feed *batch.Feed, out io.Writer) {
	var since uint64
	for {
		entries, next, err := feed.Fetch(ctx, since, 0, true)
		for _, entry := range entries {
			fmt.Fprintf(out, "%s %-5s %s\n", entry.Timestamp.Local().Format("15:04:05"), entry.Level, entry.Message)
		}
		since = next
		if errors.Is(err, batch.ErrFeedClosed) || (err != nil && len(entries) == 0) {
			return
		}
	}
}
