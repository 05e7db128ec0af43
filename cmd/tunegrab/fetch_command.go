package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tunegrab/internal/batch"
	"tunegrab/internal/finalize"
	"tunegrab/internal/logging"
	"tunegrab/internal/notifications"
	"tunegrab/internal/pipeline"
	"tunegrab/internal/preflight"
	"tunegrab/internal/staging"
	"tunegrab/internal/ytdlp"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var file string
	var concurrency int
	var jsonOut bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "fetch [ids...]",
		Short: "Acquire audio for one or more identifiers",
		Long: "Fetch validates the given BV codes or video URLs, downloads each through yt-dlp,\n" +
			"moves the audio into the library and records it in the catalog. Items already\n" +
			"in the catalog are skipped. Ctrl-C cancels the batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			raws, err := gatherIdentifiers(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(raws) == 0 {
				return errors.New("no identifiers given (pass ids as arguments or use --file)")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if !skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					parts := make([]string, 0, len(failed))
					for _, r := range failed {
						parts = append(parts, r.Name+": "+r.Detail)
					}
					return fmt.Errorf("preflight failed (run `tunegrab check`): %s", strings.Join(parts, "; "))
				}
			}

			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			if hours := cfg.Batch.StagingRetentionHours; hours > 0 {
				staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, time.Duration(hours)*time.Hour, logger)
			}

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := ytdlp.New(ytdlp.OptionsFromConfig(cfg), ytdlp.WithLogger(logger))
			if err != nil {
				return err
			}

			workers := cfg.Batch.MaxConcurrency
			if cmd.Flags().Changed("concurrency") {
				workers = concurrency
			}

			stderr := cmd.ErrOrStderr()
			interactive := !jsonOut && isTerminal(stderr)
			opts := []batch.Option{
				batch.WithLogger(logger),
				batch.WithTimeout(time.Duration(cfg.Batch.TimeoutSeconds) * time.Second),
				batch.WithFeedCapacity(cfg.Batch.FeedCapacity),
			}
			if interactive {
				opts = append(opts, batch.WithObserver(newProgressView(stderr).observe))
			}
			coord := batch.New(client, finalize.New(cfg, logger), store, opts...)

			baseCtx := cmd.Context()
			if baseCtx == nil {
				baseCtx = context.Background()
			}
			sigCtx, stop := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			handle := coord.Submit(context.WithoutCancel(sigCtx), raws, workers)
			go func() {
				select {
				case <-sigCtx.Done():
					handle.Cancel()
				case <-handle.Done():
				}
			}()

			feedDone := make(chan struct{})
			if !interactive && !jsonOut {
				go func() {
					defer close(feedDone)
					streamFeed(context.Background(), handle.Feed(), stderr)
				}()
			} else {
				close(feedDone)
			}

			summary, _ := handle.Wait(context.Background())
			<-feedDone

			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.RunLogPattern, cfg.Logging.RetentionDays, "")
			notifyBatch(context.WithoutCancel(baseCtx), notifications.NewService(cfg), summary, logger)

			if jsonOut {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return summaryError(summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read identifiers from a file, one per line (- for stdin)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Parallel downloads (1-10, default batch.max_concurrency)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the batch summary as JSON")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the dependency and directory preflight")
	return cmd
}

func notifyBatch(ctx context.Context, svc notifications.Service, summary batch.Summary, logger *slog.Logger) {
	report := notifications.BatchReport{
		BatchID:   summary.BatchID,
		Status:    string(summary.Status),
		Total:     summary.Total,
		Completed: summary.Completed,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Rejected:  summary.Rejected,
		Elapsed:   summary.Elapsed,
	}
	for _, job := range summary.Jobs {
		if job.State == pipeline.StateFailed {
			report.FailedIDs = append(report.FailedIDs, job.ID.String())
		}
	}
	if err := svc.NotifyBatchCompleted(ctx, report); err != nil {
		logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
			logging.String(logging.FieldBatchID, summary.BatchID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic or run tunegrab test-notify"),
			logging.String(logging.FieldImpact, "batch summary not delivered"),
		)
	}
}

func printSummary(out io.Writer, summary batch.Summary) {
	if len(summary.Jobs) > 0 {
		rows := make([][]string, 0, len(summary.Jobs))
		for _, job := range summary.Jobs {
			rows = append(rows, []string{job.ID.String(), stateLabel(job.State), jobDetail(job)})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "State", "Detail"}, rows, nil, 0, 0, 70))
	}
	for _, rej := range summary.Rejections {
		fmt.Fprintf(out, "rejected %s: %s\n", strconv.Quote(rej.Raw), rej.Reason)
	}
	fmt.Fprintf(out, "%s (%s, %s)\n", summary.Message, summary.Status, summary.Elapsed.Round(time.Second))
}

func jobDetail(job pipeline.Job) string {
	switch job.State {
	case pipeline.StateCompleted:
		return job.LocalPath
	case pipeline.StateFailed:
		detail := job.Detail
		if job.Kind != pipeline.KindNone {
			detail = string(job.Kind) + ": " + detail
		}
		return detail
	default:
		return job.Detail
	}
}

func stateLabel(state pipeline.State) string {
	return strings.ReplaceAll(string(state), "_", " ")
}

func summaryError(summary batch.Summary) error {
	switch summary.Status {
	case batch.StatusCancelled:
		return context.Canceled
	case batch.StatusTimedOut:
		return fmt.Errorf("batch timed out after %s", summary.Elapsed.Round(time.Second))
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Total)
	}
	if summary.Total == 0 && summary.Rejected > 0 {
		return fmt.Errorf("all %d identifiers were rejected", summary.Rejected)
	}
	return nil
}
