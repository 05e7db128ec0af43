package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tunegrab/internal/logging"
	"tunegrab/internal/logs"
	"tunegrab/internal/mediaid"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var mediaID string
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the log of the most recent run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if mediaID != "" {
				id, err := mediaid.Parse(mediaID)
				if err != nil {
					return err
				}
				mediaID = id.String()
			}
			path, err := logs.Latest(cfg.Paths.LogDir, logging.RunLogPattern)
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("no run logs in %s", cfg.Paths.LogDir)
			}

			out := cmd.OutOrStdout()
			emit := func(batch []string) {
				for _, line := range batch {
					printLogLine(out, line, mediaID, raw)
				}
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			emit(result.Lines)
			if !follow {
				return nil
			}

			base := cmd.Context()
			if base == nil {
				base = context.Background()
			}
			sigCtx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
			defer stop()
			offset := result.Offset
			for {
				next, err := logs.Tail(sigCtx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				emit(next.Lines)
				offset = next.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing records as they are written")
	cmd.Flags().StringVar(&mediaID, "media", "", "Only show records for this BV id")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unchanged")
	return cmd
}

func printLogLine(out io.Writer, line, mediaID string, raw bool) {
	rec, ok := logs.ParseRecord(line)
	if !ok {
		if mediaID == "" {
			fmt.Fprintln(out, line)
		}
		return
	}
	if !rec.Matches(logging.FieldMediaID, mediaID) {
		return
	}
	if raw {
		fmt.Fprintln(out, line)
		return
	}
	fmt.Fprintln(out, rec.Format())
}
