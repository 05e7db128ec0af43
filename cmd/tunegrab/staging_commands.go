package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunegrab/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect or clear leftover per-item staging directories",
	}
	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))
	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging directories left behind by earlier runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list staging: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "Staging is empty")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			var total int64
			for _, dir := range dirs {
				total += dir.Size
				rows = append(rows, []string{
					dir.ID.String(),
					fmt.Sprintf("%d", dir.Files),
					humanize.Bytes(uint64(dir.Size)),
					humanize.Time(dir.ModTime),
				})
			}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable([]string{"ID", "Files", "Size", "Modified"}, rows, aligns))
			fmt.Fprintf(out, "%d directories, %s\n", len(dirs), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging directories (all, or only those older than --older-than)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			var result staging.CleanResult
			if olderThan > 0 {
				result = staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, olderThan, logger)
			} else {
				result = staging.CleanOrphaned(cmd.Context(), cfg.Paths.StagingDir, nil, logger)
			}
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d staging directories\n", len(result.Removed))
			if len(result.Errors) > 0 {
				first := result.Errors[0]
				return fmt.Errorf("%d directories could not be removed (first: %s: %v)", len(result.Errors), first.Path, first.Error)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove directories not modified within this duration (e.g. 24h)")
	return cmd
}
