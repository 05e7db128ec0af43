package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunegrab/internal/catalog"
	"tunegrab/internal/fileutil"
	"tunegrab/internal/mediaid"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect and manage the catalog of acquired audio",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryRemoveCommand(ctx))

	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var search string
	var batchID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), catalog.ListOptions{
				Limit:   limit,
				Search:  search,
				BatchID: batchID,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				if records == nil {
					records = []*catalog.Record{}
				}
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Library is empty")
				return nil
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ID.String(),
					rec.Title,
					rec.Artist,
					formatDuration(rec.DurationSeconds),
					humanize.Bytes(uint64(max(rec.FileSize, 0))),
					humanize.Time(rec.AcquiredAt),
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Artist", "Length", "Size", "Added"}, rows, aligns, 0, 48, 24))
			fmt.Fprintf(out, "%d of %d items\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum items to show (0 for all)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by title, artist or id")
	cmd.Flags().StringVar(&batchID, "batch", "", "Only show items from this batch id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cataloged item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := mediaid.Parse(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Lookup(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s is not in the library", id)
			}
			if jsonOut {
				return writeJSON(cmd, rec)
			}

			present := fileutil.Exists(rec.LocalPath)
			pairs := [][2]string{
				{"ID", rec.ID.String()},
				{"Title", rec.Title},
				{"Artist", rec.Artist},
				{"Length", formatDuration(rec.DurationSeconds)},
				{"Size", humanize.Bytes(uint64(max(rec.FileSize, 0)))},
				{"File", rec.LocalPath},
				{"File present", yesNo(present)},
				{"Source", rec.SourceURL},
				{"Cover", rec.CoverURL},
				{"Batch", rec.BatchID},
				{"Added", rec.AcquiredAt.Local().Format(time.RFC3339) + " (" + humanize.Time(rec.AcquiredAt) + ")"},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(pairs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the record as JSON")
	return cmd
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	var deleteFile bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Forget a cataloged item so it can be fetched again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := mediaid.Parse(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Lookup(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s is not in the library", id)
			}
			if _, err := store.Remove(cmd.Context(), id); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %s (%s) from the catalog\n", id, rec.Title)
			if deleteFile && rec.LocalPath != "" {
				if err := fileutil.RemoveIfExists(rec.LocalPath); err != nil {
					return fmt.Errorf("delete %s: %w", rec.LocalPath, err)
				}
				fmt.Fprintf(out, "Deleted %s\n", rec.LocalPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteFile, "delete-file", false, "Also delete the audio file from the library")
	return cmd
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
