package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spotafy/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale files from the download directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if minAge := cfg.Acquire.DownloadTimeoutDuration(); maxAge < minAge {
				return fmt.Errorf("--max-age must be at least the download timeout (%s)", minAge)
			}
			out := cmd.OutOrStdout()

			if dryRun {
				entries, err := staging.ListEntries(cfg.Paths.DownloadDir)
				if err != nil {
					return err
				}
				cutoff := time.Now().Add(-maxAge)
				count := 0
				for _, e := range entries {
					if e.ModTime.Before(cutoff) {
						fmt.Fprintf(out, "would remove %s (%d bytes)\n", e.Path, e.Size)
						count++
					}
				}
				fmt.Fprintf(out, "%d stale entr(ies) in %s\n", count, cfg.Paths.DownloadDir)
				return nil
			}

			result := staging.CleanStale(cmd.Context(), cfg.Paths.DownloadDir, maxAge, ctx.ensureLogger())
			for _, path := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d stale entr(ies)\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d entr(ies) could not be removed; first: %s: %w", len(result.Errors), result.Errors[0].Path, result.Errors[0].Error)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Remove entries older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List stale entries without removing them")
	return cmd
}
