package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arunsworld/nursery"
	"github.com/spf13/cobra"

	"spotafy/internal/importer"
	"spotafy/internal/preflight"
	"spotafy/internal/services"
)

type importReport struct {
	Term     string `json:"term"`
	Status   string `json:"status"`
	SongID   int64  `json:"song_id,omitempty"`
	Token    string `json:"token,omitempty"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	importStatusCreated  = "created"
	importStatusExisting = "existing"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var artist string
	var limit int
	var parallel int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "import [term...]",
		Short: "Download and catalog songs",
		Long: "Import each term (quote multi-word terms) into the library.\n" +
			"With --artist, import the artist's top tracks from the catalog instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.Summarize(preflight.RunAll(cfg)); err != nil {
				return err
			}
			if strings.TrimSpace(artist) != "" {
				return runArtistImport(cmd, ctx, artist, limit, jsonOut)
			}
			if len(args) == 0 {
				return errors.New("at least one term or --artist is required")
			}
			imp, err := ctx.newImporter(false)
			if err != nil {
				return err
			}
			reports := importTerms(cmd.Context(), imp, args, parallel)
			if jsonOut {
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderImportReports(reports))
			}
			return importFailure(reports)
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Import top tracks of this artist")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tracks for --artist (default from config)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Number of terms imported concurrently")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func runArtistImport(cmd *cobra.Command, ctx *commandContext, artist string, limit int, jsonOut bool) error {
	imp, err := ctx.newImporter(false)
	if err != nil {
		return err
	}
	count, err := imp.ImportArtist(cmd.Context(), artist, limit)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(cmd, map[string]any{"artist": artist, "imported": count})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d track(s) for %s\n", count, artist)
	return nil
}

type termImporter interface {
	Import(ctx context.Context, term string) (*importer.Outcome, error)
}

// importTerms imports every term, at most parallel at a time. Reports keep
// the order of terms. Failures are recorded per term and never cancel the
// other imports.
func importTerms(ctx context.Context, imp termImporter, terms []string, parallel int) []importReport {
	if parallel < 1 {
		parallel = 1
	}
	reports := make([]importReport, len(terms))
	slots := make(chan struct{}, parallel)
	var mu sync.Mutex

	jobs := make([]nursery.ConcurrentJob, 0, len(terms))
	for i, term := range terms {
		jobs = append(jobs, func(jobCtx context.Context, _ chan error) {
			select {
			case slots <- struct{}{}:
			case <-jobCtx.Done():
				mu.Lock()
				reports[i] = failedReport(term, jobCtx.Err())
				mu.Unlock()
				return
			}
			defer func() { <-slots }()

			out, err := imp.Import(jobCtx, term)
			report := failedReport(term, err)
			if err == nil {
				report = outcomeReport(term, out)
			}
			mu.Lock()
			reports[i] = report
			mu.Unlock()
		})
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_ = nursery.RunConcurrentlyWithContext(ctx, jobs...)
	return reports
}

func outcomeReport(term string, out *importer.Outcome) importReport {
	report := importReport{Term: term, Status: importStatusExisting}
	if out == nil || out.Song == nil {
		return report
	}
	if out.Created {
		report.Status = importStatusCreated
	}
	report.SongID = out.Song.ID
	report.Token = out.Song.Token
	report.Title = out.Song.Title
	report.Artist = out.Song.ArtistName
	report.Strategy = string(out.Strategy)
	report.Degraded = out.Degraded
	return report
}

func failedReport(term string, err error) importReport {
	if err == nil {
		return importReport{Term: term}
	}
	return importReport{Term: term, Status: services.FailureKind(err), Error: err.Error()}
}

func importFailure(reports []importReport) error {
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d import(s) failed", failed, len(reports))
}

func renderImportReports(reports []importReport) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		detail := r.Error
		if detail == "" {
			detail = strings.TrimSpace(r.Artist + " - " + r.Title)
			if r.Degraded {
				detail += " (low confidence)"
			}
		}
		rows = append(rows, []string{r.Term, r.Status, orDash(r.Token), detail})
	}
	return renderTable([]string{"Term", "Status", "Token", "Detail"}, rows, nil)
}
