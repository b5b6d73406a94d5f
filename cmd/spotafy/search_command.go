package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spotafy/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <phrase|slug>",
		Short: "Search the local library, importing when nothing matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase := joinTerms(args)
			if phrase == "" {
				return errors.New("search phrase is required")
			}
			svc, err := ctx.newSearch()
			if err != nil {
				return err
			}
			res, err := svc.Search(cmd.Context(), phrase, search.Options{ForceReimport: force})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSearchResult(res))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Import the phrase again before ranking")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderSearchResult(res *search.Result) string {
	if res.State == search.StateMaxRetriesExceeded {
		return fmt.Sprintf("No songs found for %q after %d import attempt(s)\n", res.Phrase, res.Attempts)
	}
	rows := make([][]string, 0, len(res.Matches))
	for i, m := range res.Matches {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Title,
			m.Artist,
			formatScore(m.Probability),
			formatScore(m.TitleScore),
			formatScore(m.ArtistScore),
			formatScore(m.CombinedScore),
			m.Token,
		})
	}
	header := fmt.Sprintf("%s matches for %q (slug %s, %d import attempt(s))\n", res.Kind, res.Phrase, res.Slug, res.Attempts)
	table := renderTable(
		[]string{"#", "Title", "Artist", "Probability", "Title %", "Artist %", "Combined %", "Token"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	return header + table + "\n"
}
