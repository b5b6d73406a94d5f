package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spotafy/internal/catalog"
	"spotafy/internal/config"
	"spotafy/internal/deps"
	"spotafy/internal/preflight"
)

const statusCatalogTimeout = 20 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show library, tool and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.newCatalog()
			if err != nil {
				return err
			}
			checkCtx, cancel := context.WithTimeout(cmd.Context(), statusCatalogTimeout)
			defer cancel()
			catalogStatus := client.Status(checkCtx)

			songCount := -1
			var libraryErr error
			if store, err := ctx.ensureLibrary(); err != nil {
				libraryErr = err
			} else if songCount, err = store.CountSongs(cmd.Context()); err != nil {
				libraryErr = err
			}

			if jsonOut {
				payload := map[string]any{
					"config_path": ctx.configPath,
					"database":    cfg.Paths.DatabasePath,
					"songs":       songCount,
					"catalog":     catalogStatus,
					"directories": preflight.CheckDirectories(cfg),
					"tools":       preflight.CheckSystemDeps(cfg),
				}
				if libraryErr != nil {
					payload["library_error"] = libraryErr.Error()
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := statusLines(ctx.configPath, cfg, songCount, libraryErr, catalogStatus, colorize)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func statusLines(configPath string, cfg *config.Config, songCount int, libraryErr error, cs catalog.Status, colorize bool) []string {
	directories := preflight.CheckDirectories(cfg)
	tools := preflight.CheckSystemDeps(cfg)
	var lines []string
	lines = append(lines, renderSectionHeader("Library", colorize)...)
	lines = append(lines, renderStatusLine("Config", statusInfo, orDash(configPath), colorize))
	if libraryErr != nil {
		lines = append(lines, renderStatusLine("Database", statusError, libraryErr.Error(), colorize))
	} else {
		lines = append(lines, renderStatusLine("Database", statusOK, fmt.Sprintf("%d song(s) in %s", songCount, cfg.Paths.DatabasePath), colorize))
	}
	lines = append(lines, directoryLines(directories, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Tools", colorize)...)
	lines = append(lines, dependencyLines(tools, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Catalog", colorize)...)
	lines = append(lines, catalogStatusLines(cs, colorize)...)
	return lines
}

func catalogStatusLines(cs catalog.Status, colorize bool) []string {
	if !cs.CredentialsConfigured {
		return []string{renderStatusLine("Credentials", statusWarn, "Not configured (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET)", colorize)}
	}
	lines := []string{renderStatusLine("Credentials", statusOK, "Configured", colorize)}
	if cs.TokenValid {
		lines = append(lines, renderStatusLine("Token", statusOK, "Valid until "+formatTime(cs.TokenExpires), colorize))
	} else {
		lines = append(lines, renderStatusLine("Token", statusError, orDash(cs.Error), colorize))
		return lines
	}
	if cs.APIAccessible {
		lines = append(lines, renderStatusLine("API", statusOK, "Reachable", colorize))
	} else {
		lines = append(lines, renderStatusLine("API", statusError, orDash(cs.Error), colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (%s)", dep.Path), colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if missing := deps.Missing(statuses); len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", ")+" (imports will fail)", colorize))
	}
	return lines
}

func directoryLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
