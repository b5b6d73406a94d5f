package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"spotafy/internal/library"
	"spotafy/internal/media/ffprobe"
	"spotafy/internal/media/tags"
	"spotafy/internal/services"
)

func newSongsCommand(ctx *commandContext) *cobra.Command {
	songsCmd := &cobra.Command{
		Use:   "songs",
		Short: "Inspect and maintain library songs",
	}
	songsCmd.AddCommand(newSongsListCommand(ctx))
	songsCmd.AddCommand(newSongsShowCommand(ctx))
	songsCmd.AddCommand(newSongsRegenTokenCommand(ctx))
	songsCmd.AddCommand(newSongsRenameCommand(ctx))
	return songsCmd
}

func newSongsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List songs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureLibrary()
			if err != nil {
				return err
			}
			songs, err := store.ListSongs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if songs == nil {
					songs = []library.Song{}
				}
				return writeJSON(cmd, songs)
			}
			out := cmd.OutOrStdout()
			if len(songs) == 0 {
				fmt.Fprintln(out, "Library is empty")
				return nil
			}
			fmt.Fprintln(out, renderSongTable(songs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum songs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderSongTable(songs []library.Song) string {
	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Title,
			s.ArtistName,
			orDash(s.AlbumTitle),
			orDash(s.ReleaseDate),
			formatDuration(s.DurationSeconds),
			orDash(strings.Join(s.Genres, ", ")),
			s.Token,
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Artist", "Album", "Released", "Length", "Genres", "Token"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func newSongsShowCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	var showTags bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Show one song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, err := lookupSong(cmd, ctx, args[0])
			if err != nil {
				return err
			}

			var result *ffprobe.Result
			if probe && song.AudioPath != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				inspected, err := ffprobe.Inspect(cmd.Context(), cfg.Acquire.FFprobeBinary, song.AudioPath)
				if err != nil {
					return fmt.Errorf("probe %s: %w", song.AudioPath, err)
				}
				result = &inspected
			}

			var embedded *tags.Metadata
			if showTags && song.AudioPath != "" {
				md, err := tags.Read(song.AudioPath)
				if err != nil {
					return fmt.Errorf("read tags %s: %w", song.AudioPath, err)
				}
				embedded = &md
			}

			if jsonOut {
				if result == nil && embedded == nil {
					return writeJSON(cmd, song)
				}
				payload := map[string]any{"song": song}
				if result != nil {
					payload["probe"] = jsoniter.RawMessage(result.RawJSON())
				}
				if embedded != nil {
					payload["tags"] = embedded
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			for _, line := range songDetailLines(song) {
				fmt.Fprintln(out, line)
			}
			switch {
			case result != nil:
				for _, line := range probeLines(*result) {
					fmt.Fprintln(out, line)
				}
			case probe:
				fmt.Fprintln(out, "Probe:       no audio file recorded")
			}
			switch {
			case embedded != nil:
				for _, line := range tagLines(*embedded) {
					fmt.Fprintln(out, line)
				}
			case showTags:
				fmt.Fprintln(out, "Tags:        no audio file recorded")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Inspect the audio file with ffprobe")
	cmd.Flags().BoolVar(&showTags, "tags", false, "Show the ID3 tags embedded in the audio file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func lookupSong(cmd *cobra.Command, ctx *commandContext, token string) (*library.Song, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("song token is required")
	}
	store, err := ctx.ensureLibrary()
	if err != nil {
		return nil, err
	}
	song, err := store.SongByToken(cmd.Context(), token)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("%w: no song with token %s", services.ErrNotFound, token)
	}
	return song, nil
}

func songDetailLines(song *library.Song) []string {
	return []string{
		fmt.Sprintf("Title:       %s", song.Title),
		fmt.Sprintf("Artist:      %s", song.ArtistName),
		fmt.Sprintf("Album:       %s", orDash(song.AlbumTitle)),
		fmt.Sprintf("Released:    %s", orDash(song.ReleaseDate)),
		fmt.Sprintf("Length:      %s", formatDuration(song.DurationSeconds)),
		fmt.Sprintf("Genres:      %s", orDash(strings.Join(song.Genres, ", "))),
		fmt.Sprintf("Popularity:  %d", song.Popularity),
		fmt.Sprintf("Explicit:    %s", yesNo(song.Explicit)),
		fmt.Sprintf("ISRC:        %s", orDash(song.ISRC)),
		fmt.Sprintf("Catalog ID:  %s", orDash(song.CatalogID)),
		fmt.Sprintf("Link:        %s", orDash(song.ExternalURL)),
		fmt.Sprintf("Token:       %s", song.Token),
		fmt.Sprintf("Audio:       %s", orDash(song.AudioPath)),
		fmt.Sprintf("Cover:       %s", orDash(song.CoverPath)),
		fmt.Sprintf("Added:       %s", formatTime(song.CreatedAt)),
	}
}

func probeLines(result ffprobe.Result) []string {
	lines := []string{
		fmt.Sprintf("Format:      %s", orDash(result.Format.FormatName)),
		fmt.Sprintf("Duration:    %.1fs", result.DurationSeconds()),
		fmt.Sprintf("Bitrate:     %d kb/s", result.BitRate()/1000),
		fmt.Sprintf("Size:        %d bytes", result.SizeBytes()),
		fmt.Sprintf("Audio:       %d stream(s)", result.AudioStreamCount()),
	}
	for _, key := range []string{"title", "artist", "album", "genre"} {
		if value := result.Format.Tag(key); value != "" {
			lines = append(lines, fmt.Sprintf("Tag %-8s %s", key+":", value))
		}
	}
	return lines
}

func tagLines(md tags.Metadata) []string {
	return []string{
		fmt.Sprintf("ID3 title:   %s", orDash(md.Title)),
		fmt.Sprintf("ID3 artist:  %s", orDash(md.Artist)),
		fmt.Sprintf("ID3 album:   %s", orDash(md.Album)),
		fmt.Sprintf("ID3 year:    %s", orDash(md.ReleaseDate)),
		fmt.Sprintf("ID3 genre:   %s", orDash(md.Genre)),
	}
}

func newSongsRegenTokenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regen-token <token>",
		Short: "Recompute a song's identity token from its current metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, err := lookupSong(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			store, err := ctx.ensureLibrary()
			if err != nil {
				return err
			}
			oldToken, newToken, err := store.RegenerateToken(cmd.Context(), song.ID)
			if err != nil {
				var collision *library.TokenCollisionError
				if errors.As(err, &collision) {
					return fmt.Errorf("token %s already belongs to song %d; merge or rename before regenerating", collision.Token, collision.ConflictingSongID)
				}
				return err
			}
			out := cmd.OutOrStdout()
			if oldToken == newToken {
				fmt.Fprintf(out, "Token unchanged: %s\n", newToken)
				return nil
			}
			fmt.Fprintf(out, "Token updated: %s -> %s\n", oldToken, newToken)
			return nil
		},
	}
}

// newSongsRenameCommand retitles a song and re-keys it. A title whose token
// already belongs to another song is rolled back.
func newSongsRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <token> <title...>",
		Short: "Change a song's title and recompute its token",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errors.New("new title is required")
			}
			song, err := lookupSong(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			store, err := ctx.ensureLibrary()
			if err != nil {
				return err
			}
			if err := store.RenameSong(cmd.Context(), song.ID, title); err != nil {
				return err
			}
			oldToken, newToken, err := store.RegenerateToken(cmd.Context(), song.ID)
			if err != nil {
				if revertErr := store.RenameSong(cmd.Context(), song.ID, song.Title); revertErr != nil {
					return errors.Join(err, fmt.Errorf("restore title %q: %w", song.Title, revertErr))
				}
				var collision *library.TokenCollisionError
				if errors.As(err, &collision) {
					return fmt.Errorf("%q would take token %s, which belongs to song %d; title left unchanged", title, collision.Token, collision.ConflictingSongID)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q (token %s -> %s)\n", song.Title, title, oldToken, newToken)
			return nil
		},
	}
}
