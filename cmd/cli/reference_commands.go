package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
)

func newReferenceCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reference",
		Aliases: []string{"ref"},
		Short:   "Manage the reference library",
	}
	cmd.AddCommand(newReferenceAddCommand(ctx))
	cmd.AddCommand(newReferenceListCommand(ctx))
	cmd.AddCommand(newReferenceDeleteCommand(ctx))
	return cmd
}

func newReferenceAddCommand(ctx *commandContext) *cobra.Command {
	var (
		title      string
		performer  string
		youtubeID  string
		youtubeURL string
	)

	cmd := &cobra.Command{
		Use:   "add [audio-file]",
		Short: "Add a reference from an audio file or a YouTube URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case youtubeURL != "" && len(args) > 0:
				return errors.New("specify either an audio file or --youtube-url, not both")
			case youtubeURL == "" && len(args) == 0:
				return errors.New("an audio file or --youtube-url is required")
			case youtubeURL == "" && strings.TrimSpace(title) == "":
				return errors.New("--title is required for local files")
			}

			svc, err := ctx.service()
			if err != nil {
				return err
			}
			runCtx, cancel := ctx.analysisContext(cmd.Context())
			defer cancel()

			var ref *fretcoach.Reference
			if youtubeURL != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Downloading audio from YouTube...")
				ref, err = svc.AddYouTubeReference(runCtx, youtubeURL, title, performer)
			} else {
				ref, err = svc.AddReference(runCtx, fretcoach.AddReferenceRequest{
					Source:    fretcoach.FromFile(args[0]),
					Title:     title,
					Performer: performer,
					YouTubeID: youtubeID,
				})
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added reference %s\n", ref.ID)
			fmt.Fprintf(out, "  Title:     %s\n", ref.Title)
			fmt.Fprintf(out, "  Performer: %s\n", valueOrDash(ref.Performer))
			fmt.Fprintf(out, "  Length:    %s at %s Hz\n", formatDuration(ref.DurationMs), humanize.Comma(int64(ref.SampleRate)))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Reference title (defaults to the video title for YouTube)")
	cmd.Flags().StringVar(&performer, "performer", "", "Performer or style label")
	cmd.Flags().StringVar(&youtubeID, "youtube", "", "YouTube video ID to store with a local file")
	cmd.Flags().StringVar(&youtubeURL, "youtube-url", "", "Download the reference from this YouTube URL")
	return cmd
}

func newReferenceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			refs, err := svc.ListReferences()
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No references yet. Add one with `fretcoach reference add`.")
				return nil
			}

			rows := make([][]string, 0, len(refs))
			for _, r := range refs {
				rows = append(rows, []string{
					r.ID,
					r.Title,
					valueOrDash(r.Performer),
					formatDuration(r.DurationMs),
					humanize.Comma(int64(r.SampleRate)),
					humanize.Time(r.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Performer", "Length", "Rate", "Added"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d reference(s)\n", len(refs))
			return nil
		},
	}
}

func newReferenceDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <reference-id>",
		Short: "Delete a reference and its practice history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			if err := svc.DeleteReference(args[0]); err != nil {
				if errors.Is(err, fretcoach.ErrNotFound) {
					return fmt.Errorf("reference %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted reference %s\n", args[0])
			return nil
		},
	}
}

func formatDuration(ms int) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
