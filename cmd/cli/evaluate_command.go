package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/FretCoach/internal/render"
	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var (
		chartPath  string
		showPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <reference-id> <take>",
		Short: "Score a recorded take against a reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read take: %w", err)
			}

			runCtx, cancel := ctx.analysisContext(cmd.Context())
			defer cancel()

			eval, err := svc.Evaluate(runCtx, args[0], fretcoach.FromBytes(filepath.Base(args[1]), data))
			if err != nil {
				return explainAnalysisError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reference: %s", eval.Reference.Title)
			if eval.Reference.Performer != "" {
				fmt.Fprintf(out, " (%s)", eval.Reference.Performer)
			}
			fmt.Fprintln(out)
			printComparison(out, &eval.Comparison)
			if showPrompt {
				fmt.Fprintln(out)
				fmt.Fprintln(out, eval.Prompt)
			}
			return writeChart(out, chartPath, &eval.Comparison)
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the pitch overlay chart to this PNG file")
	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "Print the advice prompt for an external model")
	return cmd
}

func newAttemptsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "attempts <reference-id>",
		Short: "Show practice history for a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			attempts, err := svc.ListAttempts(args[0], limit)
			if err != nil {
				if errors.Is(err, fretcoach.ErrNotFound) {
					return fmt.Errorf("reference %s not found", args[0])
				}
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attempts recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(attempts))
			for _, a := range attempts {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(a.ID), 10),
					strconv.FormatFloat(a.Score, 'f', 1, 64),
					strconv.FormatFloat(a.NormalizedDistance, 'f', 3, 64),
					a.Band,
					humanize.Time(a.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Score", "Semitones", "Band", "When"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum attempts to show (0 for all)")
	return cmd
}

func printComparison(out io.Writer, c *fretcoach.Comparison) {
	fmt.Fprintln(out, renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Similarity score", strconv.FormatFloat(c.SimilarityScore, 'f', 1, 64) + " / 100"},
			{"Band", c.Band},
			{"Mean deviation", strconv.FormatFloat(c.NormalizedDistance, 'f', 3, 64) + " semitones"},
			{"Reference samples", humanize.Comma(int64(c.ReferenceSamples))},
			{"Take samples", humanize.Comma(int64(c.UserSamples))},
		},
		[]columnAlignment{alignLeft, alignRight},
	))
	fmt.Fprintln(out, c.Feedback)
}

func writeChart(out io.Writer, path string, c *fretcoach.Comparison) error {
	if path == "" {
		return nil
	}
	opts := render.DefaultChartOptions()
	opts.Title = render.ComparisonTitle(c.SimilarityScore)
	if err := render.SaveOverlayPNG(path, c.Overlay, opts); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(out, "Chart written to %s\n", path)
	return nil
}

// explainAnalysisError turns recoverable analysis failures into a retry hint.
func explainAnalysisError(err error) error {
	switch {
	case errors.Is(err, fretcoach.ErrDecode):
		return fmt.Errorf("could not read the audio, please retry with another recording: %w", err)
	case errors.Is(err, fretcoach.ErrEmptyTrack):
		return fmt.Errorf("no pitched notes detected, please play closer to the microphone and retry: %w", err)
	case errors.Is(err, fretcoach.ErrTooLong):
		return fmt.Errorf("recording is too long to compare, please trim it: %w", err)
	case errors.Is(err, fretcoach.ErrNotFound):
		return fmt.Errorf("reference not found: %w", err)
	}
	return err
}
