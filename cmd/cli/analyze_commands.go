package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/FretCoach/internal/audio"
	"github.com/himanishpuri/FretCoach/internal/pitch"
	"github.com/himanishpuri/FretCoach/internal/render"
	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var chartPath string

	cmd := &cobra.Command{
		Use:   "compare <reference-audio> <take-audio>",
		Short: "Compare two audio files without using the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			runCtx, cancel := ctx.analysisContext(cmd.Context())
			defer cancel()

			cmp, err := svc.CompareAudio(runCtx, fretcoach.FromFile(args[0]), fretcoach.FromFile(args[1]))
			if err != nil {
				return explainAnalysisError(err)
			}
			printComparison(cmd.OutOrStdout(), cmp)
			return writeChart(cmd.OutOrStdout(), chartPath, cmp)
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the pitch overlay chart to this PNG file")
	return cmd
}

func newPitchCommand(ctx *commandContext) *cobra.Command {
	var (
		limit     int
		chartPath string
	)

	cmd := &cobra.Command{
		Use:   "pitch <audio-file>",
		Short: "Print the voiced pitch contour of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			runCtx, cancel := ctx.analysisContext(cmd.Context())
			defer cancel()

			tr, err := svc.ExtractPitch(runCtx, fretcoach.FromFile(args[0]))
			if err != nil {
				return explainAnalysisError(err)
			}
			out := cmd.OutOrStdout()
			if tr.Empty() {
				fmt.Fprintln(out, "No voiced pitch detected.")
				return nil
			}

			start, end := tr.Span()
			fmt.Fprintf(out, "%s voiced samples from %.2fs to %.2fs, median %s\n",
				humanize.Comma(int64(tr.Len())), start, end, pitch.NoteName(tr.MedianMIDI()))

			n := tr.Len()
			if limit > 0 && limit < n {
				n = limit
			}
			rows := make([][]string, 0, n)
			for i := 0; i < n; i++ {
				s := tr.At(i)
				m := tr.MIDIAt(i)
				rows = append(rows, []string{
					strconv.FormatFloat(s.Time, 'f', 3, 64),
					strconv.FormatFloat(s.Frequency, 'f', 2, 64),
					strconv.FormatFloat(m, 'f', 2, 64),
					pitch.NoteName(m),
					centsOff(m),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time (s)", "Hz", "MIDI", "Note", "Cents"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight},
			))
			if n < tr.Len() {
				fmt.Fprintf(out, "... %d more\n", tr.Len()-n)
			}

			if chartPath == "" {
				return nil
			}
			opts := render.DefaultChartOptions()
			opts.Width, opts.Height = 1000, 400
			if err := render.SavePitchPNG(chartPath, tr, opts); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(out, "Chart written to %s\n", chartPath)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum samples to print (0 for all)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the pitch-over-time chart to this PNG file")
	return cmd
}

func newSpectrogramCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "spectrogram <audio-file>",
		Short: "Render a spectrogram PNG of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".png"
			}
			dec := audio.NewAutoDecoderWithConfig(cfg.TempDir, audio.TranscodeConfig{Binary: cfg.FFmpegPath})

			runCtx, cancel := ctx.analysisContext(cmd.Context())
			defer cancel()

			if err := render.SaveSpectrogram(runCtx, dec, audio.FromFile(args[0]), output, width, height); err != nil {
				return explainAnalysisError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spectrogram written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default <audio-file>.png)")
	cmd.Flags().IntVar(&width, "width", 1024, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", 512, "Image height in pixels")
	return cmd
}

func centsOff(midi float64) string {
	c := int(math.Round((midi - math.Round(midi)) * 100))
	if c > 0 {
		return "+" + strconv.Itoa(c)
	}
	return strconv.Itoa(c)
}
