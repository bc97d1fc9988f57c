package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "fretcoach",
		Short:         "Score guitar takes against reference recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.flags.configPath, "config", "c", "", "YAML configuration file (default $FRETCOACH_CONFIG)")
	flags.StringVar(&ctx.flags.dbPath, "db", "", "Path to the SQLite database file")
	flags.StringVar(&ctx.flags.dataDir, "data-dir", "", "Directory for managed reference audio")
	flags.StringVar(&ctx.flags.tempDir, "temp", "", "Directory for temporary audio files")
	flags.StringVar(&ctx.flags.estimator, "estimator", "", "Pitch estimator: yin or hps")
	flags.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newReferenceCommand(ctx))
	rootCmd.AddCommand(newEvaluateCommand(ctx))
	rootCmd.AddCommand(newAttemptsCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newPitchCommand(ctx))
	rootCmd.AddCommand(newSpectrogramCommand(ctx))

	return rootCmd
}
