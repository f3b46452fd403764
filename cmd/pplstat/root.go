package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pplstat",
		Short: "pplstat - perplexity and loss statistics for scored generations",
		Long: `pplstat summarizes scored model generations into per-condition statistics.

Each condition is a (model, prompt language, response language) triple. For
every condition it reports the mean, standard deviation and coefficient of
variation of perplexity and loss, and can compare conditions against each other.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newSummarizeCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newInitCommand())

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
