package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xlingo-lab/pplstat/internal/reporting"
)

func newSummarizeCommand() *cobra.Command {
	var (
		in        inputFlags
		format    string
		outPath   string
		title     string
		interpret bool
	)

	cmd := &cobra.Command{
		Use:   "summarize <input> [input ...]",
		Short: "Compute perplexity and loss statistics per condition",
		Long: `Compute per-condition statistics for one or more inputs.

An input is a "<model>_results" folder of scored-result files
(prompt_<lang>_response_<lang>_perplexity.json, optionally .gz or .zst),
a single scored-result file, or a flat CSV with the columns
model,prompt_language,response_language,perplexity,loss.

Without --format the output is a table on a terminal and CSV otherwise.
With --out the format is inferred from the file extension.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error {
			return summarizeCommandE(cmd, args, &in, format, outPath, title, interpret)
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: csv, json, table, markdown or html")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "Title of markdown and html reports")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")

	return cmd
}

func outputFormat(cmd *cobra.Command, format, outPath string) (reporting.Format, error) {
	if format != "" {
		return reporting.ParseFormat(format)
	}
	if outPath != "" {
		if f, ok := reporting.FormatFromPath(outPath); ok {
			return f, nil
		}
		return reporting.FormatCSV, nil
	}
	if isTerminal(cmd.OutOrStdout()) {
		return reporting.FormatTable, nil
	}
	return reporting.FormatCSV, nil
}

func summarizeCommandE(cmd *cobra.Command, args []string, in *inputFlags, format, outPath, title string, interpret bool) error {
	f, err := outputFormat(cmd, format, outPath)
	if err != nil {
		return err
	}

	cfg, err := in.loadConfig()
	if err != nil {
		return err
	}
	ds, agg, err := in.resolve(cmd, cfg)
	if err != nil {
		return err
	}

	_, rows, err := summarizeInputs(cmd.Context(), args, ds, agg)
	if err != nil {
		return err
	}

	meta := reporting.Meta{Title: title, RunID: newRunID(), Generated: time.Now()}
	out := cmd.OutOrStdout()
	if outPath != "" {
		if err := writeReportFile(outPath, f, rows, meta); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d condition(s) to %s\n", len(rows), outPath) //nolint:errcheck
	} else if err := reporting.Write(out, f, rows, meta); err != nil {
		return err
	}

	if interpret {
		fmt.Fprintln(out)                                    //nolint:errcheck
		fmt.Fprint(out, reporting.FormatSummaryReport(rows)) //nolint:errcheck
	}
	return nil
}
