package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xlingo-lab/pplstat/internal/projectconfig"
	"github.com/xlingo-lab/pplstat/internal/wizard"
)

// defaultInputs seed a new config when no "<model>_results" folders are found.
var defaultInputs = []string{"data/llama_results", "data/qwen_results"}

func newInitCommand() *cobra.Command {
	var (
		interactive bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter .pplstat.yaml",
		Long: `Create a .pplstat.yaml project configuration.

Scored-result folders ("<model>_results") found in the directory, or one
level below it, become the configured inputs.

Use --interactive to run a guided wizard for inputs, record limit,
standard deviation mode, row order and report formats.

If no directory is specified, the current directory is used.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided configuration wizard")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .pplstat.yaml")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Create the root directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, projectconfig.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	answers := wizard.DefaultAnswers(dir)
	if interactive {
		a, err := wizard.RunConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout(), answers)
		if err != nil {
			return err
		}
		answers = *a
	} else if len(answers.Inputs) == 0 {
		answers.Inputs = defaultInputs
	}

	data, err := wizard.RenderConfig(answers)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d input(s)\n", path, len(answers.Inputs)) //nolint:errcheck
	return nil
}
