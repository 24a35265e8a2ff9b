package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// evalCmd evaluates stored or file-based definitions from the CLI.
var evalCmd = &cobra.Command{
	Use:   "eval [definition]",
	Short: "Evaluate factor definitions",
	Long: `Evaluate a stored definition and print its summary. With --file,
load definitions from a YAML file into the store first. Without arguments,
every stored definition is evaluated.

Example:
  go run ./cmd/factorlab eval --file configs/factors.yaml
  go run ./cmd/factorlab eval momentum-composite
  go run ./cmd/factorlab eval --top 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

var (
	evalFile string
	evalTop  int
)

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalFile, "file", "", "YAML definition file to load before evaluating")
	evalCmd.Flags().IntVar(&evalTop, "top", 10, "ranked securities to print per definition")
}

func runEval(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	ctx := context.Background()

	if evalFile != "" {
		n, err := application.service.LoadDefinitionFile(ctx, evalFile)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d definitions from %s\n", n, evalFile)
	}

	if len(args) == 1 {
		summary, err := application.service.Evaluate(ctx, args[0], evalTop)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	}

	summaries, err := application.service.EvaluateAll(ctx, evalTop)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No definitions stored. Load some with --file.")
		return nil
	}
	for _, summary := range summaries {
		printSummary(summary)
	}
	return nil
}
