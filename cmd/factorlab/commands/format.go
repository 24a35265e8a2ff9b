package commands

import (
	"fmt"

	"github.com/wonny/factorlab/internal/lab"
)

// printSummary renders one evaluation summary for terminal output.
func printSummary(summary lab.Summary) {
	fmt.Printf("\n=== %s (%s) ===\n", summary.Definition, summary.Strategy)

	if summary.Err != "" {
		fmt.Printf("  FAILED: %s\n", summary.Err)
		return
	}

	fmt.Printf("  dates: %d  universe: %d\n", summary.Dates, summary.Universe)
	if summary.LatestDate != nil {
		fmt.Printf("  latest: %s\n", summary.LatestDate.Format("2006-01-02"))
	}
	if summary.MeanIC != nil {
		fmt.Printf("  mean IC: %.4f\n", *summary.MeanIC)
	}
	for i, entry := range summary.Top {
		if entry.Defined {
			fmt.Printf("  %2d. %s  %.6f\n", i+1, entry.Security, entry.Value)
		} else {
			fmt.Printf("  %2d. %s  -\n", i+1, entry.Security)
		}
	}
}
