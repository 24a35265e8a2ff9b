package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/quotes"
)

// collectCmd fetches market data into Postgres.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect daily bars and investor flows",
	Long: `Fetch daily bars and investor flow data from Naver Finance and store
them in Postgres.

Example:
  go run ./cmd/factorlab collect --codes 005930,000660,035420 --days 365
  go run ./cmd/factorlab collect --codes 005930 --days 30 --skip-flows`,
	RunE: runCollect,
}

var (
	collectCodes   string
	collectDays    int
	collectWorkers int
	skipFlows      bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectCodes, "codes", "", "comma separated security codes (required)")
	collectCmd.Flags().IntVar(&collectDays, "days", 365, "how many calendar days back to fetch")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 4, "concurrent fetch workers")
	collectCmd.Flags().BoolVar(&skipFlows, "skip-flows", false, "collect bars only")
	collectCmd.MarkFlagRequired("codes")
}

func runCollect(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	secs := parseCodes(collectCodes)
	if len(secs) == 0 {
		return fmt.Errorf("no security codes given")
	}

	now := time.Now()
	query := contracts.NewDateRange(now.AddDate(0, 0, -collectDays), now)
	cfg := quotes.Config{Workers: collectWorkers}
	ctx := context.Background()

	results := application.collector.CollectBars(ctx, secs, query, cfg)
	printResults("bars", results)

	if !skipFlows {
		results = application.collector.CollectFlows(ctx, secs, query, cfg)
		printResults("flows", results)
	}

	return nil
}

// parseCodes splits a comma separated code list.
func parseCodes(raw string) []contracts.Security {
	var secs []contracts.Security
	for _, code := range strings.Split(raw, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			secs = append(secs, contracts.Security(code))
		}
	}
	return secs
}

func printResults(kind string, results []quotes.Result) {
	for _, result := range results {
		if result.Err != nil {
			fmt.Printf("  %s  %s: FAILED: %v\n", result.Security, kind, result.Err)
			continue
		}
		count := result.BarCount
		if kind == "flows" {
			count = result.FlowCount
		}
		fmt.Printf("  %s  %s: %d rows\n", result.Security, kind, count)
	}
}
