package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"coinindex/internal/calculator"
	"coinindex/internal/domain"
	"coinindex/internal/index"
	"coinindex/internal/util"
)

var calcIndexCmd = &cobra.Command{
	Use:   "calc-index",
	Short: "Compute a market-cap-weighted index series",
	Long: `Computes the market-cap-weighted index over the snapshot archive:
each day the top N eligible assets by market cap are weighted by
their share of combined market cap, and the weighted price is
rebased so the base date equals --base-value.

The series is written as CSV to --out.

Example:
  coinindex calc-index --from 2023-01-01 --to 2023-12-31 --top-n 50
  coinindex calc-index --from 2023-01-01 --to 2023-12-31 --top-n 10 --exclude-stablecoins --exclude-wrapped`,
	RunE: runCalcIndex,
}

var (
	calcFrom               string
	calcTo                 string
	calcBaseDate           string
	calcBaseValue          float64
	calcTopN               int
	calcExcludeStablecoins bool
	calcExcludeWrapped     bool
	calcOut                string
)

func init() {
	rootCmd.AddCommand(calcIndexCmd)

	calcIndexCmd.Flags().StringVar(&calcFrom, "from", "", "start date (YYYY-MM-DD)")
	calcIndexCmd.Flags().StringVar(&calcTo, "to", "", "end date (YYYY-MM-DD)")
	calcIndexCmd.Flags().StringVar(&calcBaseDate, "base-date", "", "rebasing date (default: start date)")
	calcIndexCmd.Flags().Float64Var(&calcBaseValue, "base-value", 1000, "index value on the base date")
	calcIndexCmd.Flags().IntVar(&calcTopN, "top-n", 50, "constituents per day")
	calcIndexCmd.Flags().BoolVar(&calcExcludeStablecoins, "exclude-stablecoins", false, "exclude assets classified as stablecoins")
	calcIndexCmd.Flags().BoolVar(&calcExcludeWrapped, "exclude-wrapped", false, "exclude assets classified as wrapped tokens")
	calcIndexCmd.Flags().StringVar(&calcOut, "out", "", "output CSV path (default <data-dir>/index/index_<from>_<to>.csv)")

	calcIndexCmd.MarkFlagRequired("from")
	calcIndexCmd.MarkFlagRequired("to")
}

func runCalcIndex(cmd *cobra.Command, args []string) error {
	start, err := util.ParseDate(calcFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	end, err := util.ParseDate(calcTo)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	var baseDate time.Time
	if calcBaseDate != "" {
		baseDate, err = util.ParseDate(calcBaseDate)
		if err != nil {
			return fmt.Errorf("invalid --base-date: %w", err)
		}
	}

	store := newStore(0)
	engine := newEngine(store)

	series, err := engine.Calculate(context.Background(), domain.IndexConfig{
		Start:              start,
		End:                end,
		BaseDate:           baseDate,
		BaseValue:          calcBaseValue,
		TopN:               calcTopN,
		ExcludeStablecoins: calcExcludeStablecoins,
		ExcludeWrapped:     calcExcludeWrapped,
	})
	if err != nil {
		return err
	}

	out := calcOut
	if out == "" {
		out = filepath.Join(dataDir, "index", fmt.Sprintf("index_%s_%s.csv", calcFrom, calcTo))
	}
	if err := index.Save(series, out); err != nil {
		return err
	}

	fmt.Printf("%d point(s) written to %s\n", len(series), out)
	fmt.Printf("first: %s = %.4f\n", series[0].Date.Format(time.DateOnly), series[0].Value)
	last := series[len(series)-1]
	fmt.Printf("last:  %s = %.4f\n", last.Date.Format(time.DateOnly), last.Value)

	if len(series) >= 2 {
		metrics, err := calculator.CalculateMetrics(series)
		if err != nil {
			return nil
		}
		fmt.Printf("cumulative return: %.2f%%\n", metrics.CumulativeReturn*100)
		fmt.Printf("annualized return: %.2f%%\n", metrics.AnnualizedReturn*100)
		fmt.Printf("annualized stdev:  %.2f%%\n", metrics.AnnualizedStdev*100)
		fmt.Printf("sharpe ratio:      %.2f\n", metrics.SharpeRatio)
		fmt.Printf("max drawdown:      %.2f%%\n", metrics.MaxDrawdown*100)
	}
	return nil
}
