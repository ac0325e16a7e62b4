package calculator

import (
	"coinindex/internal/domain"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

type CalculateMetricsResult struct {
	AnnualizedStdev  float64
	AnnualizedReturn float64
	SharpeRatio      float64
	MaxDrawdown      float64
	CumulativeReturn float64
}

// crypto markets trade every calendar day
const tradingDaysPerYear = 365

// CalculateMetrics computes summary statistics for a computed index
// series. It assumes the series covers a meaningful span; anything
// under two points cannot produce returns.
func CalculateMetrics(series domain.IndexSeries) (*CalculateMetricsResult, error) {
	returns, err := calculateReturns(series)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate returns: %w", err)
	}

	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return nil, err
	}

	annualizedStdev := stdev * math.Sqrt(tradingDaysPerYear)

	startValue := series[0].Value
	endValue := series[len(series)-1].Value
	numHours := series[len(series)-1].Date.Sub(series[0].Date).Hours()
	numYears := numHours / (365 * 24)
	annualizedReturn := math.Pow(endValue/startValue, 1/numYears) - 1

	sharpeRatio := 0.0
	if annualizedStdev != 0 {
		sharpeRatio = annualizedReturn / annualizedStdev
	}

	cumulativeReturn := decimal.NewFromFloat(endValue).
		Sub(decimal.NewFromFloat(startValue)).
		Div(decimal.NewFromFloat(startValue)).
		InexactFloat64()

	return &CalculateMetricsResult{
		AnnualizedStdev:  annualizedStdev,
		AnnualizedReturn: annualizedReturn,
		SharpeRatio:      sharpeRatio,
		MaxDrawdown:      maxDrawdown(series),
		CumulativeReturn: cumulativeReturn,
	}, nil
}

func calculateReturns(series domain.IndexSeries) ([]float64, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("cannot calculate metrics on < 2 index points")
	}
	sorted := make(domain.IndexSeries, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	returns := []float64{}
	lastValue := decimal.NewFromFloat(sorted[0].Value)
	for _, point := range sorted[1:] {
		value := decimal.NewFromFloat(point.Value)
		ret := value.Sub(lastValue).Div(lastValue).InexactFloat64()
		lastValue = value
		returns = append(returns, ret)
	}

	return returns, nil
}

// maxDrawdown is the largest peak-to-trough decline, as a negative
// fraction.
func maxDrawdown(series domain.IndexSeries) float64 {
	peak := series[0].Value
	worst := 0.0
	for _, point := range series {
		if point.Value > peak {
			peak = point.Value
		}
		drawdown := (point.Value - peak) / peak
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst
}
