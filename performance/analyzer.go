// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package performance

import (
	"math"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/periodicity"
	"github.com/penny-vault/pv-indices/returns"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DownsideMode selects which observations contribute to downside deviation
type DownsideMode int

const (
	// DownsideInclusive clamps non-negative excess returns to zero and keeps them in the
	// standard deviation. This is the definition used by Analyzer.
	DownsideInclusive DownsideMode = iota
	// DownsideStrict only uses the negative excess returns.
	DownsideStrict
)

// Analyzer computes performance metrics for return series using a fixed annual risk-free
// rate and number of periods per year
type Analyzer struct {
	RiskFreeRate   float64
	PeriodsPerYear int
}

// NewAnalyzer creates an analyzer. A non-positive periodsPerYear uses the daily default of 252.
func NewAnalyzer(riskFreeRate float64, periodsPerYear int) *Analyzer {
	if periodsPerYear <= 0 {
		periodsPerYear = periodicity.DefaultPeriodsPerYear
	}
	return &Analyzer{
		RiskFreeRate:   riskFreeRate,
		PeriodsPerYear: periodsPerYear,
	}
}

// RiskFreePeriodic converts the annual risk-free rate into a per-period rate
func (a *Analyzer) RiskFreePeriodic() float64 {
	return math.Pow(1+a.RiskFreeRate, 1/float64(a.PeriodsPerYear)) - 1
}

// SafeDiv divides num by den. It returns NaN when den is exactly zero and never returns an
// infinity.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	res := num / den
	if math.IsInf(res, 0) {
		return math.NaN()
	}
	return res
}

// sampleStdDev is the n-1 standard deviation; NaN when fewer than two observations. A
// constant sample is exactly 0 so callers can rely on SafeDiv for the degenerate case.
func sampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	if floats.Max(vals) == floats.Min(vals) {
		return 0
	}
	return stat.StdDev(vals, nil)
}

// DownsideDeviation computes the annualized standard deviation of the below-zero part of
// excess returns using the n-1 estimator.
func DownsideDeviation(excess []float64, mode DownsideMode, periodsPerYear int) float64 {
	var downside []float64
	switch mode {
	case DownsideInclusive:
		downside = make([]float64, len(excess))
		for idx, val := range excess {
			downside[idx] = math.Min(val, 0)
		}
	case DownsideStrict:
		downside = make([]float64, 0, len(excess))
		for _, val := range excess {
			if val < 0 {
				downside = append(downside, val)
			}
		}
	default:
		return math.NaN()
	}
	return sampleStdDev(downside) * math.Sqrt(float64(periodsPerYear))
}

// Compute calculates performance metrics for a return series. Missing values are removed
// before computation. When benchmark is non-nil the information ratio is computed on the
// dates both series share.
func (a *Analyzer) Compute(r *dataframe.Series, benchmark *dataframe.Series) (*Metrics, error) {
	r = r.DropNaN()
	if r.Len() == 0 {
		return nil, ErrEmptySeries
	}

	ppy := float64(a.PeriodsPerYear)
	rf := a.RiskFreePeriodic()

	excess := make([]float64, r.Len())
	for idx, val := range r.Vals {
		excess[idx] = val - rf
	}
	meanExcess := stat.Mean(excess, nil)

	dd := DrawdownSeries(r)
	totalReturn := dd.Wealth[len(dd.Wealth)-1] - 1
	cagr := math.Pow(1+totalReturn, ppy/float64(r.Len())) - 1

	vol := sampleStdDev(r.Vals) * math.Sqrt(ppy)
	downsideVol := DownsideDeviation(excess, DownsideInclusive, a.PeriodsPerYear)
	maxDrawdown := dd.Max()

	metrics := &Metrics{
		TotalReturn:   totalReturn,
		CAGR:          cagr,
		AnnualizedVol: vol,
		Sharpe:        SafeDiv(meanExcess*ppy, vol),
		Sortino:       SafeDiv(meanExcess*ppy, downsideVol),
		MaxDrawdown:   maxDrawdown,
		Calmar:        SafeDiv(cagr, math.Abs(maxDrawdown)),
	}

	if benchmark != nil {
		ir := a.InformationRatio(r, benchmark.DropNaN())
		if !math.IsNaN(ir) && !math.IsInf(ir, 0) {
			metrics.InformationRatio = Some(ir)
		}
	}

	return metrics, nil
}

// ComputeFromPrices converts prices (and optional benchmark prices) into simple returns and
// calls Compute. Benchmark prices are aligned to the dates of prices before conversion.
func (a *Analyzer) ComputeFromPrices(prices *dataframe.Series, benchmarkPrices *dataframe.Series) (*Metrics, error) {
	cleaned := prices.DropNaN()
	if cleaned.Len() == 0 {
		return nil, ErrEmptySeries
	}

	r, err := returns.ToReturns(cleaned, returns.Simple)
	if err != nil || r.Len() == 0 {
		return nil, ErrEmptySeries
	}

	var benchmark *dataframe.Series
	if benchmarkPrices != nil {
		aligned := benchmarkPrices.Reindex(cleaned.Dates, math.NaN()).DropNaN()
		if aligned.Len() >= 2 {
			benchmark, err = returns.ToReturns(aligned, returns.Simple)
			if err != nil {
				return nil, err
			}
		} else {
			benchmark = &dataframe.Series{Name: benchmarkPrices.Name}
		}
	}

	return a.Compute(r, benchmark)
}

// InformationRatio measures the annualized active return per unit of tracking error. Both
// series are aligned with an inner join on their dates. Returns NaN when the ratio cannot be
// computed.
func (a *Analyzer) InformationRatio(r, benchmark *dataframe.Series) float64 {
	portfolio, bench := r.InnerJoin(benchmark)
	if portfolio.Len() == 0 {
		return math.NaN()
	}

	active := make([]float64, portfolio.Len())
	floats.SubTo(active, portfolio.Vals, bench.Vals)

	ppy := float64(a.PeriodsPerYear)
	trackingError := sampleStdDev(active) * math.Sqrt(ppy)
	return SafeDiv(stat.Mean(active, nil)*ppy, trackingError)
}

// TrackingError is the annualized standard deviation of active returns over the dates both
// series share
func (a *Analyzer) TrackingError(r, benchmark *dataframe.Series) float64 {
	portfolio, bench := r.InnerJoin(benchmark)
	if portfolio.Len() == 0 {
		return math.NaN()
	}
	active := make([]float64, portfolio.Len())
	floats.SubTo(active, portfolio.Vals, bench.Vals)
	return sampleStdDev(active) * math.Sqrt(float64(a.PeriodsPerYear))
}
