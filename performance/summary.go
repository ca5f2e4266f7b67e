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

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/periodicity"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// The functions in this file describe a single return series on its own, inferring the
// number of periods per year from its dates. Volatilities here use the population (n)
// estimator.

// Summary describes the risk and return of a single series
type Summary struct {
	AnnualReturn float64
	AnnualVol    float64
	Sharpe       float64
	Sortino      float64
	Calmar       float64
	MaxDrawdown  float64
	UlcerIndex   float64
}

func resolvePeriods(r *dataframe.Series, periodsPerYear int) float64 {
	if periodsPerYear <= 0 {
		return float64(periodicity.PeriodsPerYear(r.Dates))
	}
	return float64(periodsPerYear)
}

func popStdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	if floats.Max(vals) == floats.Min(vals) {
		return 0
	}
	return math.Sqrt(stat.PopVariance(vals, nil))
}

// AnnualizeReturn compounds the series and scales the growth to one year:
// prod(1+r)^(ppy/n) - 1. A non-positive periodsPerYear is inferred from the dates.
func AnnualizeReturn(r *dataframe.Series, periodsPerYear int) float64 {
	if r.Len() == 0 {
		return math.NaN()
	}
	ppy := resolvePeriods(r, periodsPerYear)
	growth := r.WealthIndex().Last()
	return math.Pow(growth, ppy/float64(r.Len())) - 1
}

// AnnualizeVolatility scales the population standard deviation by sqrt(periods per year)
func AnnualizeVolatility(r *dataframe.Series, periodsPerYear int) float64 {
	ppy := resolvePeriods(r, periodsPerYear)
	return popStdDev(r.Vals) * math.Sqrt(ppy)
}

// SemiDeviation is the population standard deviation of the negative returns only. NaN when
// there are no negative returns.
func SemiDeviation(r *dataframe.Series) float64 {
	negative := make([]float64, 0, r.Len())
	for _, val := range r.Vals {
		if val < 0 {
			negative = append(negative, val)
		}
	}
	return popStdDev(negative)
}

// SharpeRatio is the annualized arithmetic mean over the annualized volatility with no
// risk-free adjustment
func SharpeRatio(r *dataframe.Series) float64 {
	if r.Len() == 0 {
		return math.NaN()
	}
	ppy := resolvePeriods(r, 0)
	mu := stat.Mean(r.Vals, nil) * ppy
	vol := popStdDev(r.Vals) * math.Sqrt(ppy)
	return SafeDiv(mu, vol)
}

// SortinoRatio is the annualized arithmetic mean over the annualized semi-deviation
func SortinoRatio(r *dataframe.Series) float64 {
	if r.Len() == 0 {
		return math.NaN()
	}
	ppy := resolvePeriods(r, 0)
	mu := stat.Mean(r.Vals, nil) * ppy
	sd := SemiDeviation(r) * math.Sqrt(ppy)
	return SafeDiv(mu, sd)
}

// CalmarRatio is the annualized return over the magnitude of the maximum drawdown
func CalmarRatio(r *dataframe.Series) float64 {
	return SafeDiv(AnnualizeReturn(r, 0), math.Abs(DrawdownSeries(r).Max()))
}

// Summarize computes every single-series statistic
func Summarize(r *dataframe.Series) *Summary {
	dd := DrawdownSeries(r)
	return &Summary{
		AnnualReturn: AnnualizeReturn(r, 0),
		AnnualVol:    AnnualizeVolatility(r, 0),
		Sharpe:       SharpeRatio(r),
		Sortino:      SortinoRatio(r),
		Calmar:       SafeDiv(AnnualizeReturn(r, 0), math.Abs(dd.Max())),
		MaxDrawdown:  dd.Max(),
		UlcerIndex:   dd.UlcerIndex(),
	}
}

var summaryColumns = []string{"annual_return", "annual_vol", "sharpe", "sortino", "calmar", "max_drawdown", "ulcer_index"}

// Columns returns the CSV header for Record
func (s *Summary) Columns() []string {
	return summaryColumns
}

func (s *Summary) values() []float64 {
	return []float64{s.AnnualReturn, s.AnnualVol, s.Sharpe, s.Sortino, s.Calmar, s.MaxDrawdown, s.UlcerIndex}
}

// Record formats the summary as a CSV row in Columns order
func (s *Summary) Record() []string {
	vals := s.values()
	row := make([]string, len(vals))
	for idx, val := range vals {
		row[idx] = FormatFloat(val)
	}
	return row
}

// MarshalJSON serializes the summary with NaN written as null
func (s Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(summaryColumns))
	for idx, val := range s.values() {
		out[summaryColumns[idx]] = NullableFloat(val)
	}
	return json.Marshal(out)
}
