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

package extremes

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/returns"
)

// Contribution pairs base metrics with the same metrics after the most extreme days were
// removed
type Contribution struct {
	BaseCAGR           float64
	AdjustedCAGR       float64
	BaseSharpe         float64
	AdjustedSharpe     float64
	BaseVolatility     float64
	AdjustedVolatility float64
}

// ComputeContribution runs analyzer on r and on r without its topPositive best and
// topNegative worst days
func ComputeContribution(r *dataframe.Series, analyzer *performance.Analyzer, topPositive, topNegative int) (*Contribution, error) {
	cleaned := r.DropNaN()
	if cleaned.Len() == 0 {
		return nil, fmt.Errorf("extreme contribution: %w", returns.ErrInsufficientData)
	}

	base, err := analyzer.Compute(cleaned, nil)
	if err != nil {
		return nil, err
	}

	adjusted, err := analyzer.Compute(RemoveExtremeDays(cleaned, topPositive, topNegative), nil)
	if err != nil {
		return nil, fmt.Errorf("extreme contribution after removing %d best and %d worst days: %w", topPositive, topNegative, err)
	}

	return &Contribution{
		BaseCAGR:           base.CAGR,
		AdjustedCAGR:       adjusted.CAGR,
		BaseSharpe:         base.Sharpe,
		AdjustedSharpe:     adjusted.Sharpe,
		BaseVolatility:     base.AnnualizedVol,
		AdjustedVolatility: adjusted.AnnualizedVol,
	}, nil
}

func (c *Contribution) values() map[string]float64 {
	return map[string]float64{
		"base_cagr":           c.BaseCAGR,
		"adjusted_cagr":       c.AdjustedCAGR,
		"base_sharpe":         c.BaseSharpe,
		"adjusted_sharpe":     c.AdjustedSharpe,
		"base_volatility":     c.BaseVolatility,
		"adjusted_volatility": c.AdjustedVolatility,
	}
}

// Columns returns the header of the table
func (c *Contribution) Columns() []string {
	return []string{"base_cagr", "adjusted_cagr", "base_sharpe", "adjusted_sharpe", "base_volatility", "adjusted_volatility"}
}

// Records returns the contribution as a single row
func (c *Contribution) Records() [][]string {
	vals := c.values()
	row := make([]string, 0, len(vals))
	for _, col := range c.Columns() {
		row = append(row, performance.FormatFloat(vals[col]))
	}
	return [][]string{row}
}

// MarshalJSON writes NaN values as null
func (c Contribution) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64)
	for k, v := range c.values() {
		out[k] = performance.NullableFloat(v)
	}
	return json.Marshal(out)
}
