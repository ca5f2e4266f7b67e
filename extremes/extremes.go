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

// Package extremes measures how sensitive returns are to the most extreme days: removing or
// zeroing the best and worst days, and studying what happens after them.
package extremes

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/returns"
)

const (
	RemoveBest  = "remove_best"
	RemoveWorst = "remove_worst"
)

// rankPositions returns series positions ordered from the most extreme value: descending
// when best is true, ascending otherwise. Equal values keep their order in the series.
func rankPositions(r *dataframe.Series, best bool) []int {
	positions := make([]int, r.Len())
	for idx := range positions {
		positions[idx] = idx
	}
	sort.SliceStable(positions, func(i, j int) bool {
		a := r.Vals[positions[i]]
		b := r.Vals[positions[j]]
		if best {
			return a > b
		}
		return a < b
	})
	return positions
}

func extremePositions(r *dataframe.Series, n int, best bool) []int {
	if n <= 0 {
		return nil
	}
	positions := rankPositions(r, best)
	if n < len(positions) {
		positions = positions[:n]
	}
	return positions
}

// RemoveTopNDays drops the n largest returns (best) or the n smallest returns (!best) from
// the series. n <= 0 or an empty series returns an unchanged copy.
func RemoveTopNDays(r *dataframe.Series, n int, best bool) *dataframe.Series {
	if n <= 0 || r.Len() == 0 {
		return r.Copy()
	}
	return r.DropPositions(extremePositions(r, n, best))
}

// RemoveExtremeDays drops the topPositive largest and the topNegative smallest returns in a
// single pass. Missing values are removed first.
func RemoveExtremeDays(r *dataframe.Series, topPositive, topNegative int) *dataframe.Series {
	cleaned := r.DropNaN()
	if cleaned.Len() == 0 {
		return cleaned
	}
	drop := append(extremePositions(cleaned, topPositive, true), extremePositions(cleaned, topNegative, false)...)
	return cleaned.DropPositions(drop)
}

// ImpactRow is the CAGR and Sharpe ratio after removing n extreme days
type ImpactRow struct {
	N          int
	Scenario   string
	CAGR       float64
	Sharpe     float64
	BaseCAGR   float64
	BaseSharpe float64
}

// ImpactTable has one row per (n, scenario) pair
type ImpactTable struct {
	Rows []ImpactRow
}

// ImpactOfExtremes measures CAGR and Sharpe after removing the n best days and, separately,
// the n worst days for every n in ns. Both metrics infer periods per year from the dates of
// the (reduced) series.
func ImpactOfExtremes(r *dataframe.Series, ns []int) (*ImpactTable, error) {
	if r.Len() == 0 {
		return nil, fmt.Errorf("impact of extremes: %w", returns.ErrInsufficientData)
	}

	baseCAGR := performance.AnnualizeReturn(r, 0)
	baseSharpe := performance.SharpeRatio(r)

	table := &ImpactTable{Rows: make([]ImpactRow, 0, 2*len(ns))}
	for _, n := range ns {
		for _, scenario := range []string{RemoveBest, RemoveWorst} {
			reduced := RemoveTopNDays(r, n, scenario == RemoveBest)
			table.Rows = append(table.Rows, ImpactRow{
				N:          n,
				Scenario:   scenario,
				CAGR:       performance.AnnualizeReturn(reduced, 0),
				Sharpe:     performance.SharpeRatio(reduced),
				BaseCAGR:   baseCAGR,
				BaseSharpe: baseSharpe,
			})
		}
	}
	return table, nil
}

// Columns returns the header of the table
func (t *ImpactTable) Columns() []string {
	return []string{"n", "scenario", "cagr", "sharpe", "base_cagr", "base_sharpe"}
}

// Records returns every row formatted for CSV output
func (t *ImpactTable) Records() [][]string {
	records := make([][]string, len(t.Rows))
	for idx, row := range t.Rows {
		records[idx] = []string{
			strconv.Itoa(row.N),
			row.Scenario,
			performance.FormatFloat(row.CAGR),
			performance.FormatFloat(row.Sharpe),
			performance.FormatFloat(row.BaseCAGR),
			performance.FormatFloat(row.BaseSharpe),
		}
	}
	return records
}
