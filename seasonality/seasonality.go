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

// Package seasonality groups returns by calendar month and by weekday and tests whether the
// groups differ from zero or from each other.
package seasonality

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultLowerLimit = 0.01
	DefaultUpperLimit = 0.01
)

// Winsorize clips returns to the [lower, 1-upper] quantile range
func Winsorize(r *dataframe.Series, lower, upper float64) *dataframe.Series {
	if r.Len() == 0 {
		return r.Copy()
	}
	lo := r.Quantile(lower)
	hi := r.Quantile(1 - upper)
	return r.Apply(func(val float64) float64 {
		switch {
		case math.IsNaN(val):
			return val
		case val < lo:
			return lo
		case val > hi:
			return hi
		default:
			return val
		}
	})
}

// GroupStats describes the returns in one calendar bucket
type GroupStats struct {
	Avg   float64
	Count int
	Std   float64
}

func describe(vals []float64) GroupStats {
	gs := GroupStats{Avg: math.NaN(), Count: len(vals), Std: math.NaN()}
	if len(vals) > 0 {
		gs.Avg = stat.Mean(vals, nil)
	}
	if len(vals) > 1 {
		gs.Std = stat.StdDev(vals, nil)
	}
	return gs
}

// groupBy buckets the non-NaN values of r by key and returns the keys in ascending order
func groupBy(r *dataframe.Series, key func(time.Time) int) ([]int, map[int][]float64) {
	groups := make(map[int][]float64)
	for idx, dt := range r.Dates {
		val := r.Vals[idx]
		if math.IsNaN(val) {
			continue
		}
		k := key(dt)
		groups[k] = append(groups[k], val)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys, groups
}

func prepare(r *dataframe.Series, winsorize bool) *dataframe.Series {
	if winsorize {
		return Winsorize(r, DefaultLowerLimit, DefaultUpperLimit)
	}
	return r
}

// TTest is a two-sided one-sample t-test of vals against a zero mean. Both results are NaN
// with fewer than two observations or zero dispersion.
func TTest(vals []float64) (t, p float64) {
	n := float64(len(vals))
	if len(vals) < 2 || floats.Max(vals) == floats.Min(vals) {
		return math.NaN(), math.NaN()
	}
	mean, std := stat.MeanStdDev(vals, nil)
	se := std / math.Sqrt(n)
	if se == 0 || math.IsNaN(se) {
		return math.NaN(), math.NaN()
	}
	t = mean / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	p = 2 * dist.Survival(math.Abs(t))
	return t, p
}

// OneWayANOVA tests whether the groups share a common mean. Both results are NaN with fewer
// than two groups, no within-group degrees of freedom or zero within-group variance.
func OneWayANOVA(groups [][]float64) (f, p float64) {
	k := len(groups)
	if k < 2 {
		return math.NaN(), math.NaN()
	}

	total := 0
	grandSum := 0.0
	for _, g := range groups {
		total += len(g)
		for _, val := range g {
			grandSum += val
		}
	}
	if total-k <= 0 {
		return math.NaN(), math.NaN()
	}
	grandMean := grandSum / float64(total)

	ssBetween := 0.0
	ssWithin := 0.0
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		mean := stat.Mean(g, nil)
		ssBetween += float64(len(g)) * (mean - grandMean) * (mean - grandMean)
		for _, val := range g {
			ssWithin += (val - mean) * (val - mean)
		}
	}
	if ssWithin == 0 {
		return math.NaN(), math.NaN()
	}

	d1 := float64(k - 1)
	d2 := float64(total - k)
	f = (ssBetween / d1) / (ssWithin / d2)
	dist := distuv.F{D1: d1, D2: d2}
	return f, dist.Survival(f)
}

// MonthRow is the return profile of one calendar month
type MonthRow struct {
	Month time.Month
	GroupStats
	T float64
	P float64
}

// MonthTable has one row per calendar month present in the data
type MonthTable struct {
	Rows []MonthRow
}

// ByMonth groups returns by calendar month and t-tests each month's mean against zero.
// Returns are winsorized at 1%/99% first when winsorize is true.
func ByMonth(r *dataframe.Series, winsorize bool) *MonthTable {
	keys, groups := groupBy(prepare(r, winsorize), func(dt time.Time) int {
		return int(dt.Month())
	})

	table := &MonthTable{Rows: make([]MonthRow, 0, len(keys))}
	for _, k := range keys {
		t, p := TTest(groups[k])
		table.Rows = append(table.Rows, MonthRow{
			Month:      time.Month(k),
			GroupStats: describe(groups[k]),
			T:          t,
			P:          p,
		})
	}
	return table
}

// Columns returns the header of the table
func (mt *MonthTable) Columns() []string {
	return []string{"month", "avg", "count", "std", "t", "p"}
}

// Records returns every row formatted for CSV output
func (mt *MonthTable) Records() [][]string {
	records := make([][]string, len(mt.Rows))
	for idx, row := range mt.Rows {
		records[idx] = []string{
			strconv.Itoa(int(row.Month)),
			performance.FormatFloat(row.Avg),
			strconv.Itoa(row.Count),
			performance.FormatFloat(row.Std),
			performance.FormatFloat(row.T),
			performance.FormatFloat(row.P),
		}
	}
	return records
}

// WeekdayRow is the return profile of one weekday. Weekday 0 is Monday.
type WeekdayRow struct {
	Weekday int
	GroupStats
	AnovaF float64
	AnovaP float64
}

// WeekdayTable has one row per weekday present in the data. The ANOVA statistic compares all
// weekdays and is repeated on every row.
type WeekdayTable struct {
	Rows []WeekdayRow
}

func mondayFirst(dt time.Time) int {
	return (int(dt.Weekday()) + 6) % 7
}

// ByWeekday groups returns by weekday (Monday = 0) and runs a one-way ANOVA across the
// groups
func ByWeekday(r *dataframe.Series, winsorize bool) *WeekdayTable {
	keys, groups := groupBy(prepare(r, winsorize), mondayFirst)

	all := make([][]float64, 0, len(keys))
	for _, k := range keys {
		all = append(all, groups[k])
	}
	f, p := OneWayANOVA(all)

	table := &WeekdayTable{Rows: make([]WeekdayRow, 0, len(keys))}
	for _, k := range keys {
		table.Rows = append(table.Rows, WeekdayRow{
			Weekday:    k,
			GroupStats: describe(groups[k]),
			AnovaF:     f,
			AnovaP:     p,
		})
	}
	return table
}

// Columns returns the header of the table
func (wt *WeekdayTable) Columns() []string {
	return []string{"weekday", "avg", "count", "std", "anova_F", "anova_p"}
}

// Records returns every row formatted for CSV output
func (wt *WeekdayTable) Records() [][]string {
	records := make([][]string, len(wt.Rows))
	for idx, row := range wt.Rows {
		records[idx] = []string{
			strconv.Itoa(row.Weekday),
			performance.FormatFloat(row.Avg),
			strconv.Itoa(row.Count),
			performance.FormatFloat(row.Std),
			performance.FormatFloat(row.AnovaF),
			performance.FormatFloat(row.AnovaP),
		}
	}
	return records
}
