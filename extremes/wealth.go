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
	"time"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
)

// WealthCurves compares growth-of-one curves of the unmodified returns with the same returns
// after the n best or n worst days are set to zero. All curves share the original dates.
type WealthCurves struct {
	N         int
	Dates     []time.Time
	Base      []float64
	ZeroBest  []float64
	ZeroWorst []float64
}

func zeroPositions(r *dataframe.Series, positions []int) *dataframe.Series {
	res := r.Copy()
	for _, pos := range positions {
		res.Vals[pos] = 0
	}
	return res
}

// WealthCurvesWithExtremes zeroes (rather than drops) the n best and, separately, the n worst
// returns and compounds each variant. n is clamped to [0, len(r)].
func WealthCurvesWithExtremes(r *dataframe.Series, n int) *WealthCurves {
	if n < 0 {
		n = 0
	}
	if n > r.Len() {
		n = r.Len()
	}

	return &WealthCurves{
		N:         n,
		Dates:     r.Dates,
		Base:      r.WealthIndex().Vals,
		ZeroBest:  zeroPositions(r, extremePositions(r, n, true)).WealthIndex().Vals,
		ZeroWorst: zeroPositions(r, extremePositions(r, n, false)).WealthIndex().Vals,
	}
}

// Frame returns the curves as a dataframe with base, zero_best and zero_worst columns
func (wc *WealthCurves) Frame() *dataframe.DataFrame {
	return &dataframe.DataFrame{
		Dates:    wc.Dates,
		ColNames: []string{"base", "zero_best", "zero_worst"},
		Vals:     [][]float64{wc.Base, wc.ZeroBest, wc.ZeroWorst},
	}
}

// Columns returns the header of the table
func (wc *WealthCurves) Columns() []string {
	return []string{"date", "base", "zero_best", "zero_worst"}
}

// Records returns one row per date
func (wc *WealthCurves) Records() [][]string {
	records := make([][]string, len(wc.Dates))
	for idx, dt := range wc.Dates {
		records[idx] = []string{
			dt.Format(dataframe.DateFormat),
			performance.FormatFloat(wc.Base[idx]),
			performance.FormatFloat(wc.ZeroBest[idx]),
			performance.FormatFloat(wc.ZeroWorst[idx]),
		}
	}
	return records
}
