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
	"math"
	"strconv"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"gonum.org/v1/gonum/stat"
)

const (
	SideTop    = "top"
	SideBottom = "bottom"
)

var (
	DefaultQuantile = 0.99
	DefaultHorizons = []int{1, 5, 20}
)

// EventRow is the mean forward return over H periods after extreme days on one side
type EventRow struct {
	Side string
	H    int
	Avg  float64
	N    int
}

// EventTable has one row per (side, horizon) pair
type EventTable struct {
	UpperThreshold float64
	LowerThreshold float64
	Rows           []EventRow
}

// forwardReturn compounds the h returns strictly after pos. ok is false for a negative h or
// when fewer than h observations follow.
func forwardReturn(r *dataframe.Series, pos, h int) (float64, bool) {
	if h < 0 || pos+h >= r.Len() {
		return math.NaN(), false
	}
	growth := 1.0
	for idx := pos + 1; idx <= pos+h; idx++ {
		growth *= 1 + r.Vals[idx]
	}
	return growth - 1, true
}

// EventStudyAfterExtreme treats returns at or above the q-quantile as extreme up days and
// returns at or below the (1-q)-quantile as extreme down days. For every horizon it averages
// the compounded return of the h observations following each event. Events without a full
// window of h following observations are discarded; Avg is NaN when no event qualifies.
func EventStudyAfterExtreme(r *dataframe.Series, q float64, horizons []int) *EventTable {
	table := &EventTable{
		UpperThreshold: r.Quantile(q),
		LowerThreshold: r.Quantile(1 - q),
		Rows:           make([]EventRow, 0, 2*len(horizons)),
	}

	sides := []struct {
		name    string
		isEvent func(float64) bool
	}{
		{SideTop, func(v float64) bool { return v >= table.UpperThreshold }},
		{SideBottom, func(v float64) bool { return v <= table.LowerThreshold }},
	}

	for _, side := range sides {
		events := make([]int, 0)
		for pos, val := range r.Vals {
			if side.isEvent(val) {
				events = append(events, pos)
			}
		}

		for _, h := range horizons {
			acc := make([]float64, 0, len(events))
			for _, pos := range events {
				if fwd, ok := forwardReturn(r, pos, h); ok {
					acc = append(acc, fwd)
				}
			}

			avg := math.NaN()
			if len(acc) > 0 {
				avg = stat.Mean(acc, nil)
			}
			table.Rows = append(table.Rows, EventRow{
				Side: side.name,
				H:    h,
				Avg:  avg,
				N:    len(acc),
			})
		}
	}

	return table
}

// Columns returns the header of the table
func (t *EventTable) Columns() []string {
	return []string{"side", "h", "avg", "n"}
}

// Records returns every row formatted for CSV output
func (t *EventTable) Records() [][]string {
	records := make([][]string, len(t.Rows))
	for idx, row := range t.Rows {
		records[idx] = []string{row.Side, strconv.Itoa(row.H), performance.FormatFloat(row.Avg), strconv.Itoa(row.N)}
	}
	return records
}
