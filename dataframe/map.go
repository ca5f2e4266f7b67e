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

package dataframe

import (
	"math"
	"sort"
	"time"
)

// Keys returns the names in the map in sorted order
func (sm SeriesMap) Keys() []string {
	keys := make([]string, 0, len(sm))
	for k := range sm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnionDates returns the sorted union of every series' date index
func (sm SeriesMap) UnionDates() []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range sm {
		for _, dt := range s.Dates {
			seen[dt.UnixNano()] = dt
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, dt := range seen {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// Align finds the maximum start and minimum end across all series and trims them to match
func (sm SeriesMap) Align() SeriesMap {
	var start time.Time
	var end time.Time

	first := true
	for _, s := range sm {
		if first {
			start = s.Start()
			end = s.End()
			first = false
			continue
		}
		if s.Start().After(start) {
			start = s.Start()
		}
		if s.End().Before(end) {
			end = s.End()
		}
	}

	trimmed := make(SeriesMap, len(sm))
	for k, s := range sm {
		trimmed[k] = s.Trim(start, end)
	}
	return trimmed
}

// DataFrame converts each series in the map to a column in the dataframe. The date index is
// the union of all dates; observations missing from a series are NaN. Columns are ordered by name.
func (sm SeriesMap) DataFrame() *DataFrame {
	dates := sm.UnionDates()
	df := &DataFrame{
		Dates:    dates,
		ColNames: make([]string, 0, len(sm)),
		Vals:     make([][]float64, 0, len(sm)),
	}

	for _, k := range sm.Keys() {
		reindexed := sm[k].Reindex(dates, math.NaN())
		df.ColNames = append(df.ColNames, k)
		df.Vals = append(df.Vals, reindexed.Vals)
	}

	return df
}
