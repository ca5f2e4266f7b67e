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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// NewSeries creates a series from dates and values. The slices are used as-is, the caller
// must not modify them afterwards. Panics if dates and vals have different lengths.
func NewSeries(name string, dates []time.Time, vals []float64) *Series {
	if len(dates) != len(vals) {
		log.Panic().Int("NumDates", len(dates)).Int("NumVals", len(vals)).Str("Name", name).Msg("cannot create series")
	}
	return &Series{
		Name:  name,
		Dates: dates,
		Vals:  vals,
	}
}

// Len returns the number of observations in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Copy creates a deep copy of the series
func (s *Series) Copy() *Series {
	dates := make([]time.Time, len(s.Dates))
	copy(dates, s.Dates)
	vals := make([]float64, len(s.Vals))
	copy(vals, s.Vals)
	return &Series{
		Name:  s.Name,
		Dates: dates,
		Vals:  vals,
	}
}

// Rename returns a shallow copy of the series with a new name
func (s *Series) Rename(name string) *Series {
	return &Series{
		Name:  name,
		Dates: s.Dates,
		Vals:  s.Vals,
	}
}

// Start returns the first date in the series or zero-time if empty
func (s *Series) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Dates[0]
}

// End returns the last date in the series or zero-time if empty
func (s *Series) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// Last returns the final value of the series or NaN if empty
func (s *Series) Last() float64 {
	if s.Len() == 0 {
		return math.NaN()
	}
	return s.Vals[len(s.Vals)-1]
}

// Filter returns a new series with only the observations where keep evaluates to true
func (s *Series) Filter(keep func(dt time.Time, val float64) bool) *Series {
	dates := make([]time.Time, 0, s.Len())
	vals := make([]float64, 0, s.Len())
	for idx, dt := range s.Dates {
		if keep(dt, s.Vals[idx]) {
			dates = append(dates, dt)
			vals = append(vals, s.Vals[idx])
		}
	}
	return &Series{
		Name:  s.Name,
		Dates: dates,
		Vals:  vals,
	}
}

// DropNaN removes all observations whose value is NaN
func (s *Series) DropNaN() *Series {
	return s.Filter(func(_ time.Time, val float64) bool {
		return !math.IsNaN(val)
	})
}

// DropPositions returns a new series without the observations at the given positions.
// Positions out of range are ignored.
func (s *Series) DropPositions(positions []int) *Series {
	drop := make(map[int]bool, len(positions))
	for _, pos := range positions {
		drop[pos] = true
	}

	dates := make([]time.Time, 0, s.Len())
	vals := make([]float64, 0, s.Len())
	for idx := range s.Dates {
		if drop[idx] {
			continue
		}
		dates = append(dates, s.Dates[idx])
		vals = append(vals, s.Vals[idx])
	}

	return &Series{
		Name:  s.Name,
		Dates: dates,
		Vals:  vals,
	}
}

// Reindex conforms the series to the supplied date index. Dates missing from the series are
// set to fill; observations on dates not in the index are discarded. dates must be sorted.
func (s *Series) Reindex(dates []time.Time, fill float64) *Series {
	vals := make([]float64, len(dates))
	jj := 0
	for ii, dt := range dates {
		for jj < s.Len() && s.Dates[jj].Before(dt) {
			jj++
		}
		if jj < s.Len() && s.Dates[jj].Equal(dt) {
			vals[ii] = s.Vals[jj]
		} else {
			vals[ii] = fill
		}
	}

	newDates := make([]time.Time, len(dates))
	copy(newDates, dates)

	return &Series{
		Name:  s.Name,
		Dates: newDates,
		Vals:  vals,
	}
}

// InnerJoin aligns two series on the dates they have in common
func (s *Series) InnerJoin(other *Series) (*Series, *Series) {
	dates := make([]time.Time, 0, s.Len())
	left := make([]float64, 0, s.Len())
	right := make([]float64, 0, s.Len())

	ii, jj := 0, 0
	for ii < s.Len() && jj < other.Len() {
		a := s.Dates[ii]
		b := other.Dates[jj]
		switch {
		case a.Equal(b):
			dates = append(dates, a)
			left = append(left, s.Vals[ii])
			right = append(right, other.Vals[jj])
			ii++
			jj++
		case a.Before(b):
			ii++
		default:
			jj++
		}
	}

	otherDates := make([]time.Time, len(dates))
	copy(otherDates, dates)

	return &Series{Name: s.Name, Dates: dates, Vals: left},
		&Series{Name: other.Name, Dates: otherDates, Vals: right}
}

// Trim the series to the specified date range (inclusive)
func (s *Series) Trim(begin, end time.Time) *Series {
	if end.Before(begin) {
		log.Error().Time("Begin", begin).Time("End", end).Msg("cannot trim series, end is before begin")
		return &Series{Name: s.Name}
	}

	startIdx := sort.Search(s.Len(), func(idx int) bool {
		return !s.Dates[idx].Before(begin)
	})
	endIdx := sort.Search(s.Len(), func(idx int) bool {
		return s.Dates[idx].After(end)
	})

	if startIdx >= endIdx {
		return &Series{Name: s.Name, Dates: []time.Time{}, Vals: []float64{}}
	}

	return &Series{
		Name:  s.Name,
		Dates: s.Dates[startIdx:endIdx],
		Vals:  s.Vals[startIdx:endIdx],
	}
}

// Table formats the series as a two-column table
func (s *Series) Table() string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Date", s.Name})
	for idx, dt := range s.Dates {
		table.Append([]string{dt.Format(DateFormat), fmt.Sprintf("%.4f", s.Vals[idx])})
	}
	table.SetFooter([]string{"Num Rows", fmt.Sprintf("%d", s.Len())})
	table.SetBorder(false)
	table.Render()
	return sb.String()
}
