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
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	if df == nil {
		return 0
	}
	return len(df.Dates)
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	if df == nil {
		return 0
	}
	return len(df.ColNames)
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame) Copy() *DataFrame {
	dates := make([]time.Time, len(df.Dates))
	copy(dates, df.Dates)

	colNames := make([]string, len(df.ColNames))
	copy(colNames, df.ColNames)

	vals := make([][]float64, len(df.Vals))
	for idx, col := range df.Vals {
		vals[idx] = make([]float64, len(col))
		copy(vals[idx], col)
	}

	return &DataFrame{
		Dates:    dates,
		ColNames: colNames,
		Vals:     vals,
	}
}

// Start returns the first date in the dataframe or zero-time if empty
func (df *DataFrame) Start() time.Time {
	if df.Len() == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// End returns the last date in the dataframe or zero-time if empty
func (df *DataFrame) End() time.Time {
	if df.Len() == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// Column returns the named column as a series sharing the dataframe's date index
func (df *DataFrame) Column(name string) (*Series, error) {
	for idx, colName := range df.ColNames {
		if colName == name {
			return &Series{
				Name:  name,
				Dates: df.Dates,
				Vals:  df.Vals[idx],
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Breakout takes a multi-column dataframe and splits it into a map of series
func (df *DataFrame) Breakout() SeriesMap {
	res := make(SeriesMap, len(df.ColNames))
	for idx, colName := range df.ColNames {
		res[colName] = &Series{
			Name:  colName,
			Dates: df.Dates,
			Vals:  df.Vals[idx],
		}
	}
	return res
}

// Insert adds a new column to the dataframe. Panics if the column length does not match the
// date index.
func (df *DataFrame) Insert(name string, col []float64) {
	if len(col) != len(df.Dates) {
		log.Panic().Int("ColLen", len(col)).Int("Len", len(df.Dates)).Str("Name", name).Msg("cannot insert column into dataframe")
	}
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
}

// DropEmptyRows removes rows where every column is NaN
func (df *DataFrame) DropEmptyRows() *DataFrame {
	res := &DataFrame{
		Dates:    make([]time.Time, 0, df.Len()),
		ColNames: append([]string{}, df.ColNames...),
		Vals:     make([][]float64, len(df.ColNames)),
	}

	for rowIdx, dt := range df.Dates {
		empty := true
		for _, col := range df.Vals {
			if !math.IsNaN(col[rowIdx]) {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		res.Dates = append(res.Dates, dt)
		for colIdx, col := range df.Vals {
			res.Vals[colIdx] = append(res.Vals[colIdx], col[rowIdx])
		}
	}

	return res
}

// Table renders the dataframe as an ASCII table
func (df *DataFrame) Table() string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader(append([]string{"Date"}, df.ColNames...))

	for rowIdx, dt := range df.Dates {
		row := []string{dt.Format(DateFormat)}
		for colIdx := range df.ColNames {
			row = append(row, fmt.Sprintf("%.4f", df.Vals[colIdx][rowIdx]))
		}
		table.Append(row)
	}

	footer := make([]string, len(df.ColNames)+1)
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)
	table.Render()
	return sb.String()
}
