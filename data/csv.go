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

package data

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	dfgo "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-indices/dataframe"
)

var emptyString = ""

// readCSV loads a CSV payload with every column typed as a string. Empty cells are nil.
func readCSV(ctx context.Context, body []byte) (*dfgo.DataFrame, error) {
	return imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		TrimLeadingSpace: true,
		NilValue:         &emptyString,
	})
}

// columnIndex finds the first column whose lower-cased name matches one of names
func columnIndex(df *dfgo.DataFrame, names ...string) int {
	cols := df.Names()
	for _, want := range names {
		for idx, col := range cols {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				return idx
			}
		}
	}
	return -1
}

// parseDate accepts ISO dates optionally followed by a time component
func parseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if len(val) < len(dataframe.DateFormat) {
		return time.Time{}, fmt.Errorf("invalid date %q", val)
	}
	return time.Parse(dataframe.DateFormat, val[:len(dataframe.DateFormat)])
}

// seriesFromCSV converts the date and value columns of a string-typed dataframe into a
// sorted series. Rows with an unparseable date are skipped; unparseable values become NaN.
func seriesFromCSV(df *dfgo.DataFrame, name string, dateCol, valCol int) *dataframe.Series {
	nrows := df.NRows()
	dateSeries := df.Series[dateCol]
	valSeries := df.Series[valCol]

	dates := make([]time.Time, 0, nrows)
	vals := make([]float64, 0, nrows)
	for row := 0; row < nrows; row++ {
		rawDate, ok := dateSeries.Value(row).(string)
		if !ok {
			continue
		}
		dt, err := parseDate(rawDate)
		if err != nil {
			log.Debug().Str("Series", name).Str("Date", rawDate).Msg("skipping row with invalid date")
			continue
		}

		val := math.NaN()
		if raw, ok := valSeries.Value(row).(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				val = f
			}
		}

		dates = append(dates, dt)
		vals = append(vals, val)
	}

	s := dataframe.NewSeries(name, dates, vals)
	if !sort.SliceIsSorted(s.Dates, func(i, j int) bool { return s.Dates[i].Before(s.Dates[j]) }) {
		sort.Sort(byDate{s})
	}
	return s
}

type byDate struct {
	s *dataframe.Series
}

func (b byDate) Len() int           { return b.s.Len() }
func (b byDate) Less(i, j int) bool { return b.s.Dates[i].Before(b.s.Dates[j]) }
func (b byDate) Swap(i, j int) {
	b.s.Dates[i], b.s.Dates[j] = b.s.Dates[j], b.s.Dates[i]
	b.s.Vals[i], b.s.Vals[j] = b.s.Vals[j], b.s.Vals[i]
}

// writeCSV exports the series as a two column CSV (date, valueName); NaN is written empty
func writeCSV(ctx context.Context, s *dataframe.Series, valueName string) ([]byte, error) {
	dates := make([]interface{}, s.Len())
	vals := make([]interface{}, s.Len())
	for idx, dt := range s.Dates {
		dates[idx] = dt.Format(dataframe.DateFormat)
		if math.IsNaN(s.Vals[idx]) {
			vals[idx] = nil
		} else {
			vals[idx] = s.Vals[idx]
		}
	}

	valSeries := dfgo.NewSeriesFloat64(valueName, nil, vals...)
	valSeries.SetValueToStringFormatter(func(val interface{}) string {
		if val == nil {
			return emptyString
		}
		return strconv.FormatFloat(val.(float64), 'f', -1, 64)
	})

	df := dfgo.NewDataFrame(dfgo.NewSeriesString("date", nil, dates...), valSeries)

	var buf bytes.Buffer
	err := exports.ExportToCSV(ctx, &buf, df, exports.CSVExportOptions{
		NullString: &emptyString,
		Separator:  ',',
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
