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

package report

import (
	"errors"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	charts "github.com/vicanso/go-charts/v2"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/seasonality"
)

var ErrNothingToPlot = errors.New("nothing to plot")

const (
	chartWidth  = 1000
	chartHeight = 500
	maxPoints   = 750
)

// thin keeps at most maxPoints evenly spaced rows, always including the last one
func thin(dates []time.Time, cols [][]float64) ([]time.Time, [][]float64) {
	if len(dates) <= maxPoints {
		return dates, cols
	}

	step := int(math.Ceil(float64(len(dates)) / float64(maxPoints)))
	idx := make([]int, 0, maxPoints+1)
	for ii := 0; ii < len(dates); ii += step {
		idx = append(idx, ii)
	}
	if idx[len(idx)-1] != len(dates)-1 {
		idx = append(idx, len(dates)-1)
	}

	outDates := make([]time.Time, len(idx))
	outCols := make([][]float64, len(cols))
	for colIdx := range cols {
		outCols[colIdx] = make([]float64, len(idx))
	}
	for ii, pos := range idx {
		outDates[ii] = dates[pos]
		for colIdx, col := range cols {
			outCols[colIdx][ii] = col[pos]
		}
	}
	return outDates, outCols
}

func dateLabels(dates []time.Time) []string {
	labels := make([]string, len(dates))
	for idx, dt := range dates {
		labels[idx] = dt.Format(dataframe.DateFormat)
	}
	return labels
}

func splitNumber(n int) int {
	split := n / 8
	if split < 1 {
		split = 1
	}
	return split
}

func save(fn string, painter *charts.Painter) error {
	buf, err := painter.Bytes()
	if err != nil {
		return err
	}
	if err := ensureDir(fn); err != nil {
		return err
	}
	if err := os.WriteFile(fn, buf, 0o644); err != nil {
		return err
	}
	log.Debug().Str("FileName", fn).Msg("wrote chart")
	return nil
}

func renderLines(fn, title string, dates []time.Time, cols [][]float64, names []string) error {
	dates, cols = thin(dates, cols)
	painter, err := charts.LineRender(
		cols,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        dateLabels(dates),
			SplitNumber: splitNumber(len(dates)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendLabelsOptionFunc(names),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		log.Error().Err(err).Str("Title", title).Msg("failed to render chart")
		return err
	}
	return save(fn, painter)
}

// CumulativeReturnsChart plots the growth of 1.0 for each return series. Dates missing
// from a series contribute a zero return.
func CumulativeReturnsChart(fn, title string, returns dataframe.SeriesMap) error {
	if len(returns) == 0 {
		return ErrNothingToPlot
	}

	df := returns.DataFrame()
	if df.Len() == 0 {
		return ErrNothingToPlot
	}

	cols := make([][]float64, df.ColCount())
	for colIdx, col := range df.Vals {
		wealth := make([]float64, len(col))
		level := 1.0
		for ii, r := range col {
			if !math.IsNaN(r) {
				level *= 1 + r
			}
			wealth[ii] = level
		}
		cols[colIdx] = wealth
	}

	return renderLines(fn, title, df.Dates, cols, df.ColNames)
}

// DrawdownChart plots the drawdown curve in percent
func DrawdownChart(fn, title string, dd *performance.Drawdown) error {
	if dd == nil || len(dd.Dates) == 0 {
		return ErrNothingToPlot
	}

	pct := make([]float64, len(dd.Drawdown))
	for idx, val := range dd.Drawdown {
		pct[idx] = val * 100
	}

	return renderLines(fn, title, dd.Dates, [][]float64{pct}, []string{"Drawdown %"})
}

// BarChart plots one bar group per label; each entry in values is one series named by legend
func BarChart(fn, title string, labels []string, values [][]float64, legend []string) error {
	if len(labels) == 0 || len(values) == 0 {
		return ErrNothingToPlot
	}

	clean := make([][]float64, len(values))
	for ii, row := range values {
		clean[ii] = make([]float64, len(row))
		for jj, val := range row {
			if !math.IsNaN(val) && !math.IsInf(val, 0) {
				clean[ii][jj] = val
			}
		}
	}

	painter, err := charts.BarRender(
		clean,
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legend),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		log.Error().Err(err).Str("Title", title).Msg("failed to render chart")
		return err
	}
	return save(fn, painter)
}

// MetricsChart compares annual return, annual volatility and Sharpe ratio across symbols
func MetricsChart(fn, title string, symbols []string, summaries map[string]*performance.Summary) error {
	labels := make([]string, 0, len(symbols))
	ret := make([]float64, 0, len(symbols))
	vol := make([]float64, 0, len(symbols))
	sharpe := make([]float64, 0, len(symbols))
	for _, sym := range symbols {
		s, ok := summaries[sym]
		if !ok {
			continue
		}
		labels = append(labels, sym)
		ret = append(ret, s.AnnualReturn)
		vol = append(vol, s.AnnualVol)
		sharpe = append(sharpe, s.Sharpe)
	}

	return BarChart(fn, title, labels, [][]float64{ret, vol, sharpe}, []string{"annual_return", "annual_vol", "sharpe"})
}

// MonthlyChart plots the average return of each calendar month in percent
func MonthlyChart(fn, title string, mt *seasonality.MonthTable) error {
	if mt == nil || len(mt.Rows) == 0 {
		return ErrNothingToPlot
	}

	labels := make([]string, 0, len(mt.Rows))
	avg := make([]float64, 0, len(mt.Rows))
	for _, row := range mt.Rows {
		labels = append(labels, row.Month.String()[:3])
		avg = append(avg, row.Avg*100)
	}

	return BarChart(fn, title, labels, [][]float64{avg}, []string{"avg %"})
}
