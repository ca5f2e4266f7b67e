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

package performance

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// OptionalFloat is a value that may be absent. Absent means "not computed" or "not
// computable", which is distinct from any numeric value including NaN.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some wraps a present value
func Some(val float64) OptionalFloat {
	return OptionalFloat{Value: val, Valid: true}
}

// None is the absent value
func None() OptionalFloat {
	return OptionalFloat{}
}

// Get returns the value and whether it is present
func (o OptionalFloat) Get() (float64, bool) {
	return o.Value, o.Valid
}

// Metrics is the risk-return summary of a single return series (and optional benchmark)
type Metrics struct {
	TotalReturn      float64
	CAGR             float64
	AnnualizedVol    float64
	Sharpe           float64
	Sortino          float64
	MaxDrawdown      float64
	Calmar           float64
	InformationRatio OptionalFloat
}

var metricColumns = []string{"total_return", "cagr", "annualized_vol", "sharpe", "sortino", "max_drawdown", "calmar", "information_ratio"}

// Map flattens the metrics into a key-value mapping. information_ratio is only present when
// it was computed.
func (m *Metrics) Map() map[string]float64 {
	res := map[string]float64{
		"total_return":   m.TotalReturn,
		"cagr":           m.CAGR,
		"annualized_vol": m.AnnualizedVol,
		"sharpe":         m.Sharpe,
		"sortino":        m.Sortino,
		"max_drawdown":   m.MaxDrawdown,
		"calmar":         m.Calmar,
	}
	if ir, ok := m.InformationRatio.Get(); ok {
		res["information_ratio"] = ir
	}
	return res
}

// Columns returns the CSV header for Record
func (m *Metrics) Columns() []string {
	return metricColumns
}

// Record formats the metrics as a CSV row in Columns order. NaN and absent values are empty.
func (m *Metrics) Record() []string {
	vals := m.Map()
	row := make([]string, len(metricColumns))
	for idx, col := range metricColumns {
		if val, ok := vals[col]; ok {
			row[idx] = FormatFloat(val)
		}
	}
	return row
}

// FormatFloat formats a metric for tabular output; NaN is an empty string
func FormatFloat(val float64) string {
	if math.IsNaN(val) {
		return ""
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// NullableFloat converts NaN and infinities to nil so they serialize as null
func NullableFloat(val float64) *float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}
	return &val
}

type metricsJSON struct {
	TotalReturn      *float64 `json:"total_return"`
	CAGR             *float64 `json:"cagr"`
	AnnualizedVol    *float64 `json:"annualized_vol"`
	Sharpe           *float64 `json:"sharpe"`
	Sortino          *float64 `json:"sortino"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	Calmar           *float64 `json:"calmar"`
	InformationRatio *float64 `json:"information_ratio,omitempty"`
}

// MarshalJSON serializes metrics with snake_case keys. NaN becomes null and an absent
// information ratio is omitted.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		TotalReturn:   NullableFloat(m.TotalReturn),
		CAGR:          NullableFloat(m.CAGR),
		AnnualizedVol: NullableFloat(m.AnnualizedVol),
		Sharpe:        NullableFloat(m.Sharpe),
		Sortino:       NullableFloat(m.Sortino),
		MaxDrawdown:   NullableFloat(m.MaxDrawdown),
		Calmar:        NullableFloat(m.Calmar),
	}
	if ir, ok := m.InformationRatio.Get(); ok {
		out.InformationRatio = NullableFloat(ir)
	}
	return json.Marshal(out)
}
