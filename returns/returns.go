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

// Package returns converts price series into period returns and expresses returns in excess
// of a reference (typically risk-free) series.
package returns

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pv-indices/dataframe"
)

// Method selects how period returns are derived from consecutive prices
type Method int

const (
	Simple Method = iota
	Log
)

var (
	ErrInsufficientData = errors.New("insufficient data")
)

func (m Method) String() string {
	switch m {
	case Simple:
		return "simple"
	case Log:
		return "log"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod converts "simple" or "log" into a Method
func ParseMethod(name string) (Method, error) {
	switch name {
	case "simple", "":
		return Simple, nil
	case "log":
		return Log, nil
	default:
		return Simple, fmt.Errorf("unknown return method %q", name)
	}
}

func periodReturn(prev, cur float64, method Method) float64 {
	if method == Log {
		return math.Log(cur / prev)
	}
	return cur/prev - 1
}

// ToReturns converts a price series into period returns. The first observation is dropped
// along with any period whose return is NaN (e.g. a missing price). Fewer than two prices is
// an error.
func ToReturns(prices *dataframe.Series, method Method) (*dataframe.Series, error) {
	if prices.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices, have %d", ErrInsufficientData, prices.Len())
	}

	dates := make([]time.Time, 0, prices.Len()-1)
	vals := make([]float64, 0, prices.Len()-1)
	for idx := 1; idx < prices.Len(); idx++ {
		ret := periodReturn(prices.Vals[idx-1], prices.Vals[idx], method)
		if math.IsNaN(ret) {
			continue
		}
		dates = append(dates, prices.Dates[idx])
		vals = append(vals, ret)
	}

	return dataframe.NewSeries(prices.Name, dates, vals), nil
}

// ToReturnsFrame converts every column of a price dataframe into period returns on the shared
// date index. Rows where every column is NaN are dropped.
func ToReturnsFrame(prices *dataframe.DataFrame, method Method) (*dataframe.DataFrame, error) {
	if prices.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, have %d", ErrInsufficientData, prices.Len())
	}

	res := &dataframe.DataFrame{
		Dates:    prices.Dates[1:],
		ColNames: make([]string, 0, prices.ColCount()),
		Vals:     make([][]float64, 0, prices.ColCount()),
	}

	for colIdx, name := range prices.ColNames {
		col := prices.Vals[colIdx]
		rets := make([]float64, len(col)-1)
		for idx := 1; idx < len(col); idx++ {
			rets[idx-1] = periodReturn(col[idx-1], col[idx], method)
		}
		res.Insert(name, rets)
	}

	return res.DropEmptyRows(), nil
}

// ExcessReturns subtracts ref from r after reindexing ref onto r's dates. Dates missing from
// ref are treated as a zero reference return.
func ExcessReturns(r, ref *dataframe.Series) *dataframe.Series {
	if ref == nil {
		return r.Copy()
	}
	aligned := ref.Reindex(r.Dates, 0)
	return r.Sub(aligned)
}

// ExcessReturnsFrame applies ExcessReturns to every column of df
func ExcessReturnsFrame(df *dataframe.DataFrame, ref *dataframe.Series) *dataframe.DataFrame {
	res := df.Copy()
	if ref == nil {
		return res
	}
	aligned := ref.Reindex(df.Dates, 0)
	for colIdx := range res.Vals {
		for rowIdx := range res.Vals[colIdx] {
			res.Vals[colIdx][rowIdx] -= aligned.Vals[rowIdx]
		}
	}
	return res
}
