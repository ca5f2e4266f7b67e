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

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sub subtracts other from s element-wise and returns a new series. Both series must share
// the same date index. Panics if lengths are not equal.
func (s *Series) Sub(other *Series) *Series {
	if s.Len() != other.Len() {
		log.Panic().Int("Len", s.Len()).Int("OtherLen", other.Len()).Msg("cannot subtract series with different lengths")
	}
	res := s.Copy()
	floats.Sub(res.Vals, other.Vals)
	return res
}

// AddScalar adds the scalar value to every observation and returns a new series
func (s *Series) AddScalar(scalar float64) *Series {
	res := s.Copy()
	floats.AddConst(scalar, res.Vals)
	return res
}

// Apply calls fn on every observation and returns a new series with the results
func (s *Series) Apply(fn func(float64) float64) *Series {
	res := s.Copy()
	for idx, val := range res.Vals {
		res.Vals[idx] = fn(val)
	}
	return res
}

// CumProd computes the running product of the series
func (s *Series) CumProd() *Series {
	res := s.Copy()
	floats.CumProd(res.Vals, s.Vals)
	return res
}

// WealthIndex compounds a return series into a growth-of-one curve: cumprod(1 + r)
func (s *Series) WealthIndex() *Series {
	return s.AddScalar(1).CumProd()
}

// CumMax computes the running maximum of the series
func (s *Series) CumMax() *Series {
	res := s.Copy()
	peak := math.Inf(-1)
	for idx, val := range res.Vals {
		if val > peak {
			peak = val
		}
		res.Vals[idx] = peak
	}
	return res
}

// Mean of the series ignoring NaN values
func (s *Series) Mean() float64 {
	vals := s.DropNaN().Vals
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// Quantile computes the q-th quantile of the non-NaN values using linear interpolation
// between order statistics: position q*(n-1) in the sorted values.
func (s *Series) Quantile(q float64) float64 {
	return Quantile(s.Vals, q)
}

// Quantile computes the q-th quantile of vals (NaN ignored) using linear interpolation
// at position q*(n-1) of the sorted values. Returns NaN when vals is empty or q is outside [0, 1].
func Quantile(vals []float64, q float64) float64 {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return math.NaN()
	}

	sorted := make([]float64, 0, len(vals))
	for _, val := range vals {
		if !math.IsNaN(val) {
			sorted = append(sorted, val)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
