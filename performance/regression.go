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

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-indices/dataframe"
	"gonum.org/v1/gonum/stat"
)

// Regression holds the ordinary least squares fit y = Alpha + Beta*x
type Regression struct {
	Alpha    float64
	Beta     float64
	RSquared float64
}

func (r Regression) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]*float64{
		"alpha":     NullableFloat(r.Alpha),
		"beta":      NullableFloat(r.Beta),
		"r_squared": NullableFloat(r.RSquared),
	})
}

// RegressionAlphaBeta regresses y on x over the dates both series share (observations where
// either is NaN are dropped). All fields are NaN when fewer than two observations overlap.
func RegressionAlphaBeta(y, x *dataframe.Series) Regression {
	yy, xx := y.InnerJoin(x)
	ys := make([]float64, 0, yy.Len())
	xs := make([]float64, 0, xx.Len())
	for idx := range yy.Vals {
		if math.IsNaN(yy.Vals[idx]) || math.IsNaN(xx.Vals[idx]) {
			continue
		}
		ys = append(ys, yy.Vals[idx])
		xs = append(xs, xx.Vals[idx])
	}

	if len(ys) < 2 {
		return Regression{Alpha: math.NaN(), Beta: math.NaN(), RSquared: math.NaN()}
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Regression{
		Alpha:    alpha,
		Beta:     beta,
		RSquared: stat.RSquared(xs, ys, nil, alpha, beta),
	}
}
