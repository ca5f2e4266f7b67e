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

package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/penny-vault/pv-indices/concentration"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
)

var ErrTooFewObservations = errors.New("too few observations")

// Diversification is the diversification ratio of an equal-weight portfolio of the group's
// excess returns, measured on the dates every symbol shares
type Diversification struct {
	Symbols      []string
	Observations int
	Ratio        float64
}

func (d Diversification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbols      []string `json:"symbols"`
		Observations int      `json:"observations"`
		Ratio        *float64 `json:"ratio"`
	}{
		Symbols:      d.Symbols,
		Observations: d.Observations,
		Ratio:        performance.NullableFloat(d.Ratio),
	})
}

func (d *Diversification) Columns() []string {
	return []string{"symbols", "observations", "diversification_ratio"}
}

func (d *Diversification) Records() [][]string {
	return [][]string{{
		fmt.Sprintf("%d", len(d.Symbols)),
		fmt.Sprintf("%d", d.Observations),
		performance.FormatFloat(d.Ratio),
	}}
}

// groupDiversification estimates the covariance of the excess returns with gonum and feeds
// it to concentration.DiversificationRatioCov
func groupDiversification(excess dataframe.SeriesMap) (*Diversification, error) {
	if len(excess) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, have %d", ErrTooFewObservations, len(excess))
	}

	frame := excess.DataFrame()
	rows := make([]float64, 0, frame.Len()*frame.ColCount())
	numRows := 0
	for rowIdx := range frame.Dates {
		complete := true
		for _, col := range frame.Vals {
			if math.IsNaN(col[rowIdx]) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for _, col := range frame.Vals {
			rows = append(rows, col[rowIdx])
		}
		numRows++
	}
	if numRows < 2 {
		return nil, fmt.Errorf("%w: %d shared dates", ErrTooFewObservations, numRows)
	}

	cov := mat.NewSymDense(frame.ColCount(), nil)
	stat.CovarianceMatrix(cov, mat.NewDense(numRows, frame.ColCount(), rows), nil)

	weights := make([]float64, frame.ColCount())
	for idx := range weights {
		weights[idx] = 1
	}
	ratio, err := concentration.DiversificationRatioCov(weights, cov)
	if err != nil {
		return nil, err
	}

	return &Diversification{
		Symbols:      frame.ColNames,
		Observations: numRows,
		Ratio:        ratio,
	}, nil
}
