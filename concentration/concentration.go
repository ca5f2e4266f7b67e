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

// Package concentration measures how concentrated a portfolio or index is from its
// constituent weights.
package concentration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidWeights   = errors.New("invalid weights")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Weights maps an asset identifier to its weight (fraction or percent; only proportions
// matter)
type Weights map[string]float64

// Assets returns the asset identifiers in ascending order
func (w Weights) Assets() []string {
	assets := make([]string, 0, len(w))
	for k := range w {
		assets = append(assets, k)
	}
	sort.Strings(assets)
	return assets
}

// Values returns the weights in Assets order
func (w Weights) Values() []float64 {
	assets := w.Assets()
	vals := make([]float64, len(assets))
	for idx, asset := range assets {
		vals[idx] = w[asset]
	}
	return vals
}

// Normalize scales the weights so they sum to one
func Normalize(w Weights) (Weights, error) {
	vals, err := normalize(w.Values())
	if err != nil {
		return nil, err
	}
	res := make(Weights, len(w))
	for idx, asset := range w.Assets() {
		res[asset] = vals[idx]
	}
	return res, nil
}

func normalize(vals []float64) ([]float64, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: no weights", ErrInvalidWeights)
	}
	total := floats.Sum(vals)
	if !(total > 0) {
		return nil, fmt.Errorf("%w: weights sum to %g", ErrInvalidWeights, total)
	}
	res := make([]float64, len(vals))
	floats.ScaleTo(res, 1/total, vals)
	return res, nil
}

// HHI is the Herfindahl-Hirschman index: the sum of squared normalized weights, in (0, 1]
func HHI(w Weights) (float64, error) {
	vals, err := normalize(w.Values())
	if err != nil {
		return math.NaN(), err
	}
	return floats.Dot(vals, vals), nil
}

// EffectiveN is the effective number of assets, 1/HHI. +Inf when HHI is exactly zero.
func EffectiveN(w Weights) (float64, error) {
	hhi, err := HHI(w)
	if err != nil {
		return math.NaN(), err
	}
	if hhi == 0 {
		return math.Inf(1), nil
	}
	return 1 / hhi, nil
}

// TopN is the combined normalized weight of the n largest positions
func TopN(w Weights, n int) (float64, error) {
	if n <= 0 {
		return math.NaN(), fmt.Errorf("%w: n must be positive, got %d", ErrInvalidParameter, n)
	}
	vals, err := normalize(w.Values())
	if err != nil {
		return math.NaN(), err
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	if n > len(vals) {
		n = len(vals)
	}
	return floats.Sum(vals[:n]), nil
}

// Largest returns the n heaviest normalized positions ordered by weight
func Largest(w Weights, n int) ([]Position, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidParameter, n)
	}
	normalized, err := Normalize(w)
	if err != nil {
		return nil, err
	}
	positions := make([]Position, 0, len(normalized))
	for _, asset := range normalized.Assets() {
		positions = append(positions, Position{Asset: asset, Weight: normalized[asset]})
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Weight > positions[j].Weight
	})
	if n < len(positions) {
		positions = positions[:n]
	}
	return positions, nil
}

// Position is a single asset and its normalized weight
type Position struct {
	Asset  string  `json:"asset"`
	Weight float64 `json:"weight"`
}

// DiversificationRatio is sum(w_i*vol_i) / sqrt(sum(w_i^2*vol_i^2)): the weighted average
// volatility over the portfolio volatility with correlations ignored (diagonal covariance).
// Returns NaN when portfolio volatility is zero.
func DiversificationRatio(weights, vols []float64) (float64, error) {
	w, err := normalize(weights)
	if err != nil {
		return math.NaN(), err
	}
	if len(vols) != len(w) {
		return math.NaN(), fmt.Errorf("%w: %d weights but %d volatilities", ErrInvalidWeights, len(w), len(vols))
	}
	for _, vol := range vols {
		if vol < 0 {
			return math.NaN(), fmt.Errorf("%w: negative volatility %g", ErrInvalidParameter, vol)
		}
	}

	numerator := floats.Dot(w, vols)
	variance := 0.0
	for idx := range w {
		variance += w[idx] * w[idx] * vols[idx] * vols[idx]
	}
	portfolioVol := math.Sqrt(variance)
	if portfolioVol == 0 {
		return math.NaN(), nil
	}
	return numerator / portfolioVol, nil
}

// DiversificationRatioCov generalizes DiversificationRatio to a full covariance matrix:
// sum(w_i*sqrt(cov_ii)) / sqrt(w' cov w)
func DiversificationRatioCov(weights []float64, cov mat.Symmetric) (float64, error) {
	w, err := normalize(weights)
	if err != nil {
		return math.NaN(), err
	}
	if cov.SymmetricDim() != len(w) {
		return math.NaN(), fmt.Errorf("%w: %d weights but %dx%d covariance", ErrInvalidWeights, len(w), cov.SymmetricDim(), cov.SymmetricDim())
	}

	vols := make([]float64, len(w))
	for idx := range vols {
		vols[idx] = math.Sqrt(cov.At(idx, idx))
	}

	wv := mat.NewVecDense(len(w), w)
	portfolioVol := math.Sqrt(mat.Inner(wv, cov, wv))
	if portfolioVol == 0 || math.IsNaN(portfolioVol) {
		return math.NaN(), nil
	}
	return floats.Dot(w, vols) / portfolioVol, nil
}

// Summary collects every concentration measure for one weight vector
type Summary struct {
	Assets            int        `json:"assets"`
	HHI               float64    `json:"hhi"`
	EffectiveN        float64    `json:"effective_n"`
	TopN              int        `json:"top_n"`
	TopNConcentration float64    `json:"top_n_concentration"`
	Largest           []Position `json:"largest"`
}

// Summarize computes HHI, effective N and the top-n concentration of w
func Summarize(w Weights, n int) (*Summary, error) {
	hhi, err := HHI(w)
	if err != nil {
		return nil, err
	}
	effN, err := EffectiveN(w)
	if err != nil {
		return nil, err
	}
	top, err := TopN(w, n)
	if err != nil {
		return nil, err
	}
	largest, err := Largest(w, n)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Assets:            len(w),
		HHI:               hhi,
		EffectiveN:        effN,
		TopN:              n,
		TopNConcentration: top,
		Largest:           largest,
	}, nil
}
