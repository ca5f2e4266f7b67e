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


// Package analysis runs the full per-group study: returns, excess returns, summaries,
// drawdowns, seasonality, extreme-day impact and index concentration, writing every
// artifact into the output directory.
package analysis

import (
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/extremes"
)

const readmeText = "No historical price series found. Add CSV files to %s with columns date, close (or adj_close), or run `pvindices fetch prices`.\n"

// Config controls a run
type Config struct {
	OutputDir      string
	RiskFreeRate   float64
	RiskFreeSeries string
	ExtremeNs      []int
	Quantile       float64
	Horizons       []int
	TopDrawdowns   int
	ConcentrationN int
	Winsorize      bool
}

// DefaultConfig mirrors the defaults registered with viper
func DefaultConfig() Config {
	return Config{
		OutputDir:      "outputs",
		ExtremeNs:      []int{5, 10, 20},
		Quantile:       extremes.DefaultQuantile,
		Horizons:       extremes.DefaultHorizons,
		TopDrawdowns:   5,
		ConcentrationN: 10,
		Winsorize:      true,
	}
}

// ConfigFromViper reads the run configuration from the output_dir, risk_free.* and
// analysis.* keys
func ConfigFromViper() Config {
	cfg := DefaultConfig()
	if dir := viper.GetString("output_dir"); dir != "" {
		cfg.OutputDir = dir
	}
	cfg.RiskFreeRate = viper.GetFloat64("risk_free.rate")
	cfg.RiskFreeSeries = viper.GetString("risk_free.series")
	if ns := viper.GetIntSlice("analysis.extreme_ns"); len(ns) > 0 {
		cfg.ExtremeNs = ns
	}
	if q := viper.GetFloat64("analysis.quantile"); q > 0 {
		cfg.Quantile = q
	}
	if h := viper.GetIntSlice("analysis.horizons"); len(h) > 0 {
		cfg.Horizons = h
	}
	if n := viper.GetInt("analysis.top_drawdowns"); n > 0 {
		cfg.TopDrawdowns = n
	}
	if n := viper.GetInt("analysis.concentration_n"); n > 0 {
		cfg.ConcentrationN = n
	}
	if viper.IsSet("analysis.winsorize") {
		cfg.Winsorize = viper.GetBool("analysis.winsorize")
	}
	return cfg
}

func maxInt(vals []int) int {
	res := 0
	for _, v := range vals {
		if v > res {
			res = v
		}
	}
	return res
}
