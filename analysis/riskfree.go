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
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/periodicity"
)

// RiskFreeSource provides per-period risk-free returns for a series id
type RiskFreeSource interface {
	RiskFreeReturns(ctx context.Context, id string, begin, end time.Time) (*dataframe.Series, error)
}

// carryForward conforms rf to dates, repeating the last known observation on dates the
// source did not publish. Dates before the first observation get a zero return.
func carryForward(rf *dataframe.Series, dates []time.Time) *dataframe.Series {
	vals := make([]float64, len(dates))
	last := 0.0
	jj := 0
	for ii, dt := range dates {
		for jj < rf.Len() && !rf.Dates[jj].After(dt) {
			if !math.IsNaN(rf.Vals[jj]) {
				last = rf.Vals[jj]
			}
			jj++
		}
		vals[ii] = last
	}

	newDates := make([]time.Time, len(dates))
	copy(newDates, dates)
	return dataframe.NewSeries(rf.Name, newDates, vals)
}

// constantRiskFree spreads an annual rate evenly across the periods of dates
func constantRiskFree(rate float64, dates []time.Time) *dataframe.Series {
	ppy := periodicity.PeriodsPerYear(dates)
	periodic := math.Pow(1+rate, 1/float64(ppy)) - 1

	vals := make([]float64, len(dates))
	for idx := range vals {
		vals[idx] = periodic
	}
	newDates := make([]time.Time, len(dates))
	copy(newDates, dates)
	return dataframe.NewSeries("risk_free", newDates, vals)
}

// riskFree returns the risk-free series aligned to dates, or nil when excess returns are
// measured against zero
func (runner *Runner) riskFree(ctx context.Context, dates []time.Time) *dataframe.Series {
	if len(dates) == 0 {
		return nil
	}

	if runner.cfg.RiskFreeSeries != "" && runner.riskFreeSource != nil {
		rf, err := runner.riskFreeSource.RiskFreeReturns(ctx, runner.cfg.RiskFreeSeries,
			dates[0].AddDate(0, 0, -14), dates[len(dates)-1])
		if err == nil {
			return carryForward(rf, dates)
		}
		log.Warn().Err(err).Str("SeriesID", runner.cfg.RiskFreeSeries).Msg("could not load risk-free series; falling back to the constant rate")
	}

	if runner.cfg.RiskFreeRate != 0 {
		return constantRiskFree(runner.cfg.RiskFreeRate, dates)
	}

	return nil
}
