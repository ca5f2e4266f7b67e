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
	"sort"
	"time"

	"github.com/penny-vault/pv-indices/dataframe"
)

// Drawdown is the trajectory of a growth-of-one wealth curve relative to its running peak.
// Drawdown[t] = Wealth[t]/Peak[t] - 1 and is never positive.
type Drawdown struct {
	Dates    []time.Time
	Wealth   []float64
	Peak     []float64
	Drawdown []float64
}

// DrawdownEpisode is a period in which wealth fell below its previous peak. Recovery is the
// zero time when the series ended before wealth regained the peak.
type DrawdownEpisode struct {
	Begin       time.Time `json:"begin"`
	End         time.Time `json:"end"`
	Recovery    time.Time `json:"recovery"`
	LossPercent float64   `json:"loss_percent"`
}

// DrawdownSeries compounds returns into wealth and computes the drawdown at each date
func DrawdownSeries(r *dataframe.Series) *Drawdown {
	wealth := r.WealthIndex()
	peak := wealth.CumMax()

	dd := make([]float64, wealth.Len())
	for idx := range dd {
		dd[idx] = wealth.Vals[idx]/peak.Vals[idx] - 1
	}

	return &Drawdown{
		Dates:    wealth.Dates,
		Wealth:   wealth.Vals,
		Peak:     peak.Vals,
		Drawdown: dd,
	}
}

// Max returns the deepest drawdown (the minimum, <= 0). Returns 0 for an empty trajectory.
func (dd *Drawdown) Max() float64 {
	maxDrawdown := 0.0
	for _, val := range dd.Drawdown {
		if val < maxDrawdown {
			maxDrawdown = val
		}
	}
	return maxDrawdown
}

// Frame returns the trajectory as a dataframe with wealth, peak and drawdown columns
func (dd *Drawdown) Frame() *dataframe.DataFrame {
	return &dataframe.DataFrame{
		Dates:    dd.Dates,
		ColNames: []string{"wealth", "peak", "drawdown"},
		Vals:     [][]float64{dd.Wealth, dd.Peak, dd.Drawdown},
	}
}

// Episodes splits the trajectory into distinct drawdowns. An episode begins at the last
// peak before wealth declines, ends at the trough, and recovers on the first date wealth
// returns to the peak.
func (dd *Drawdown) Episodes() []*DrawdownEpisode {
	episodes := []*DrawdownEpisode{}

	var episode *DrawdownEpisode
	var prev time.Time
	for idx, dt := range dd.Dates {
		loss := dd.Drawdown[idx]
		if loss < 0 {
			if episode == nil {
				episode = &DrawdownEpisode{
					Begin:       prev,
					End:         dt,
					LossPercent: loss,
				}
			}
			if loss < episode.LossPercent {
				episode.End = dt
				episode.LossPercent = loss
			}
		} else if episode != nil {
			episode.Recovery = dt
			episodes = append(episodes, episode)
			episode = nil
		}
		prev = dt
	}

	if episode != nil {
		episodes = append(episodes, episode)
	}

	return episodes
}

// TopDrawdowns returns the n deepest drawdown episodes of a return series ordered from the
// largest loss
func TopDrawdowns(r *dataframe.Series, n int) []*DrawdownEpisode {
	episodes := DrawdownSeries(r).Episodes()
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].LossPercent < episodes[j].LossPercent
	})
	if n >= 0 && n < len(episodes) {
		episodes = episodes[:n]
	}
	return episodes
}

// UlcerIndex is the root mean square of percentage drawdowns
func (dd *Drawdown) UlcerIndex() float64 {
	if len(dd.Drawdown) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, val := range dd.Drawdown {
		sum += (val * 100) * (val * 100)
	}
	return math.Sqrt(sum / float64(len(dd.Drawdown)))
}
