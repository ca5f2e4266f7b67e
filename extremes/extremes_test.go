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

package extremes_test

import (
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/extremes"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/returns"
)

func dailySeries(vals ...float64) *dataframe.Series {
	dates := make([]time.Time, len(vals))
	dt := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	for idx := range dates {
		dates[idx] = dt
		dt = dt.AddDate(0, 0, 1)
	}
	return dataframe.NewSeries("IBOV", dates, vals)
}

var _ = Describe("Extremes", func() {
	var (
		r *dataframe.Series
	)

	BeforeEach(func() {
		r = dailySeries(0.01, -0.02, 0.03, -0.01, 0.02)
	})

	Context("removing days", func() {
		It("is the identity for n = 0", func() {
			res := extremes.RemoveTopNDays(r, 0, true)
			Expect(res.Vals).To(Equal(r.Vals))
			Expect(res.Dates).To(Equal(r.Dates))
		})

		It("drops the best days and keeps the time order", func() {
			res := extremes.RemoveTopNDays(r, 2, true)
			Expect(res.Vals).To(Equal([]float64{0.01, -0.02, -0.01}))
			Expect(res.Dates).To(Equal([]time.Time{r.Dates[0], r.Dates[1], r.Dates[3]}))
		})

		It("drops the worst days", func() {
			res := extremes.RemoveTopNDays(r, 1, false)
			Expect(res.Vals).To(Equal([]float64{0.01, 0.03, -0.01, 0.02}))
		})

		It("removes everything when n exceeds the length", func() {
			Expect(extremes.RemoveTopNDays(r, 10, true).Len()).To(Equal(0))
		})

		It("is a no-op on an empty series", func() {
			Expect(extremes.RemoveTopNDays(&dataframe.Series{}, 3, true).Len()).To(Equal(0))
		})

		It("removes both tails at once", func() {
			res := extremes.RemoveExtremeDays(r, 1, 1)
			Expect(res.Vals).To(Equal([]float64{0.01, -0.01, 0.02}))
		})

		It("drops missing values before removing both tails", func() {
			res := extremes.RemoveExtremeDays(dailySeries(0.01, math.NaN(), 0.05), 1, 0)
			Expect(res.Vals).To(Equal([]float64{0.01}))
		})
	})

	Context("impact of extremes", func() {
		It("has a row per n and scenario", func() {
			table, err := extremes.ImpactOfExtremes(r, []int{1, 2})
			Expect(err).To(BeNil())
			Expect(table.Rows).To(HaveLen(4))
			Expect(table.Rows[0].Scenario).To(Equal(extremes.RemoveBest))
			Expect(table.Rows[1].Scenario).To(Equal(extremes.RemoveWorst))
			Expect(table.Rows[2].N).To(Equal(2))

			for _, row := range table.Rows {
				Expect(row.BaseCAGR).To(Equal(performance.AnnualizeReturn(r, 0)))
				Expect(row.BaseSharpe).To(Equal(performance.SharpeRatio(r)))
			}

			reduced := extremes.RemoveTopNDays(r, 1, true)
			Expect(table.Rows[0].CAGR).To(Equal(performance.AnnualizeReturn(reduced, 0)))
			Expect(table.Rows[0].CAGR).To(BeNumerically("<", table.Rows[0].BaseCAGR))
			Expect(table.Rows[1].CAGR).To(BeNumerically(">", table.Rows[1].BaseCAGR))
		})

		It("formats CSV records", func() {
			table, err := extremes.ImpactOfExtremes(r, []int{5})
			Expect(err).To(BeNil())
			records := table.Records()
			Expect(records).To(HaveLen(2))
			Expect(records[0][0]).To(Equal("5"))
			Expect(records[0][2]).To(Equal(""))
			Expect(table.Columns()).To(HaveLen(len(records[0])))
		})

		It("fails on an empty series", func() {
			_, err := extremes.ImpactOfExtremes(&dataframe.Series{}, []int{1})
			Expect(errors.Is(err, returns.ErrInsufficientData)).To(BeTrue())
		})
	})

	Context("wealth curves", func() {
		It("is flat when every day is zeroed", func() {
			wc := extremes.WealthCurvesWithExtremes(r, r.Len())
			for idx := range wc.Dates {
				Expect(wc.ZeroBest[idx]).To(Equal(1.0))
				Expect(wc.ZeroWorst[idx]).To(Equal(1.0))
			}
			Expect(wc.Base[len(wc.Base)-1]).Should(BeNumerically("~", 1.01*0.98*1.03*0.99*1.02, 1e-12))
		})

		It("clamps n", func() {
			wc := extremes.WealthCurvesWithExtremes(r, -3)
			Expect(wc.N).To(Equal(0))
			Expect(wc.ZeroBest).To(Equal(wc.Base))

			wc = extremes.WealthCurvesWithExtremes(r, 99)
			Expect(wc.N).To(Equal(r.Len()))
		})

		It("zeroes only the selected days", func() {
			wc := extremes.WealthCurvesWithExtremes(r, 1)
			Expect(wc.ZeroBest[2]).Should(BeNumerically("~", 1.01*0.98, 1e-12))
			Expect(wc.ZeroWorst[1]).Should(BeNumerically("~", 1.01, 1e-12))
			Expect(wc.Dates).To(Equal(r.Dates))
			Expect(wc.Records()).To(HaveLen(r.Len()))
			Expect(wc.Frame().ColNames).To(Equal([]string{"base", "zero_best", "zero_worst"}))
		})
	})

	Context("event study", func() {
		var (
			events *dataframe.Series
		)

		BeforeEach(func() {
			events = dailySeries(0.01, 0.05, -0.01, 0.0, -0.06, 0.02, 0.01, 0.0, 0.01, 0.02)
		})

		It("averages forward returns after extreme days", func() {
			table := extremes.EventStudyAfterExtreme(events, 0.9, []int{1, 2})
			Expect(table.UpperThreshold).Should(BeNumerically("~", 0.023, 1e-12))
			Expect(table.LowerThreshold).Should(BeNumerically("~", -0.015, 1e-12))
			Expect(table.Rows).To(HaveLen(4))

			Expect(table.Rows[0].Side).To(Equal(extremes.SideTop))
			Expect(table.Rows[0].H).To(Equal(1))
			Expect(table.Rows[0].N).To(Equal(1))
			Expect(table.Rows[0].Avg).Should(BeNumerically("~", -0.01, 1e-12))

			Expect(table.Rows[1].Avg).Should(BeNumerically("~", 0.99*1.0-1, 1e-12))

			Expect(table.Rows[2].Side).To(Equal(extremes.SideBottom))
			Expect(table.Rows[2].Avg).Should(BeNumerically("~", 0.02, 1e-12))
			Expect(table.Rows[3].Avg).Should(BeNumerically("~", 1.02*1.01-1, 1e-12))
		})

		It("discards events without a full forward window", func() {
			table := extremes.EventStudyAfterExtreme(events, 0.9, []int{20})
			for _, row := range table.Rows {
				Expect(row.N).To(Equal(0))
				Expect(math.IsNaN(row.Avg)).To(BeTrue())
			}
		})

		It("counts no events for a negative horizon", func() {
			table := extremes.EventStudyAfterExtreme(events, 0.9, []int{-1})
			Expect(table.Rows).To(HaveLen(2))
			for _, row := range table.Rows {
				Expect(row.H).To(Equal(-1))
				Expect(row.N).To(Equal(0))
				Expect(math.IsNaN(row.Avg)).To(BeTrue())
			}
		})

		It("excludes an event on the last day", func() {
			tail := dailySeries(0.0, 0.01, 0.0, 0.09)
			table := extremes.EventStudyAfterExtreme(tail, 0.99, []int{1})
			Expect(table.Rows[0].N).To(Equal(0))
		})

		It("formats CSV records", func() {
			table := extremes.EventStudyAfterExtreme(events, extremes.DefaultQuantile, extremes.DefaultHorizons)
			Expect(table.Records()).To(HaveLen(6))
			Expect(table.Columns()).To(Equal([]string{"side", "h", "avg", "n"}))
		})
	})

	Context("contribution", func() {
		It("compares base and adjusted metrics", func() {
			analyzer := performance.NewAnalyzer(0, 252)
			c, err := extremes.ComputeContribution(r, analyzer, 1, 1)
			Expect(err).To(BeNil())

			base, err := analyzer.Compute(r, nil)
			Expect(err).To(BeNil())
			Expect(c.BaseCAGR).To(Equal(base.CAGR))
			Expect(c.BaseVolatility).To(Equal(base.AnnualizedVol))

			adjusted, err := analyzer.Compute(dailySeries(0.01, -0.01, 0.02), nil)
			Expect(err).To(BeNil())
			Expect(c.AdjustedCAGR).Should(BeNumerically("~", adjusted.CAGR, 1e-12))
			Expect(c.AdjustedVolatility).To(BeNumerically("<", c.BaseVolatility))

			data, err := json.Marshal(c)
			Expect(err).To(BeNil())
			Expect(string(data)).To(ContainSubstring("adjusted_sharpe"))
		})

		It("fails on an empty series", func() {
			_, err := extremes.ComputeContribution(&dataframe.Series{}, performance.NewAnalyzer(0, 252), 1, 1)
			Expect(errors.Is(err, returns.ErrInsufficientData)).To(BeTrue())
		})

		It("fails when every day is removed", func() {
			_, err := extremes.ComputeContribution(dailySeries(0.01, -0.01), performance.NewAnalyzer(0, 252), 1, 1)
			Expect(errors.Is(err, performance.ErrEmptySeries)).To(BeTrue())
		})
	})
})
