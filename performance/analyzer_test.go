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

package performance_test

import (
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/returns"
)

func dailySeries(name string, vals ...float64) *dataframe.Series {
	dates := make([]time.Time, len(vals))
	dt := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	for idx := range dates {
		dates[idx] = dt
		dt = dt.AddDate(0, 0, 1)
	}
	return dataframe.NewSeries(name, dates, vals)
}

var _ = Describe("Analyzer", func() {
	var (
		analyzer *performance.Analyzer
		r        *dataframe.Series
	)

	BeforeEach(func() {
		analyzer = performance.NewAnalyzer(0, 252)
		r = dailySeries("IBOV", 0.01, -0.02, 0.03, -0.01, 0.02)
	})

	Context("with five daily returns", func() {
		It("computes the headline metrics", func() {
			m, err := analyzer.Compute(r, nil)
			Expect(err).To(BeNil())
			Expect(m.TotalReturn).Should(BeNumerically("~", 1.01*0.98*1.03*0.99*1.02-1, 1e-12))
			Expect(m.TotalReturn).Should(BeNumerically("~", 0.0294850412, 1e-9))
			Expect(m.CAGR).Should(BeNumerically("~", 3.325636719291, 1e-9))
			Expect(m.AnnualizedVol).Should(BeNumerically("~", 0.329180801384, 1e-9))
			Expect(m.Sharpe).Should(BeNumerically("~", 4.593220484432, 1e-9))
			Expect(m.Sortino).Should(BeNumerically("~", 10.648943609579, 1e-9))
			Expect(m.MaxDrawdown).Should(BeNumerically("~", -0.02, 1e-12))
			Expect(m.Calmar).Should(BeNumerically("~", 166.281835964561, 1e-6))
			Expect(m.InformationRatio.Valid).To(BeFalse())
		})

		It("subtracts the periodic risk-free rate", func() {
			analyzer = performance.NewAnalyzer(0.05, 252)
			Expect(analyzer.RiskFreePeriodic()).Should(BeNumerically("~", math.Pow(1.05, 1.0/252)-1, 1e-15))
			m, err := analyzer.Compute(r, nil)
			Expect(err).To(BeNil())
			Expect(m.Sharpe).Should(BeNumerically("~", 4.444989216254, 1e-9))
		})

		It("computes the information ratio against a benchmark", func() {
			bench := dailySeries("BOVA11", 0.005, -0.01, 0.02, 0.0, 0.01)
			m, err := analyzer.Compute(r, bench)
			Expect(err).To(BeNil())
			ir, ok := m.InformationRatio.Get()
			Expect(ok).To(BeTrue())
			Expect(ir).Should(BeNumerically("~", 1.549193338483, 1e-9))
		})

		It("uses only overlapping dates for the information ratio", func() {
			bench := dailySeries("BOVA11", 0.005, -0.01, 0.02, 0.0, 0.01, 0.5, 0.7)
			shifted := dataframe.NewSeries("X", append([]time.Time{time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)}, bench.Dates...), append([]float64{9}, bench.Vals...))
			m, err := analyzer.Compute(r, shifted)
			Expect(err).To(BeNil())
			Expect(m.InformationRatio.Value).Should(BeNumerically("~", 1.549193338483, 1e-9))
		})

		It("reports the information ratio as absent when it is not finite", func() {
			m, err := analyzer.Compute(r, r.Copy())
			Expect(err).To(BeNil())
			Expect(m.InformationRatio.Valid).To(BeFalse())
			Expect(m.Map()).NotTo(HaveKey("information_ratio"))
		})

		It("reports the information ratio as absent without overlap", func() {
			bench := dataframe.NewSeries("B", []time.Time{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}, []float64{.01})
			m, err := analyzer.Compute(r, bench)
			Expect(err).To(BeNil())
			Expect(m.InformationRatio.Valid).To(BeFalse())
		})
	})

	Context("with a constant return series", func() {
		It("has zero volatility and undefined ratios", func() {
			const c = 0.001
			vals := make([]float64, 252)
			for idx := range vals {
				vals[idx] = c
			}
			m, err := analyzer.Compute(dailySeries("C", vals...), nil)
			Expect(err).To(BeNil())
			Expect(m.CAGR).Should(BeNumerically("~", math.Pow(1+c, 252)-1, 1e-9))
			Expect(m.AnnualizedVol).To(Equal(0.0))
			Expect(m.MaxDrawdown).To(Equal(0.0))
			Expect(math.IsNaN(m.Sharpe)).To(BeTrue())
			Expect(math.IsNaN(m.Calmar)).To(BeTrue())
		})
	})

	Context("with missing data", func() {
		It("fails on an empty series", func() {
			_, err := analyzer.Compute(&dataframe.Series{}, nil)
			Expect(errors.Is(err, performance.ErrEmptySeries)).To(BeTrue())
			Expect(errors.Is(err, returns.ErrInsufficientData)).To(BeTrue())
		})

		It("fails when every value is NaN", func() {
			_, err := analyzer.Compute(dailySeries("N", math.NaN(), math.NaN()), nil)
			Expect(errors.Is(err, performance.ErrEmptySeries)).To(BeTrue())
		})

		It("ignores NaN returns", func() {
			m, err := analyzer.Compute(dailySeries("N", 0.01, math.NaN(), 0.01), nil)
			Expect(err).To(BeNil())
			Expect(m.TotalReturn).Should(BeNumerically("~", 1.01*1.01-1, 1e-12))
		})
	})

	Context("from prices", func() {
		It("matches the return based computation", func() {
			prices := dailySeries("P", 100, 101, 98.98, 101.9494, 100.929906, 102.94850412)
			m, err := analyzer.ComputeFromPrices(prices, nil)
			Expect(err).To(BeNil())
			Expect(m.TotalReturn).Should(BeNumerically("~", 0.0294850412, 1e-9))
		})

		It("aligns benchmark prices to the price dates", func() {
			prices := dailySeries("P", 100, 101, 98.98, 101.9494, 100.929906, 102.94850412)
			bench := dailySeries("B", 100, 100.5, 99.495, 101.4849, 101.4849, 102.499749)
			m, err := analyzer.ComputeFromPrices(prices, bench)
			Expect(err).To(BeNil())
			Expect(m.InformationRatio.Valid).To(BeTrue())
			Expect(m.InformationRatio.Value).Should(BeNumerically("~", 1.549193338483, 1e-6))
		})

		DescribeTable("fails on short price series", func(prices *dataframe.Series) {
			_, err := analyzer.ComputeFromPrices(prices, nil)
			Expect(errors.Is(err, performance.ErrEmptySeries)).To(BeTrue())
		},
			Entry("empty", &dataframe.Series{}),
			Entry("all NaN", dailySeries("P", math.NaN(), math.NaN())),
			Entry("single valid price", dailySeries("P", 100, math.NaN())),
		)
	})

	It("serializes NaN as null and omits an absent information ratio", func() {
		m := performance.Metrics{Sharpe: math.NaN(), CAGR: 0.1}
		data, err := json.Marshal(m)
		Expect(err).To(BeNil())
		Expect(string(data)).To(ContainSubstring(`"sharpe":null`))
		Expect(string(data)).To(ContainSubstring(`"cagr":0.1`))
		Expect(string(data)).NotTo(ContainSubstring("information_ratio"))
	})

	It("formats a CSV record", func() {
		m := &performance.Metrics{TotalReturn: 0.5, Sharpe: math.NaN(), InformationRatio: performance.Some(1.5)}
		Expect(m.Columns()).To(HaveLen(8))
		rec := m.Record()
		Expect(rec[0]).To(Equal("0.5"))
		Expect(rec[3]).To(Equal(""))
		Expect(rec[7]).To(Equal("1.5"))
	})
})

var _ = Describe("SafeDiv", func() {
	DescribeTable("never returns an infinity", func(num, den float64, expectNaN bool, expected float64) {
		res := performance.SafeDiv(num, den)
		if expectNaN {
			Expect(math.IsNaN(res)).To(BeTrue())
		} else {
			Expect(res).To(Equal(expected))
		}
	},
		Entry("regular division", 1.0, 2.0, false, 0.5),
		Entry("zero denominator", 1.0, 0.0, true, 0.0),
		Entry("zero over zero", 0.0, 0.0, true, 0.0),
		Entry("overflow", math.MaxFloat64, 1e-300, true, 0.0),
	)
})

var _ = Describe("DownsideDeviation", func() {
	excess := []float64{0.01, -0.02, 0.03, -0.01, 0.02}

	It("includes clamped zeros in the inclusive definition", func() {
		Expect(performance.DownsideDeviation(excess, performance.DownsideInclusive, 252)).Should(BeNumerically("~", 0.141985914794, 1e-9))
	})

	It("uses only negative observations in the strict definition", func() {
		Expect(performance.DownsideDeviation(excess, performance.DownsideStrict, 252)).Should(BeNumerically("~", 0.112249721603, 1e-9))
	})

	It("differs from the strict definition", func() {
		inclusive := performance.DownsideDeviation(excess, performance.DownsideInclusive, 252)
		strict := performance.DownsideDeviation(excess, performance.DownsideStrict, 252)
		Expect(inclusive).NotTo(BeNumerically("~", strict, 1e-6))
	})
})
