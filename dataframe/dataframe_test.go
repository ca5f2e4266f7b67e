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

package dataframe_test

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/dataframe"
)

func day(d int) time.Time {
	return time.Date(2022, 1, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("Series", func() {
	var (
		s *dataframe.Series
	)

	BeforeEach(func() {
		s = dataframe.NewSeries("IBOV", []time.Time{day(3), day(4), day(5), day(6), day(7)}, []float64{1, 2, math.NaN(), 4, 5})
	})

	Context("with no values", func() {
		It("has zero length", func() {
			empty := &dataframe.Series{}
			Expect(empty.Len()).To(Equal(0))
			Expect(empty.Start().IsZero()).To(BeTrue())
			Expect(math.IsNaN(empty.Last())).To(BeTrue())
		})

		It("has a NaN quantile", func() {
			empty := &dataframe.Series{}
			Expect(math.IsNaN(empty.Quantile(.5))).To(BeTrue())
		})
	})

	It("does not modify the receiver on copy", func() {
		c := s.Copy()
		c.Vals[0] = 100
		Expect(s.Vals[0]).To(Equal(1.0))
	})

	It("drops NaN values", func() {
		res := s.DropNaN()
		Expect(res.Len()).To(Equal(4))
		Expect(res.Dates).To(Equal([]time.Time{day(3), day(4), day(6), day(7)}))
		Expect(s.Len()).To(Equal(5))
	})

	It("drops positions", func() {
		res := s.DropPositions([]int{0, 4, 9})
		Expect(res.Vals).To(HaveLen(3))
		Expect(res.Dates[0]).To(Equal(day(4)))
		Expect(res.End()).To(Equal(day(6)))
	})

	It("reindexes with a fill value", func() {
		res := s.Reindex([]time.Time{day(1), day(3), day(6), day(10)}, 0)
		Expect(res.Vals).To(Equal([]float64{0, 1, 4, 0}))
		Expect(res.Dates).To(Equal([]time.Time{day(1), day(3), day(6), day(10)}))
	})

	It("inner joins on common dates", func() {
		other := dataframe.NewSeries("BOVA11", []time.Time{day(1), day(4), day(6), day(9)}, []float64{10, 20, 30, 40})
		left, right := s.InnerJoin(other)
		Expect(left.Dates).To(Equal([]time.Time{day(4), day(6)}))
		Expect(left.Vals).To(Equal([]float64{2, 4}))
		Expect(right.Vals).To(Equal([]float64{20, 30}))
		Expect(right.Name).To(Equal("BOVA11"))
	})

	DescribeTable("trims values by date range", func(a, b time.Time, expectedLen int) {
		res := s.Trim(a, b)
		Expect(res.Len()).To(Equal(expectedLen))
	},
		Entry("whole range", day(1), day(20), 5),
		Entry("range left of series", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), 0),
		Entry("range in the middle", day(4), day(6), 3),
		Entry("single date", day(5), day(5), 1),
		Entry("end before begin", day(6), day(4), 0),
	)

	It("compounds returns into a wealth index", func() {
		r := dataframe.NewSeries("r", []time.Time{day(3), day(4), day(5)}, []float64{.1, -.1, .2})
		w := r.WealthIndex()
		Expect(w.Vals[0]).To(BeNumerically("~", 1.1, 1e-12))
		Expect(w.Vals[1]).To(BeNumerically("~", 0.99, 1e-12))
		Expect(w.Vals[2]).To(BeNumerically("~", 1.188, 1e-12))
	})

	It("computes the running maximum", func() {
		r := dataframe.NewSeries("r", []time.Time{day(3), day(4), day(5), day(6)}, []float64{1, 3, 2, 4})
		Expect(r.CumMax().Vals).To(Equal([]float64{1, 3, 3, 4}))
	})

	It("subtracts aligned series", func() {
		a := dataframe.NewSeries("a", []time.Time{day(3), day(4)}, []float64{3, 5})
		b := dataframe.NewSeries("b", []time.Time{day(3), day(4)}, []float64{1, 1})
		Expect(a.Sub(b).Vals).To(Equal([]float64{2, 4}))
		Expect(a.Vals).To(Equal([]float64{3, 5}))
	})

	It("renders a table", func() {
		Expect(s.Table()).To(ContainSubstring("2022-01-03"))
	})
})

var _ = Describe("Quantile", func() {
	DescribeTable("interpolates linearly between order statistics", func(vals []float64, q, expected float64) {
		Expect(dataframe.Quantile(vals, q)).To(BeNumerically("~", expected, 1e-12))
	},
		Entry("median of odd count", []float64{3, 1, 2}, .5, 2.0),
		Entry("median of even count", []float64{1, 2, 3, 4}, .5, 2.5),
		Entry("minimum", []float64{5, 1, 9}, 0.0, 1.0),
		Entry("maximum", []float64{5, 1, 9}, 1.0, 9.0),
		Entry("0.99 of 1..5", []float64{1, 2, 3, 4, 5}, .99, 4.96),
		Entry("0.01 of 1..5", []float64{1, 2, 3, 4, 5}, .01, 1.04),
		Entry("ignores NaN", []float64{1, math.NaN(), 3}, .5, 2.0),
	)

	It("returns NaN for q outside [0, 1]", func() {
		Expect(math.IsNaN(dataframe.Quantile([]float64{1, 2}, 1.5))).To(BeTrue())
	})
})

var _ = Describe("DataFrame", func() {
	var (
		sm dataframe.SeriesMap
	)

	BeforeEach(func() {
		sm = dataframe.SeriesMap{
			"B": dataframe.NewSeries("B", []time.Time{day(4), day(5)}, []float64{20, 30}),
			"A": dataframe.NewSeries("A", []time.Time{day(3), day(4)}, []float64{1, 2}),
		}
	})

	It("builds a union-indexed dataframe with NaN for missing values", func() {
		df := sm.DataFrame()
		Expect(df.Len()).To(Equal(3))
		Expect(df.ColNames).To(Equal([]string{"A", "B"}))
		Expect(math.IsNaN(df.Vals[0][2])).To(BeTrue())
		Expect(math.IsNaN(df.Vals[1][0])).To(BeTrue())
		Expect(df.Vals[1][1]).To(Equal(20.0))
	})

	It("aligns series to the common range", func() {
		aligned := sm.Align()
		Expect(aligned["A"].Len()).To(Equal(1))
		Expect(aligned["B"].Start()).To(Equal(day(4)))
	})

	It("returns a column by name", func() {
		df := sm.DataFrame()
		col, err := df.Column("B")
		Expect(err).To(BeNil())
		Expect(col.Len()).To(Equal(3))

		_, err = df.Column("C")
		Expect(errors.Is(err, dataframe.ErrColumnNotFound)).To(BeTrue())
	})

	It("drops rows where every column is NaN", func() {
		df := &dataframe.DataFrame{
			Dates:    []time.Time{day(3), day(4), day(5)},
			ColNames: []string{"A", "B"},
			Vals:     [][]float64{{math.NaN(), 1, math.NaN()}, {math.NaN(), math.NaN(), 2}},
		}
		res := df.DropEmptyRows()
		Expect(res.Dates).To(Equal([]time.Time{day(4), day(5)}))
		Expect(df.Len()).To(Equal(3))
	})

	It("breaks out columns into series", func() {
		res := sm.DataFrame().Breakout()
		Expect(res.Keys()).To(Equal([]string{"A", "B"}))
	})

	It("deep copies", func() {
		df := sm.DataFrame()
		c := df.Copy()
		c.Vals[0][0] = 99
		Expect(df.Vals[0][0]).To(Equal(1.0))
	})
})
