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

package periodicity_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/periodicity"
)

func dateRange(start time.Time, n int, next func(time.Time) time.Time) []time.Time {
	dates := make([]time.Time, n)
	dt := start
	for idx := range dates {
		dates[idx] = dt
		dt = next(dt)
	}
	return dates
}

func addDays(n int) func(time.Time) time.Time {
	return func(t time.Time) time.Time { return t.AddDate(0, 0, n) }
}

func nextWeekday(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// monthEnds returns n month-end dates with the given step in months
func monthEnds(year int, month time.Month, n, step int) []time.Time {
	dates := make([]time.Time, n)
	for idx := range dates {
		first := time.Date(year, month+time.Month(idx*step)+1, 1, 0, 0, 0, 0, time.UTC)
		dates[idx] = first.AddDate(0, 0, -1)
	}
	return dates
}

var jan3 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC) // Monday

var _ = Describe("Periodicity", func() {
	DescribeTable("detects regular frequencies", func(dates []time.Time, freq periodicity.Frequency, ppy int) {
		f, ok := periodicity.InferFrequency(dates)
		Expect(ok).To(BeTrue())
		Expect(f).To(Equal(freq))
		Expect(periodicity.PeriodsPerYear(dates)).To(Equal(ppy))
	},
		Entry("calendar daily", dateRange(jan3, 30, addDays(1)), periodicity.Daily, 252),
		Entry("business daily", dateRange(jan3, 30, nextWeekday), periodicity.BusinessDaily, 252),
		Entry("weekly", dateRange(jan3, 20, addDays(7)), periodicity.Weekly, 52),
		Entry("monthly month end", monthEnds(2020, time.January, 24, 1), periodicity.Monthly, 12),
		Entry("quarterly month end", monthEnds(2020, time.March, 8, 3), periodicity.Quarterly, 4),
		Entry("annual month end", monthEnds(2010, time.December, 6, 12), periodicity.Annual, 1),
		Entry("monthly month start", dateRange(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 12, func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }), periodicity.Monthly, 12),
		Entry("monthly business month end", []time.Time{
			time.Date(2021, 1, 29, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 2, 26, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 4, 30, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 5, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC),
		}, periodicity.Monthly, 12),
		Entry("every two weeks", dateRange(jan3, 10, addDays(14)), periodicity.Multiple, 252),
		Entry("every two months", monthEnds(2020, time.January, 10, 2), periodicity.Multiple, 252),
	)

	Context("without a regular frequency", func() {
		It("uses 252 for trading days with holidays", func() {
			dates := dateRange(jan3, 260, nextWeekday)
			// drop a holiday so the business day pattern breaks
			dates = append(dates[:10], dates[11:]...)
			_, ok := periodicity.InferFrequency(dates)
			Expect(ok).To(BeFalse())
			Expect(periodicity.PeriodsPerYear(dates)).To(Equal(252))
		})

		It("uses 52 for irregular weekly sampling", func() {
			dates := []time.Time{jan3, jan3.AddDate(0, 0, 6), jan3.AddDate(0, 0, 14), jan3.AddDate(0, 0, 21), jan3.AddDate(0, 0, 27)}
			Expect(periodicity.PeriodsPerYear(dates)).To(Equal(52))
		})

		It("uses 12 for sparse sampling", func() {
			dates := []time.Time{jan3, jan3.AddDate(0, 0, 20), jan3.AddDate(0, 0, 50), jan3.AddDate(0, 0, 75)}
			Expect(periodicity.PeriodsPerYear(dates)).To(Equal(12))
		})

		It("falls back on density for two dates", func() {
			Expect(periodicity.PeriodsPerYear([]time.Time{jan3, jan3.AddDate(0, 0, 1)})).To(Equal(252))
			Expect(periodicity.PeriodsPerYear([]time.Time{jan3, jan3.AddDate(0, 0, 10)})).To(Equal(52))
			Expect(periodicity.PeriodsPerYear([]time.Time{jan3, jan3.AddDate(0, 0, 30)})).To(Equal(12))
		})
	})

	It("defaults to 252 with fewer than two dates", func() {
		Expect(periodicity.PeriodsPerYear(nil)).To(Equal(252))
		Expect(periodicity.PeriodsPerYear([]time.Time{jan3})).To(Equal(252))
	})
})
