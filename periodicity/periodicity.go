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

// Package periodicity infers how many return observations make up a year from a date index.
// Every annualized metric depends on this number.
package periodicity

import (
	"time"
)

// Frequency is a regular sampling interval detected from a date index
type Frequency string

const (
	Daily         Frequency = "D"
	BusinessDaily Frequency = "B"
	Weekly        Frequency = "W"
	Monthly       Frequency = "M"
	Quarterly     Frequency = "Q"
	Annual        Frequency = "A"
	// Multiple is a regular interval that is a multiple of one of the above (e.g. every 2
	// weeks). It is detected but has no dedicated periods-per-year mapping.
	Multiple Frequency = "N"
)

const (
	DefaultPeriodsPerYear = 252

	denseThreshold  = 0.6
	weeklyThreshold = 0.12
)

// PeriodsPerYear maps a detected frequency to the number of observations per year
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case Daily, BusinessDaily:
		return 252
	case Weekly:
		return 52
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case Annual:
		return 1
	default:
		return DefaultPeriodsPerYear
	}
}

// PeriodsPerYear infers the number of observations per year in dates. When a regular
// frequency is detected it is mapped directly; otherwise the average number of samples per
// calendar day decides: above 0.6 is daily (252), above 0.12 weekly (52), anything sparser
// monthly (12). Fewer than two dates returns 252.
func PeriodsPerYear(dates []time.Time) int {
	if len(dates) < 2 {
		return DefaultPeriodsPerYear
	}

	if freq, ok := InferFrequency(dates); ok {
		return freq.PeriodsPerYear()
	}

	return densityPeriodsPerYear(dates)
}

func densityPeriodsPerYear(dates []time.Time) int {
	days := daysBetween(dates[0], dates[len(dates)-1])
	if days == 0 {
		days = 1
	}

	density := float64(len(dates)) / float64(days)
	switch {
	case density > denseThreshold:
		return 252
	case density > weeklyThreshold:
		return 52
	default:
		return 12
	}
}

// InferFrequency detects a regular sampling frequency. At least three dates are required;
// ok is false when no regular frequency exists.
func InferFrequency(dates []time.Time) (freq Frequency, ok bool) {
	if len(dates) < 3 {
		return "", false
	}

	if months, anchored := monthStep(dates); anchored {
		switch months {
		case 1:
			return Monthly, true
		case 3:
			return Quarterly, true
		case 12:
			return Annual, true
		default:
			return Multiple, true
		}
	}

	if step, uniform := uniformDayStep(dates); uniform {
		switch {
		case step == 1:
			return Daily, true
		case step == 7:
			return Weekly, true
		default:
			return Multiple, true
		}
	}

	if isBusinessDaily(dates) {
		return BusinessDaily, true
	}

	return "", false
}

// civil strips the time of day so day arithmetic is not skewed by DST or timezones
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(civil(b).Sub(civil(a)).Hours() / 24)
}

func uniformDayStep(dates []time.Time) (int, bool) {
	step := daysBetween(dates[0], dates[1])
	if step <= 0 {
		return 0, false
	}
	for idx := 2; idx < len(dates); idx++ {
		if daysBetween(dates[idx-1], dates[idx]) != step {
			return 0, false
		}
	}
	return step, true
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// isBusinessDaily reports whether every date is a weekday and consecutive dates are one
// business day apart (Friday to Monday counts as one).
func isBusinessDaily(dates []time.Time) bool {
	for idx, dt := range dates {
		if isWeekend(dt) {
			return false
		}
		if idx == 0 {
			continue
		}
		gap := daysBetween(dates[idx-1], dt)
		switch {
		case gap == 1:
		case gap == 3 && dates[idx-1].Weekday() == time.Friday:
		default:
			return false
		}
	}
	return true
}

type anchor func(time.Time) bool

func isMonthEnd(t time.Time) bool {
	return civil(t).AddDate(0, 0, 1).Day() == 1
}

func isMonthStart(t time.Time) bool {
	return t.Day() == 1
}

func isBusinessMonthEnd(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	next := civil(t).AddDate(0, 0, 1)
	for next.Month() == t.Month() {
		if !isWeekend(next) {
			return false
		}
		next = next.AddDate(0, 0, 1)
	}
	return true
}

func isBusinessMonthStart(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	prev := civil(t).AddDate(0, 0, -1)
	for prev.Month() == t.Month() {
		if !isWeekend(prev) {
			return false
		}
		prev = prev.AddDate(0, 0, -1)
	}
	return true
}

func allAnchored(dates []time.Time, fn anchor) bool {
	for _, dt := range dates {
		if !fn(dt) {
			return false
		}
	}
	return true
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// monthStep reports the uniform number of months between dates when every date sits on the
// same monthly anchor (month end, month start or their business-day equivalents)
func monthStep(dates []time.Time) (int, bool) {
	anchors := []anchor{isMonthEnd, isBusinessMonthEnd, isMonthStart, isBusinessMonthStart}
	anchored := false
	for _, fn := range anchors {
		if allAnchored(dates, fn) {
			anchored = true
			break
		}
	}
	if !anchored {
		return 0, false
	}

	step := monthIndex(dates[1]) - monthIndex(dates[0])
	if step <= 0 {
		return 0, false
	}
	for idx := 2; idx < len(dates); idx++ {
		if monthIndex(dates[idx])-monthIndex(dates[idx-1]) != step {
			return 0, false
		}
	}
	return step, true
}
