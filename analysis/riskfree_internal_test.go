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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/dataframe"
)

var _ = Describe("Risk-free alignment", func() {
	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	}

	It("carries the last observation forward", func() {
		rf := dataframe.NewSeries("rf", []time.Time{day(2), day(4)}, []float64{0.1, 0.2})
		aligned := carryForward(rf, []time.Time{day(1), day(2), day(3), day(4), day(5)})
		Expect(aligned.Vals).To(Equal([]float64{0, 0.1, 0.1, 0.2, 0.2}))
	})

	It("skips missing observations", func() {
		rf := dataframe.NewSeries("rf", []time.Time{day(2), day(3)}, []float64{0.1, math.NaN()})
		aligned := carryForward(rf, []time.Time{day(2), day(3)})
		Expect(aligned.Vals).To(Equal([]float64{0.1, 0.1}))
	})

	It("spreads a constant annual rate across periods", func() {
		dates := []time.Time{day(2), day(3), day(4), day(5), day(8)}
		rf := constantRiskFree(0.10, dates)
		Expect(rf.Len()).To(Equal(5))
		Expect(rf.Vals[0]).To(BeNumerically("~", math.Pow(1.10, 1.0/252)-1, 1e-15))
	})
})
