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

package concentration_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/penny-vault/pv-indices/concentration"
)

var _ = Describe("Concentration", func() {
	var (
		w concentration.Weights
	)

	BeforeEach(func() {
		w = concentration.Weights{
			"VALE3": 40,
			"PETR4": 30,
			"ITUB4": 20,
			"BBDC4": 10,
		}
	})

	It("normalizes weights to sum to one", func() {
		n, err := concentration.Normalize(w)
		Expect(err).To(BeNil())
		sum := 0.0
		for _, val := range n {
			sum += val
		}
		Expect(sum).Should(BeNumerically("~", 1, 1e-12))
		Expect(n["VALE3"]).Should(BeNumerically("~", 0.4, 1e-12))
		Expect(w["VALE3"]).To(Equal(40.0))
	})

	It("orders values by asset", func() {
		Expect(w.Assets()).To(Equal([]string{"BBDC4", "ITUB4", "PETR4", "VALE3"}))
		Expect(w.Values()).To(Equal([]float64{10, 20, 30, 40}))
	})

	It("computes HHI and the effective number of assets", func() {
		hhi, err := concentration.HHI(w)
		Expect(err).To(BeNil())
		Expect(hhi).Should(BeNumerically("~", 0.16+0.09+0.04+0.01, 1e-12))
		Expect(hhi).To(BeNumerically(">", 0))
		Expect(hhi).To(BeNumerically("<=", 1))

		effN, err := concentration.EffectiveN(w)
		Expect(err).To(BeNil())
		Expect(effN).Should(BeNumerically("~", 1/hhi, 1e-12))
	})

	It("has an effective N equal to the count for equal weights", func() {
		effN, err := concentration.EffectiveN(concentration.Weights{"A": 1, "B": 1, "C": 1})
		Expect(err).To(BeNil())
		Expect(effN).Should(BeNumerically("~", 3, 1e-12))
	})

	DescribeTable("computes top N concentration", func(n int, expected float64) {
		top, err := concentration.TopN(w, n)
		Expect(err).To(BeNil())
		Expect(top).Should(BeNumerically("~", expected, 1e-12))
	},
		Entry("largest", 1, 0.4),
		Entry("two largest", 2, 0.7),
		Entry("all", 4, 1.0),
		Entry("more than available", 10, 1.0),
	)

	It("lists the largest positions", func() {
		largest, err := concentration.Largest(w, 2)
		Expect(err).To(BeNil())
		Expect(largest).To(HaveLen(2))
		Expect(largest[0].Asset).To(Equal("VALE3"))
		Expect(largest[1].Asset).To(Equal("PETR4"))
	})

	DescribeTable("rejects a non-positive n", func(n int) {
		_, err := concentration.TopN(w, n)
		Expect(errors.Is(err, concentration.ErrInvalidParameter)).To(BeTrue())
	},
		Entry("zero", 0),
		Entry("negative", -1),
	)

	DescribeTable("rejects invalid weights", func(bad concentration.Weights) {
		_, err := concentration.Normalize(bad)
		Expect(errors.Is(err, concentration.ErrInvalidWeights)).To(BeTrue())
		_, err = concentration.HHI(bad)
		Expect(errors.Is(err, concentration.ErrInvalidWeights)).To(BeTrue())
	},
		Entry("empty", concentration.Weights{}),
		Entry("zero sum", concentration.Weights{"A": 1, "B": -1}),
		Entry("negative sum", concentration.Weights{"A": -1}),
	)

	Context("diversification ratio", func() {
		It("is one for a single asset with full weight", func() {
			dr, err := concentration.DiversificationRatio([]float64{1}, []float64{0.25})
			Expect(err).To(BeNil())
			Expect(dr).Should(BeNumerically("~", 1, 1e-12))
		})

		It("assumes uncorrelated assets", func() {
			dr, err := concentration.DiversificationRatio([]float64{0.5, 0.5}, []float64{0.2, 0.2})
			Expect(err).To(BeNil())
			Expect(dr).Should(BeNumerically("~", math.Sqrt(2), 1e-12))
		})

		It("is NaN when portfolio volatility is zero", func() {
			dr, err := concentration.DiversificationRatio([]float64{0.5, 0.5}, []float64{0, 0})
			Expect(err).To(BeNil())
			Expect(math.IsNaN(dr)).To(BeTrue())
		})

		It("rejects mismatched lengths", func() {
			_, err := concentration.DiversificationRatio([]float64{0.5, 0.5}, []float64{0.2})
			Expect(errors.Is(err, concentration.ErrInvalidWeights)).To(BeTrue())
		})

		It("rejects negative volatility", func() {
			_, err := concentration.DiversificationRatio([]float64{0.5, 0.5}, []float64{0.2, -0.1})
			Expect(errors.Is(err, concentration.ErrInvalidParameter)).To(BeTrue())
		})

		It("matches the diagonal formula for a diagonal covariance matrix", func() {
			cov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.09})
			full, err := concentration.DiversificationRatioCov([]float64{0.6, 0.4}, cov)
			Expect(err).To(BeNil())
			diag, err := concentration.DiversificationRatio([]float64{0.6, 0.4}, []float64{0.2, 0.3})
			Expect(err).To(BeNil())
			Expect(full).Should(BeNumerically("~", diag, 1e-12))
		})

		It("rejects a covariance matrix of the wrong size", func() {
			cov := mat.NewSymDense(3, nil)
			_, err := concentration.DiversificationRatioCov([]float64{0.5, 0.5}, cov)
			Expect(errors.Is(err, concentration.ErrInvalidWeights)).To(BeTrue())
		})

		It("is one for perfectly correlated assets", func() {
			cov := mat.NewSymDense(2, []float64{0.04, 0.06, 0.06, 0.09})
			dr, err := concentration.DiversificationRatioCov([]float64{0.5, 0.5}, cov)
			Expect(err).To(BeNil())
			Expect(dr).Should(BeNumerically("~", 1, 1e-9))
		})
	})

	It("summarizes a weight vector", func() {
		s, err := concentration.Summarize(w, 2)
		Expect(err).To(BeNil())
		Expect(s.Assets).To(Equal(4))
		Expect(s.TopNConcentration).Should(BeNumerically("~", 0.7, 1e-12))
		Expect(s.EffectiveN).Should(BeNumerically("~", 1/0.3, 1e-12))
		Expect(s.Largest).To(HaveLen(2))
	})
})
