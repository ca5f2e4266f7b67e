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

package analysis_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-indices/analysis"
	"github.com/penny-vault/pv-indices/data"
	"github.com/penny-vault/pv-indices/dataframe"
)

type staticRiskFree struct {
	rate  float64
	calls int
	err   error
}

func (s *staticRiskFree) RiskFreeReturns(_ context.Context, id string, begin, end time.Time) (*dataframe.Series, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	dates := []time.Time{}
	vals := []float64{}
	for dt := begin; !dt.After(end); dt = dt.AddDate(0, 0, 1) {
		dates = append(dates, dt)
		vals = append(vals, s.rate)
	}
	return dataframe.NewSeries(id, dates, vals), nil
}

// businessDayPrices builds a deterministic, oscillating price path on weekdays
func businessDayPrices(name string, start time.Time, n int, drift float64) *dataframe.Series {
	dates := make([]time.Time, 0, n)
	vals := make([]float64, 0, n)
	level := 100.0
	dt := start
	for len(dates) < n {
		if dt.Weekday() != time.Saturday && dt.Weekday() != time.Sunday {
			step := drift + 0.01*math.Sin(float64(len(dates)))
			level *= 1 + step
			dates = append(dates, dt)
			vals = append(vals, level)
		}
		dt = dt.AddDate(0, 0, 1)
	}
	return dataframe.NewSeries(name, dates, vals)
}

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		dir    string
		outDir string
		store  *data.Store
		cfg    analysis.Config
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir, err = os.MkdirTemp("", "pvindices-analysis")
		Expect(err).To(BeNil())
		DeferCleanup(os.RemoveAll, dir)

		store = data.NewStore(filepath.Join(dir, "data"))
		outDir = filepath.Join(dir, "outputs")
		cfg = analysis.DefaultConfig()
		cfg.OutputDir = outDir
	})

	Context("without price files", func() {
		It("writes instructions and metadata only", func() {
			runner := analysis.NewRunner(cfg, store, nil)
			res, err := runner.Run(ctx, []string{"ibov"})
			Expect(err).To(BeNil())
			Expect(res.Missing).To(Equal([]string{"IBOV"}))
			Expect(res.Summaries).To(BeEmpty())
			Expect(res.RunID).ToNot(BeEmpty())

			Expect(filepath.Join(outDir, "README_outputs.txt")).To(BeAnExistingFile())
			Expect(filepath.Join(outDir, "summary.json")).To(BeAnExistingFile())
		})
	})

	Context("with price files", func() {
		BeforeEach(func() {
			start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
			Expect(store.SavePrices(ctx, "IBOV", businessDayPrices("IBOV", start, 260, 0.0004))).To(Succeed())
			Expect(store.SavePrices(ctx, "SMLL", businessDayPrices("SMLL", start, 260, 0.0002))).To(Succeed())

			Expect(os.WriteFile(store.CompositionPath("IBOV"), []byte(`{"Index":{"symbol":"IBOV"},"UnderlyingList":[{"symb":"VALE3","indxCmpnPctg":60},{"symb":"PETR4","indxCmpnPctg":40}]}`), 0o644)).To(Succeed())
		})

		It("summarizes every symbol and writes the artifacts", func() {
			runner := analysis.NewRunner(cfg, store, nil)
			res, err := runner.Run(ctx, []string{"IBOV", "SMLL", "MISSING"})
			Expect(err).To(BeNil())

			Expect(res.Missing).To(Equal([]string{"MISSING"}))
			Expect(res.Summaries).To(HaveKey("IBOV"))
			Expect(res.Summaries).To(HaveKey("SMLL"))
			Expect(res.Metadata["IBOV"].NumConstituents).To(Equal(2))
			Expect(res.Metadata["IBOV"].NumObservations).To(Equal(259))

			_, hasIR := res.Metrics["IBOV"].InformationRatio.Get()
			Expect(hasIR).To(BeFalse())
			_, hasIR = res.Metrics["SMLL"].InformationRatio.Get()
			Expect(hasIR).To(BeTrue())

			Expect(res.Concentration["IBOV"].HHI).To(BeNumerically("~", 0.52, 1e-12))

			// both paths share the oscillation, so the pair does not diversify
			Expect(res.Diversification).ToNot(BeNil())
			Expect(res.Diversification.Symbols).To(Equal([]string{"IBOV", "SMLL"}))
			Expect(res.Diversification.Observations).To(Equal(259))
			Expect(res.Diversification.Ratio).To(BeNumerically("~", 1, 1e-6))

			for _, fn := range []string{
				"summary.json",
				"metrics.csv",
				"concentration.csv",
				"diversification.csv",
				"IBOV_drawdowns.csv",
				"SMLL_drawdowns.csv",
				"IBOV_season_month.csv",
				"IBOV_season_weekday.csv",
				"IBOV_extremes.csv",
				"IBOV_event_study.csv",
				"IBOV_wealth_extremes.csv",
				"IBOV_contribution.csv",
			} {
				Expect(filepath.Join(outDir, fn)).To(BeAnExistingFile())
			}
		})

		It("records the run in summary.json", func() {
			runner := analysis.NewRunner(cfg, store, nil)
			res, err := runner.Run(ctx, []string{"IBOV"})
			Expect(err).To(BeNil())

			body, err := os.ReadFile(filepath.Join(outDir, "summary.json"))
			Expect(err).To(BeNil())
			parsed := map[string]interface{}{}
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed["run_id"]).To(Equal(res.RunID))
			Expect(parsed["symbols"]).To(Equal([]interface{}{"IBOV"}))
		})

		It("measures excess returns against the risk-free series", func() {
			base, err := analysis.NewRunner(cfg, store, nil).Run(ctx, []string{"IBOV"})
			Expect(err).To(BeNil())

			cfg.RiskFreeSeries = "SELIC"
			source := &staticRiskFree{rate: 0.0004}
			withRf, err := analysis.NewRunner(cfg, store, source).Run(ctx, []string{"IBOV"})
			Expect(err).To(BeNil())
			Expect(source.calls).To(Equal(1))
			Expect(withRf.Summaries["IBOV"].AnnualReturn).To(BeNumerically("<", base.Summaries["IBOV"].AnnualReturn))
		})

		It("falls back to the constant rate when the series is unavailable", func() {
			cfg.RiskFreeSeries = "SELIC"
			cfg.RiskFreeRate = 0.10
			source := &staticRiskFree{err: errors.New("offline")}
			constant, err := analysis.NewRunner(cfg, store, source).Run(ctx, []string{"IBOV"})
			Expect(err).To(BeNil())

			cfg.RiskFreeSeries = ""
			expected, err := analysis.NewRunner(cfg, store, nil).Run(ctx, []string{"IBOV"})
			Expect(err).To(BeNil())
			Expect(constant.Summaries["IBOV"].AnnualReturn).To(BeNumerically("~", expected.Summaries["IBOV"].AnnualReturn, 1e-12))
		})

		It("runs every group into its own directory", func() {
			groups := `{"rows":[{"name":"amplos","symbols":["ibov","smll"]},{"name":"vazio","symbols":["nope"]}]}`
			Expect(os.WriteFile(store.GroupsPath(), []byte(groups), 0o644)).To(Succeed())

			runner := analysis.NewRunner(cfg, store, nil)
			results, err := runner.RunAllGroups(ctx)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(2))
			Expect(results["amplos"].Summaries).To(HaveLen(2))
			Expect(filepath.Join(outDir, "amplos", "summary.json")).To(BeAnExistingFile())
			Expect(filepath.Join(outDir, "vazio", "README_outputs.txt")).To(BeAnExistingFile())
		})
	})
})
