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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/penny-vault/pv-indices/concentration"
	"github.com/penny-vault/pv-indices/data"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/extremes"
	"github.com/penny-vault/pv-indices/observability/opentelemetry"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/periodicity"
	"github.com/penny-vault/pv-indices/report"
	"github.com/penny-vault/pv-indices/returns"
	"github.com/penny-vault/pv-indices/seasonality"
)

// Metadata describes the inputs found for a symbol
type Metadata struct {
	NumConstituents int       `json:"num_constituents"`
	NumObservations int       `json:"num_observations"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

// Result is everything a run produced; it is also written to summary.json
type Result struct {
	RunID           string                                    `json:"run_id"`
	Group           string                                    `json:"group,omitempty"`
	Symbols         []string                                  `json:"symbols"`
	Missing         []string                                  `json:"missing,omitempty"`
	Metadata        map[string]*Metadata                      `json:"metadata"`
	Summaries       map[string]*performance.Summary           `json:"summaries"`
	Metrics         map[string]*performance.Metrics           `json:"metrics,omitempty"`
	Drawdowns       map[string][]*performance.DrawdownEpisode `json:"drawdowns,omitempty"`
	Concentration   map[string]*concentration.Summary         `json:"concentration,omitempty"`
	Contribution    *extremes.Contribution                    `json:"contribution,omitempty"`
	Diversification *Diversification                          `json:"diversification,omitempty"`
	OutputDir       string                                    `json:"output_dir"`
}

// Runner executes analyses against a local data store
type Runner struct {
	cfg            Config
	store          *data.Store
	riskFreeSource RiskFreeSource
}

// NewRunner creates a runner. riskFreeSource may be nil, in which case the constant
// risk_free.rate is used.
func NewRunner(cfg Config, store *data.Store, riskFreeSource RiskFreeSource) *Runner {
	return &Runner{
		cfg:            cfg,
		store:          store,
		riskFreeSource: riskFreeSource,
	}
}

// Run analyzes symbols and writes the artifacts to the output directory. The first symbol
// is the benchmark for the information ratio and the subject of the seasonality and
// extreme-day studies.
func (runner *Runner) Run(ctx context.Context, symbols []string) (*Result, error) {
	return runner.run(ctx, "", runner.cfg.OutputDir, symbols)
}

// RunGroup analyzes a named group, writing into a sub-directory named after it
func (runner *Runner) RunGroup(ctx context.Context, group *data.Group) (*Result, error) {
	return runner.run(ctx, group.Name, filepath.Join(runner.cfg.OutputDir, group.Name), group.Symbols)
}

// RunAllGroups runs every group listed in grupos.json
func (runner *Runner) RunAllGroups(ctx context.Context) (map[string]*Result, error) {
	groups, err := runner.store.LoadGroups()
	if err != nil {
		return nil, err
	}

	results := make(map[string]*Result, len(groups))
	for _, group := range groups {
		res, err := runner.RunGroup(ctx, group)
		if err != nil {
			log.Error().Err(err).Str("Group", group.Name).Msg("group analysis failed")
			return results, err
		}
		results[group.Name] = res
	}
	return results, nil
}

func (runner *Runner) run(ctx context.Context, group, outDir string, symbols []string) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analysis.Run")
	defer span.End()

	syms := make([]string, len(symbols))
	copy(syms, symbols)
	for idx := range syms {
		syms[idx] = strings.ToUpper(strings.TrimSpace(syms[idx]))
	}

	res := &Result{
		RunID:         uuid.New().String(),
		Group:         group,
		Symbols:       syms,
		Metadata:      make(map[string]*Metadata, len(syms)),
		Summaries:     make(map[string]*performance.Summary, len(syms)),
		Metrics:       make(map[string]*performance.Metrics, len(syms)),
		Drawdowns:     make(map[string][]*performance.DrawdownEpisode, len(syms)),
		Concentration: make(map[string]*concentration.Summary),
		OutputDir:     outDir,
	}

	span.SetAttributes(
		attribute.String("RunID", res.RunID),
		attribute.String("Group", group),
		attribute.StringSlice("Symbols", syms),
	)
	subLog := log.With().Str("RunID", res.RunID).Str("Group", group).Logger()
	subLog.Info().Strs("Symbols", syms).Str("OutputDir", outDir).Msg("starting analysis")

	// load prices in the order given; the first available symbol drives the detailed studies
	ordered := make([]string, 0, len(syms))
	rets := make(dataframe.SeriesMap, len(syms))
	for _, sym := range syms {
		meta := &Metadata{}
		res.Metadata[sym] = meta

		if comp, err := runner.store.LoadComposition(sym); err == nil {
			meta.NumConstituents = len(comp.UnderlyingList)
			if summary, err := concentration.Summarize(comp.Weights(), runner.cfg.ConcentrationN); err == nil {
				res.Concentration[sym] = summary
			} else {
				subLog.Warn().Err(err).Str("Symbol", sym).Msg("could not summarize composition")
			}
		}

		prices, err := runner.store.LoadPrices(ctx, sym)
		if err != nil {
			if !errors.Is(err, data.ErrNotFound) {
				subLog.Error().Err(err).Str("Symbol", sym).Msg("could not load prices")
			}
			res.Missing = append(res.Missing, sym)
			continue
		}

		r, err := returns.ToReturns(prices, returns.Simple)
		if err != nil {
			subLog.Warn().Err(err).Str("Symbol", sym).Msg("not enough prices to compute returns")
			res.Missing = append(res.Missing, sym)
			continue
		}

		meta.NumObservations = r.Len()
		meta.Start = r.Start()
		meta.End = r.End()
		rets[sym] = r
		ordered = append(ordered, sym)
	}

	if len(ordered) == 0 {
		subLog.Warn().Msg("no price series available")
		if err := report.WriteText(filepath.Join(outDir, "README_outputs.txt"), fmt.Sprintf(readmeText, runner.store.PricesDir())); err != nil {
			return res, err
		}
		return res, report.WriteJSON(filepath.Join(outDir, "summary.json"), res)
	}

	rf := runner.riskFree(ctx, rets.UnionDates())

	excess := make(dataframe.SeriesMap, len(ordered))
	benchmark := rets[ordered[0]]
	for _, sym := range ordered {
		r := rets[sym]
		s := returns.ExcessReturns(r, rf).DropNaN()
		excess[sym] = s

		res.Summaries[sym] = performance.Summarize(s)

		analyzer := performance.NewAnalyzer(runner.cfg.RiskFreeRate, periodicity.PeriodsPerYear(r.Dates))
		var bench *dataframe.Series
		if sym != ordered[0] {
			bench = benchmark
		}
		if metrics, err := analyzer.Compute(r, bench); err == nil {
			res.Metrics[sym] = metrics
		} else {
			subLog.Warn().Err(err).Str("Symbol", sym).Msg("could not compute metrics")
		}

		res.Drawdowns[sym] = performance.TopDrawdowns(s, runner.cfg.TopDrawdowns)
		runner.writeDrawdowns(outDir, sym, s, res.Drawdowns[sym])
	}

	runner.writeGroupArtifacts(outDir, ordered, excess, res)
	res.Contribution = runner.writeFirstSymbolStudies(outDir, ordered[0], excess[ordered[0]])

	if err := report.WriteJSON(filepath.Join(outDir, "summary.json"), res); err != nil {
		return res, err
	}

	subLog.Info().Int("NumAnalyzed", len(ordered)).Strs("Missing", res.Missing).Msg("analysis complete")
	return res, nil
}

// artifact failures are logged and do not abort the run
func warnOnError(err error, fn string) {
	if err != nil {
		log.Warn().Err(err).Str("FileName", fn).Msg("could not write artifact")
	}
}

func (runner *Runner) writeDrawdowns(outDir, sym string, s *dataframe.Series, episodes []*performance.DrawdownEpisode) {
	fn := filepath.Join(outDir, fmt.Sprintf("%s_drawdown.png", sym))
	warnOnError(report.DrawdownChart(fn, fmt.Sprintf("Drawdown - %s", sym), performance.DrawdownSeries(s)), fn)

	rows := report.NewRows([]string{"begin", "end", "recovery", "loss_percent"})
	for _, ep := range episodes {
		recovery := ""
		if !ep.Recovery.IsZero() {
			recovery = ep.Recovery.Format(dataframe.DateFormat)
		}
		rows.Append([]string{
			ep.Begin.Format(dataframe.DateFormat),
			ep.End.Format(dataframe.DateFormat),
			recovery,
			performance.FormatFloat(ep.LossPercent),
		})
	}
	fn = filepath.Join(outDir, fmt.Sprintf("%s_drawdowns.csv", sym))
	warnOnError(report.WriteCSV(fn, rows), fn)
}

func (runner *Runner) writeGroupArtifacts(outDir string, ordered []string, excess dataframe.SeriesMap, res *Result) {
	fn := filepath.Join(outDir, "cum_returns_excess.png")
	warnOnError(report.CumulativeReturnsChart(fn, "Cumulative excess returns", excess), fn)

	fn = filepath.Join(outDir, "metrics_bar.png")
	warnOnError(report.MetricsChart(fn, "Risk and return", ordered, res.Summaries), fn)

	summaryCols := (&performance.Summary{}).Columns()
	metricCols := (&performance.Metrics{}).Columns()
	header := append([]string{"symbol"}, summaryCols...)
	header = append(header, metricCols...)

	rows := report.NewRows(header)
	for _, sym := range ordered {
		row := append([]string{sym}, res.Summaries[sym].Record()...)
		if metrics, ok := res.Metrics[sym]; ok {
			row = append(row, metrics.Record()...)
		} else {
			row = append(row, make([]string, len(metricCols))...)
		}
		rows.Append(row)
	}
	fn = filepath.Join(outDir, "metrics.csv")
	warnOnError(report.WriteCSV(fn, rows), fn)

	if len(res.Concentration) > 0 {
		conc := report.NewRows([]string{"symbol", "assets", "hhi", "effective_n", "top_n", "top_n_concentration"})
		for _, sym := range res.Symbols {
			summary, ok := res.Concentration[sym]
			if !ok {
				continue
			}
			conc.Append([]string{
				sym,
				fmt.Sprintf("%d", summary.Assets),
				performance.FormatFloat(summary.HHI),
				performance.FormatFloat(summary.EffectiveN),
				fmt.Sprintf("%d", summary.TopN),
				performance.FormatFloat(summary.TopNConcentration),
			})
		}
		fn = filepath.Join(outDir, "concentration.csv")
		warnOnError(report.WriteCSV(fn, conc), fn)
	}

	if len(ordered) > 1 {
		div, err := groupDiversification(excess)
		if err != nil {
			log.Warn().Err(err).Strs("Symbols", ordered).Msg("could not compute diversification ratio")
			return
		}
		res.Diversification = div
		fn = filepath.Join(outDir, "diversification.csv")
		warnOnError(report.WriteCSV(fn, div), fn)
	}
}

func (runner *Runner) writeFirstSymbolStudies(outDir, sym string, s *dataframe.Series) *extremes.Contribution {
	byMonth := seasonality.ByMonth(s, runner.cfg.Winsorize)
	fn := filepath.Join(outDir, fmt.Sprintf("%s_season_month.csv", sym))
	warnOnError(report.WriteCSV(fn, byMonth), fn)

	fn = filepath.Join(outDir, fmt.Sprintf("%s_season_month.png", sym))
	warnOnError(report.MonthlyChart(fn, fmt.Sprintf("Monthly seasonality - %s", sym), byMonth), fn)

	byWeekday := seasonality.ByWeekday(s, runner.cfg.Winsorize)
	fn = filepath.Join(outDir, fmt.Sprintf("%s_season_weekday.csv", sym))
	warnOnError(report.WriteCSV(fn, byWeekday), fn)

	if impact, err := extremes.ImpactOfExtremes(s, runner.cfg.ExtremeNs); err == nil {
		fn = filepath.Join(outDir, fmt.Sprintf("%s_extremes.csv", sym))
		warnOnError(report.WriteCSV(fn, impact), fn)
	} else {
		log.Warn().Err(err).Str("Symbol", sym).Msg("could not compute impact of extremes")
	}

	events := extremes.EventStudyAfterExtreme(s, runner.cfg.Quantile, runner.cfg.Horizons)
	fn = filepath.Join(outDir, fmt.Sprintf("%s_event_study.csv", sym))
	warnOnError(report.WriteCSV(fn, events), fn)

	n := maxInt(runner.cfg.ExtremeNs)
	wealth := extremes.WealthCurvesWithExtremes(s, n)
	fn = filepath.Join(outDir, fmt.Sprintf("%s_wealth_extremes.csv", sym))
	warnOnError(report.WriteCSV(fn, wealth), fn)

	analyzer := performance.NewAnalyzer(0, periodicity.PeriodsPerYear(s.Dates))
	contribution, err := extremes.ComputeContribution(s, analyzer, n, n)
	if err != nil {
		log.Warn().Err(err).Str("Symbol", sym).Msg("could not compute extreme-day contribution")
		return nil
	}
	fn = filepath.Join(outDir, fmt.Sprintf("%s_contribution.csv", sym))
	warnOnError(report.WriteCSV(fn, contribution), fn)
	return contribution
}

// LoadReturns reads the symbol's prices from the store and converts them to simple returns
func (runner *Runner) LoadReturns(ctx context.Context, symbol string) (*dataframe.Series, error) {
	prices, err := runner.store.LoadPrices(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return returns.ToReturns(prices, returns.Simple)
}

// ExcessReturns subtracts the configured risk-free return from r
func (runner *Runner) ExcessReturns(ctx context.Context, r *dataframe.Series) *dataframe.Series {
	return returns.ExcessReturns(r, runner.riskFree(ctx, r.Dates)).DropNaN()
}
