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

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/periodicity"
	"github.com/penny-vault/pv-indices/report"
	"github.com/penny-vault/pv-indices/returns"
)

var (
	metricsBenchmark string
	metricsMethod    string
	metricsJSON      bool
	metricsTop       int
)

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVar(&metricsBenchmark, "benchmark", "", "symbol used for the information ratio, tracking error and regression")
	metricsCmd.Flags().StringVar(&metricsMethod, "method", "simple", "return method: simple or log")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "print JSON instead of tables")
	metricsCmd.Flags().IntVar(&metricsTop, "drawdowns", 5, "number of drawdown episodes to list")
}

type metricsOutput struct {
	Symbol         string                         `json:"symbol"`
	Benchmark      string                         `json:"benchmark,omitempty"`
	PeriodsPerYear int                            `json:"periods_per_year"`
	Metrics        *performance.Metrics           `json:"metrics"`
	Summary        *performance.Summary           `json:"summary"`
	TrackingError  *float64                       `json:"tracking_error,omitempty"`
	Regression     *performance.Regression        `json:"regression,omitempty"`
	Drawdowns      []*performance.DrawdownEpisode `json:"drawdowns"`
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <SYMBOL>",
	Short: "Compute performance metrics for a symbol",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := newStore()
		symbol := strings.ToUpper(args[0])

		method, err := returns.ParseMethod(metricsMethod)
		if err != nil {
			log.Fatal().Err(err).Str("Method", metricsMethod).Msg("invalid return method")
		}

		prices, err := store.LoadPrices(ctx, symbol)
		if err != nil {
			log.Fatal().Err(err).Str("Symbol", symbol).Msg("could not load prices")
		}
		r, err := returns.ToReturns(prices, method)
		if err != nil {
			log.Fatal().Err(err).Str("Symbol", symbol).Msg("could not compute returns")
		}

		var benchmark *dataframe.Series
		if metricsBenchmark != "" {
			benchPrices, err := store.LoadPrices(ctx, metricsBenchmark)
			if err != nil {
				log.Fatal().Err(err).Str("Benchmark", metricsBenchmark).Msg("could not load benchmark prices")
			}
			benchmark, err = returns.ToReturns(benchPrices, method)
			if err != nil {
				log.Fatal().Err(err).Str("Benchmark", metricsBenchmark).Msg("could not compute benchmark returns")
			}
		}

		ppy := periodicity.PeriodsPerYear(r.Dates)
		analyzer := performance.NewAnalyzer(viper.GetFloat64("risk_free.rate"), ppy)
		metrics, err := analyzer.Compute(r, benchmark)
		if err != nil {
			log.Fatal().Err(err).Str("Symbol", symbol).Msg("could not compute metrics")
		}

		out := &metricsOutput{
			Symbol:         symbol,
			Benchmark:      strings.ToUpper(metricsBenchmark),
			PeriodsPerYear: ppy,
			Metrics:        metrics,
			Summary:        performance.Summarize(r),
			Drawdowns:      performance.TopDrawdowns(r, metricsTop),
		}
		if benchmark != nil {
			te := analyzer.TrackingError(r, benchmark)
			out.TrackingError = performance.NullableFloat(te)
			reg := performance.RegressionAlphaBeta(r, benchmark)
			out.Regression = &reg
		}

		if metricsJSON {
			body, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("could not serialize metrics")
			}
			fmt.Println(string(body))
			return
		}

		printMetrics(out)
	},
}

func printMetrics(out *metricsOutput) {
	fmt.Printf("%s (%d periods per year)\n", out.Symbol, out.PeriodsPerYear)

	rows := report.NewRows([]string{"Metric", "Value"})
	vals := out.Metrics.Record()
	for idx, col := range out.Metrics.Columns() {
		rows.Append([]string{col, vals[idx]})
	}
	summaryVals := out.Summary.Record()
	for idx, col := range out.Summary.Columns() {
		rows.Append([]string{"summary." + col, summaryVals[idx]})
	}
	if out.TrackingError != nil {
		rows.Append([]string{"tracking_error", performance.FormatFloat(*out.TrackingError)})
	}
	if out.Regression != nil {
		rows.Append([]string{"alpha", performance.FormatFloat(out.Regression.Alpha)})
		rows.Append([]string{"beta", performance.FormatFloat(out.Regression.Beta)})
		rows.Append([]string{"r_squared", performance.FormatFloat(out.Regression.RSquared)})
	}
	report.PrintTable(os.Stdout, rows)

	if len(out.Drawdowns) > 0 {
		fmt.Println()
		dd := report.NewRows([]string{"Begin", "End", "Recovery", "Loss"})
		for _, ep := range out.Drawdowns {
			recovery := "-"
			if !ep.Recovery.IsZero() {
				recovery = ep.Recovery.Format(dataframe.DateFormat)
			}
			dd.Append([]string{
				ep.Begin.Format(dataframe.DateFormat),
				ep.End.Format(dataframe.DateFormat),
				recovery,
				performance.FormatFloat(ep.LossPercent),
			})
		}
		report.PrintTable(os.Stdout, dd)
	}
}
