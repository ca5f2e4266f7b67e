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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/extremes"
	"github.com/penny-vault/pv-indices/report"
)

var (
	extremesNs       string
	extremesQuantile float64
	extremesHorizons string
)

func init() {
	rootCmd.AddCommand(extremesCmd)

	extremesCmd.Flags().StringVar(&extremesNs, "n", "", "comma separated counts of best/worst days to remove, defaults to analysis.extreme_ns")
	extremesCmd.Flags().Float64Var(&extremesQuantile, "quantile", 0, "upper quantile defining an extreme day, defaults to analysis.quantile")
	extremesCmd.Flags().StringVar(&extremesHorizons, "horizons", "", "comma separated forward horizons for the event study, defaults to analysis.horizons")
}

var extremesCmd = &cobra.Command{
	Use:   "extremes <SYMBOL>",
	Short: "Measure how much the best and worst days drive a symbol's returns",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		symbol := strings.ToUpper(args[0])
		runner := newRunner(newStore())
		r := loadExcessReturns(ctx, runner, symbol)

		ns := viper.GetIntSlice("analysis.extreme_ns")
		if extremesNs != "" {
			ns = parseInts(extremesNs)
		}
		q := viper.GetFloat64("analysis.quantile")
		if extremesQuantile > 0 {
			q = extremesQuantile
		}
		horizons := viper.GetIntSlice("analysis.horizons")
		if extremesHorizons != "" {
			horizons = parseInts(extremesHorizons)
		}

		impact, err := extremes.ImpactOfExtremes(r, ns)
		if err != nil {
			log.Fatal().Err(err).Str("Symbol", symbol).Msg("could not compute impact of extremes")
		}
		fmt.Printf("%s: impact of removing extreme days\n", symbol)
		report.PrintTable(os.Stdout, impact)
		fmt.Println()

		events := extremes.EventStudyAfterExtreme(r, q, horizons)
		fmt.Printf("%s: average forward return after extreme days (q=%g)\n", symbol, q)
		report.PrintTable(os.Stdout, events)
	},
}
