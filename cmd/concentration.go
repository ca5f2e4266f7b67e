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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-indices/concentration"
	"github.com/penny-vault/pv-indices/data"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/report"
)

var (
	concentrationTop   int
	concentrationFetch bool
)

func init() {
	rootCmd.AddCommand(concentrationCmd)

	concentrationCmd.Flags().IntVar(&concentrationTop, "top", 10, "number of largest positions to report")
	concentrationCmd.Flags().BoolVar(&concentrationFetch, "fetch", false, "download the composition from B3 when there is no local copy")
}

var concentrationCmd = &cobra.Command{
	Use:   "concentration <INDEX>",
	Short: "Report HHI, effective N and top-n weight of an index composition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := newStore()
		index := strings.ToUpper(args[0])

		comp, err := store.LoadComposition(index)
		if errors.Is(err, data.ErrNotFound) && concentrationFetch {
			shutdown := setupTracing()
			defer shutdown()
			comp, err = data.NewB3(store, newCache()).Composition(ctx, index, false)
		}
		if err != nil {
			log.Fatal().Err(err).Str("Index", index).Msg("could not load composition")
		}

		summary, err := concentration.Summarize(comp.Weights(), concentrationTop)
		if err != nil {
			log.Fatal().Err(err).Str("Index", index).Msg("could not summarize composition")
		}

		fmt.Printf("%s - %s (%s)\n", comp.Index.Symbol, comp.Index.Description, comp.Msg.DateTime)
		overview := report.NewRows([]string{"Metric", "Value"},
			[]string{"assets", fmt.Sprintf("%d", summary.Assets)},
			[]string{"hhi", performance.FormatFloat(summary.HHI)},
			[]string{"effective_n", performance.FormatFloat(summary.EffectiveN)},
			[]string{fmt.Sprintf("top_%d", summary.TopN), performance.FormatFloat(summary.TopNConcentration)},
		)
		report.PrintTable(os.Stdout, overview)
		fmt.Println()

		positions := report.NewRows([]string{"Asset", "Weight"})
		for _, pos := range summary.Largest {
			positions.Append([]string{pos.Asset, performance.FormatFloat(pos.Weight)})
		}
		report.PrintTable(os.Stdout, positions)
	},
}
