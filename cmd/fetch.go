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
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/concentration"
	"github.com/penny-vault/pv-indices/data"
	"github.com/penny-vault/pv-indices/performance"
	"github.com/penny-vault/pv-indices/report"
)

var (
	fetchForce  bool
	fetchGroups []string
	fetchStart  string
	fetchEnd    string
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchCompositionCmd)
	fetchCmd.AddCommand(fetchPricesCmd)

	fetchCompositionCmd.Flags().BoolVar(&fetchForce, "force", false, "download even when a local copy exists")

	fetchPricesCmd.Flags().StringSliceVar(&fetchGroups, "group", []string{}, "download every symbol of the named group(s) in grupos.json")
	fetchPricesCmd.Flags().StringVar(&fetchStart, "start", "", "first date to download (YYYY-MM-DD), defaults to prices.start")
	fetchPricesCmd.Flags().StringVar(&fetchEnd, "end", "", "last date to download (YYYY-MM-DD), defaults to today")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download index compositions and price histories",
}

var fetchCompositionCmd = &cobra.Command{
	Use:   "composition <INDEX...>",
	Short: "Download the theoretical portfolio of B3 indices",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		shutdown := setupTracing()
		defer shutdown()

		ctx := context.Background()
		b3 := data.NewB3(newStore(), newCache())

		for _, index := range upper(args) {
			comp, err := b3.Composition(ctx, index, fetchForce)
			if err != nil {
				log.Error().Err(err).Str("Index", index).Msg("could not load composition")
				continue
			}

			fmt.Printf("%s - %s (%d constituents)\n", comp.Index.Symbol, comp.Index.Description, len(comp.UnderlyingList))
			largest, err := concentration.Largest(comp.Weights(), 10)
			if err != nil {
				log.Error().Err(err).Str("Index", index).Msg("composition has invalid weights")
				continue
			}

			rows := report.NewRows([]string{"Asset", "Weight"})
			for _, pos := range largest {
				rows.Append([]string{pos.Asset, performance.FormatFloat(pos.Weight)})
			}
			report.PrintTable(os.Stdout, rows)
			fmt.Println()
		}
	},
}

var fetchPricesCmd = &cobra.Command{
	Use:   "prices [SYMBOL...]",
	Short: "Download daily closing prices from Yahoo Finance into the data directory",
	Long: `Download daily closing prices from Yahoo Finance into {data_dir}/prices. When no symbols
are given, every symbol of the requested groups (or of all groups) is downloaded.`,
	Run: func(cmd *cobra.Command, args []string) {
		shutdown := setupTracing()
		defer shutdown()

		ctx := context.Background()
		store := newStore()

		symbols := upper(args)
		if len(symbols) == 0 {
			var err error
			symbols, err = store.GroupSymbols(fetchGroups...)
			if err != nil {
				log.Fatal().Err(err).Msg("could not read groups")
			}
		}
		if len(symbols) == 0 {
			log.Fatal().Msg("no symbols to download")
		}

		start := fetchStart
		if start == "" {
			start = viper.GetString("prices.start")
		}
		begin := parseDate(start)
		end := time.Now().UTC()
		if fetchEnd != "" {
			end = parseDate(fetchEnd)
		}

		yahoo := data.NewYahoo(newCache(), viper.GetStringMapString("prices.overrides"))
		prices, err := yahoo.Download(ctx, symbols, begin, end)
		if err != nil {
			log.Warn().Err(err).Msg("some symbols could not be downloaded")
		}

		rows := report.NewRows([]string{"Symbol", "Rows", "Path"})
		empty := []string{}
		for _, sym := range symbols {
			series, ok := prices[sym]
			if !ok || series.Len() == 0 {
				empty = append(empty, sym)
				continue
			}
			if err := store.SavePrices(ctx, sym, series); err != nil {
				log.Error().Err(err).Str("Symbol", sym).Msg("could not save prices")
				empty = append(empty, sym)
				continue
			}
			rows.Append([]string{sym, fmt.Sprintf("%d", series.Len()), store.PricePath(sym)})
		}

		fmt.Printf("Downloaded: %d | Empty: %d\n", len(rows.Data), len(empty))
		report.PrintTable(os.Stdout, rows)
		if len(empty) > 0 {
			sort.Strings(empty)
			fmt.Println("No data returned for:")
			for _, sym := range empty {
				fmt.Printf("  %s\n", sym)
			}
		}
	},
}
