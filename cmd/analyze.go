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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-indices/analysis"
	"github.com/penny-vault/pv-indices/report"
)

var analyzeGroup string

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeGroup, "group", "", "analyze the named group from grupos.json")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [SYMBOL...]",
	Short: "Run the full analysis and write artifacts to the output directory",
	Long: `Run the full analysis for the given symbols, or for a group from grupos.json. With
neither, every group is analyzed into its own sub-directory of the output directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		shutdown := setupTracing()
		defer shutdown()

		ctx := context.Background()
		store := newStore()
		runner := newRunner(store)

		switch {
		case len(args) > 0:
			res, err := runner.Run(ctx, upper(args))
			if err != nil {
				log.Fatal().Err(err).Msg("analysis failed")
			}
			printResult(res)
		case analyzeGroup != "":
			group, err := store.Group(analyzeGroup)
			if err != nil {
				log.Fatal().Err(err).Str("Group", analyzeGroup).Msg("could not load group")
			}
			res, err := runner.RunGroup(ctx, group)
			if err != nil {
				log.Fatal().Err(err).Msg("analysis failed")
			}
			printResult(res)
		default:
			results, err := runner.RunAllGroups(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("analysis failed")
			}
			for _, res := range results {
				printResult(res)
			}
		}
	},
}

func printResult(res *analysis.Result) {
	title := "Analysis"
	if res.Group != "" {
		title = fmt.Sprintf("Group %s", res.Group)
	}
	fmt.Printf("%s (run %s) -> %s\n", title, res.RunID, res.OutputDir)

	if len(res.Summaries) == 0 {
		fmt.Println("No price series found; see README_outputs.txt")
		fmt.Println()
		return
	}

	var header []string
	rows := report.NewRows(nil)
	for _, sym := range res.Symbols {
		summary, ok := res.Summaries[sym]
		if !ok {
			continue
		}
		if header == nil {
			header = append([]string{"Symbol"}, summary.Columns()...)
		}
		rows.Append(append([]string{sym}, summary.Record()...))
	}
	rows.Header = header
	report.PrintTable(os.Stdout, rows)

	if len(res.Missing) > 0 {
		fmt.Printf("Missing prices: %v\n", res.Missing)
	}
	fmt.Println()
}
