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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/report"
	"github.com/penny-vault/pv-indices/seasonality"
)

var seasonalityNoWinsorize bool

func init() {
	rootCmd.AddCommand(seasonalityCmd)

	seasonalityCmd.Flags().BoolVar(&seasonalityNoWinsorize, "no-winsorize", false, "use raw returns instead of clipping at the 1st/99th percentiles")
}

var seasonalityCmd = &cobra.Command{
	Use:   "seasonality <SYMBOL>",
	Short: "Average returns by calendar month and weekday with significance tests",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		symbol := strings.ToUpper(args[0])
		runner := newRunner(newStore())
		r := loadExcessReturns(ctx, runner, symbol)

		winsorize := viper.GetBool("analysis.winsorize") && !seasonalityNoWinsorize

		fmt.Printf("%s: returns by month\n", symbol)
		report.PrintTable(os.Stdout, seasonality.ByMonth(r, winsorize))
		fmt.Println()

		fmt.Printf("%s: returns by weekday\n", symbol)
		report.PrintTable(os.Stdout, seasonality.ByWeekday(r, winsorize))
	},
}
