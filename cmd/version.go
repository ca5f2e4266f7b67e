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
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-indices/common"
)

var (
	versionDeps bool
	versionJSON bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionDeps, "deps", false, "print dependencies")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print build information as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := common.CurrentBuild(versionDeps)
		if !versionJSON {
			fmt.Println(info.String())
			return
		}
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("could not encode build info")
		}
		fmt.Fprintln(os.Stdout, string(out))
	},
}
