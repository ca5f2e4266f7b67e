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
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

var _ = Describe("Config", func() {
	AfterEach(func() {
		viper.Reset()
		configForce = false
	})

	It("registers defaults for every analysis setting", func() {
		RegisterDefaults()
		Expect(viper.GetString("data_dir")).To(Equal("data"))
		Expect(viper.GetFloat64("analysis.quantile")).To(Equal(0.99))
		Expect(viper.GetIntSlice("analysis.extreme_ns")).To(Equal([]int{5, 10, 20}))
		Expect(viper.GetIntSlice("analysis.horizons")).To(Equal([]int{1, 5, 20}))
		Expect(viper.GetBool("analysis.winsorize")).To(BeTrue())
		Expect(viper.GetString("prices.start")).To(Equal("2014-01-01"))
	})

	It("writes a default configuration file once", func() {
		dir, err := os.MkdirTemp("", "pvindices")
		Expect(err).To(BeNil())
		DeferCleanup(os.RemoveAll, dir)
		fn := filepath.Join(dir, "etc", "pvindices.toml")

		Expect(configInitCmd.RunE(configInitCmd, []string{fn})).To(Succeed())

		body, err := os.ReadFile(fn)
		Expect(err).To(BeNil())
		var cfg fileConfig
		Expect(toml.Unmarshal(body, &cfg)).To(Succeed())
		Expect(cfg.OutputDir).To(Equal("outputs"))
		Expect(cfg.Analysis.TopDrawdowns).To(Equal(5))
		Expect(cfg.Cache.TTL).To(Equal(86400))

		Expect(configInitCmd.RunE(configInitCmd, []string{fn})).NotTo(Succeed())

		configForce = true
		Expect(configInitCmd.RunE(configInitCmd, []string{fn})).To(Succeed())
	})

	It("parses comma separated integers", func() {
		Expect(parseInts("5, 10,,20")).To(Equal([]int{5, 10, 20}))
		Expect(parseInts("")).To(BeEmpty())
	})

	It("upper cases symbols without touching the input", func() {
		args := []string{"petr4", " vale3"}
		Expect(upper(args)).To(Equal([]string{"PETR4", "VALE3"}))
		Expect(args[0]).To(Equal("petr4"))
	})
})
