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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type logConfig struct {
	Level        string `toml:"level"`
	ReportCaller bool   `toml:"report_caller"`
	Output       string `toml:"output"`
	Pretty       bool   `toml:"pretty"`
}

type riskFreeConfig struct {
	Rate   float64 `toml:"rate"`
	Series string  `toml:"series"`
}

type analysisConfig struct {
	ExtremeNs      []int   `toml:"extreme_ns"`
	Quantile       float64 `toml:"quantile"`
	Horizons       []int   `toml:"horizons"`
	TopDrawdowns   int     `toml:"top_drawdowns"`
	ConcentrationN int     `toml:"concentration_n"`
	Winsorize      bool    `toml:"winsorize"`
}

type pricesConfig struct {
	Start     string            `toml:"start"`
	Overrides map[string]string `toml:"overrides"`
}

type cacheConfig struct {
	LocalSize int    `toml:"local_size"`
	Dir       string `toml:"dir"`
	Redis     bool   `toml:"redis"`
	RedisURL  string `toml:"redis_url"`
	TTL       int    `toml:"ttl"`
}

type otlpConfig struct {
	Endpoint string            `toml:"endpoint"`
	HTTP     bool              `toml:"http"`
	Headers  map[string]string `toml:"headers"`
}

// fileConfig is the layout of pvindices.toml
type fileConfig struct {
	DataDir   string         `toml:"data_dir"`
	OutputDir string         `toml:"output_dir"`
	Log       logConfig      `toml:"log"`
	RiskFree  riskFreeConfig `toml:"risk_free"`
	Analysis  analysisConfig `toml:"analysis"`
	Prices    pricesConfig   `toml:"prices"`
	Cache     cacheConfig    `toml:"cache"`
	OTLP      otlpConfig     `toml:"otlp"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		DataDir:   "data",
		OutputDir: "outputs",
		Log: logConfig{
			Level:  "warning",
			Output: "stderr",
			Pretty: true,
		},
		Analysis: analysisConfig{
			ExtremeNs:      []int{5, 10, 20},
			Quantile:       0.99,
			Horizons:       []int{1, 5, 20},
			TopDrawdowns:   5,
			ConcentrationN: 10,
			Winsorize:      true,
		},
		Prices: pricesConfig{
			Start:     "2014-01-01",
			Overrides: map[string]string{},
		},
		Cache: cacheConfig{
			LocalSize: 256,
			RedisURL:  "redis://localhost:6379/0",
			TTL:       86400,
		},
		OTLP: otlpConfig{
			Headers: map[string]string{},
		},
	}
}

// RegisterDefaults makes every key of pvindices.toml known to viper
func RegisterDefaults() {
	defaults := defaultConfig()
	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("output_dir", defaults.OutputDir)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.report_caller", defaults.Log.ReportCaller)
	viper.SetDefault("log.output", defaults.Log.Output)
	viper.SetDefault("log.pretty", defaults.Log.Pretty)
	viper.SetDefault("risk_free.rate", defaults.RiskFree.Rate)
	viper.SetDefault("risk_free.series", defaults.RiskFree.Series)
	viper.SetDefault("analysis.extreme_ns", defaults.Analysis.ExtremeNs)
	viper.SetDefault("analysis.quantile", defaults.Analysis.Quantile)
	viper.SetDefault("analysis.horizons", defaults.Analysis.Horizons)
	viper.SetDefault("analysis.top_drawdowns", defaults.Analysis.TopDrawdowns)
	viper.SetDefault("analysis.concentration_n", defaults.Analysis.ConcentrationN)
	viper.SetDefault("analysis.winsorize", defaults.Analysis.Winsorize)
	viper.SetDefault("prices.start", defaults.Prices.Start)
	viper.SetDefault("prices.overrides", defaults.Prices.Overrides)
	viper.SetDefault("cache.local_size", defaults.Cache.LocalSize)
	viper.SetDefault("cache.dir", defaults.Cache.Dir)
	viper.SetDefault("cache.redis", defaults.Cache.Redis)
	viper.SetDefault("cache.redis_url", defaults.Cache.RedisURL)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("otlp.endpoint", defaults.OTLP.Endpoint)
	viper.SetDefault("otlp.http", defaults.OTLP.HTTP)
	viper.SetDefault("otlp.headers", defaults.OTLP.Headers)
}

var configForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the pvindices configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn := "pvindices.toml"
		if len(args) == 1 {
			fn = args[0]
		}

		if _, err := os.Stat(fn); err == nil && !configForce {
			return fmt.Errorf("%s already exists; use --force to overwrite", fn)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		body, err := toml.Marshal(defaultConfig())
		if err != nil {
			return err
		}

		if dir := filepath.Dir(fn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(fn, body, 0o644); err != nil {
			return err
		}

		log.Info().Str("FileName", fn).Msg("wrote configuration")
		fmt.Printf("wrote %s\n", fn)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := toml.Marshal(viper.AllSettings())
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Printf("# %s\n", used)
		}
		fmt.Print(string(body))
		return nil
	},
}
