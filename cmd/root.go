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
	"runtime/pprof"
	"runtime/trace"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/common"
)

var Profile bool
var Trace bool

var profileFile *os.File
var traceFile *os.File

func bindFlag(key, env, flag string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func init() {
	defaults := defaultConfig()

	// Data locations
	rootCmd.PersistentFlags().String("data-dir", defaults.DataDir, "Directory holding prices/, grupos.json and composition files")
	bindFlag("data_dir", "PVI_DATA_DIR", "data-dir")

	rootCmd.PersistentFlags().String("output-dir", defaults.OutputDir, "Directory analysis artifacts are written to")
	bindFlag("output_dir", "PVI_OUTPUT_DIR", "output-dir")

	// Risk-free rate
	rootCmd.PersistentFlags().Float64("risk-free-rate", defaults.RiskFree.Rate, "Constant annual risk-free rate (decimal)")
	bindFlag("risk_free.rate", "PVI_RISK_FREE_RATE", "risk-free-rate")

	rootCmd.PersistentFlags().String("risk-free-series", defaults.RiskFree.Series, "FRED series id of an annual percent yield used as the risk-free rate")
	bindFlag("risk_free.series", "PVI_RISK_FREE_SERIES", "risk-free-series")

	// Cache
	rootCmd.PersistentFlags().String("cache-dir", defaults.Cache.Dir, "Directory for cached provider responses, if blank don't cache on disk")
	bindFlag("cache.dir", "PVI_CACHE_DIR", "cache-dir")

	rootCmd.PersistentFlags().String("redis-url", defaults.Cache.RedisURL, "Redis connection string used when cache.redis is enabled")
	bindFlag("cache.redis_url", "REDIS_URL", "redis-url")

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", defaults.Log.Level, "Logging level")
	bindFlag("log.level", "PVI_LOG_LEVEL", "log-level")

	rootCmd.PersistentFlags().Bool("log-report-caller", defaults.Log.ReportCaller, "Log function name that called log statement")
	bindFlag("log.report_caller", "PVI_LOG_REPORT_CALLER", "log-report-caller")

	rootCmd.PersistentFlags().String("log-output", defaults.Log.Output, "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindFlag("log.output", "PVI_LOG_OUTPUT", "log-output")

	rootCmd.PersistentFlags().Bool("log-pretty", defaults.Log.Pretty, "Write human readable logs instead of JSON")
	bindFlag("log.pretty", "PVI_LOG_PRETTY", "log-pretty")

	// Tracing
	rootCmd.PersistentFlags().String("otlp-endpoint", defaults.OTLP.Endpoint, "OpenTelemetry collector endpoint, if blank tracing is disabled")
	bindFlag("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "otlp-endpoint")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "pvindices",
	Version: common.CurrentVersion.String(),
	Short:   "Analyze the risk and return of B3 market indices",
	Long: `pvindices downloads index compositions and price histories for B3 indices and
computes performance, drawdown, concentration, seasonality and extreme-day statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetupLogging()

		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				return err
			}
			profileFile = f
			if err := pprof.StartCPUProfile(f); err != nil {
				return err
			}
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				return fmt.Errorf("failed to create trace output file: %w", err)
			}
			traceFile = f
			if err := trace.Start(f); err != nil {
				return fmt.Errorf("failed to start trace: %w", err)
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profileFile != nil {
			pprof.StopCPUProfile()
			profileFile.Close()
		}
		if traceFile != nil {
			trace.Stop()
			if err := traceFile.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close trace file")
			}
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
