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
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-indices/analysis"
	"github.com/penny-vault/pv-indices/common"
	"github.com/penny-vault/pv-indices/data"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/observability/opentelemetry"
)

// setupTracing starts the OTLP exporter; the returned func flushes it
func setupTracing() func() {
	shutdown, err := opentelemetry.Setup()
	if err != nil {
		log.Error().Err(err).Msg("could not setup tracing")
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("could not flush traces")
		}
	}
}

func newStore() *data.Store {
	return data.NewStore(viper.GetString("data_dir"))
}

// newCache returns the configured payload cache, or nil (no caching) when it cannot be built
func newCache() *data.Cache {
	cache, err := data.NewCacheFromConfig()
	if err != nil {
		log.Error().Err(err).Msg("could not create cache; continuing without one")
		return nil
	}
	return cache
}

func newRunner(store *data.Store) *analysis.Runner {
	cfg := analysis.ConfigFromViper()
	var source analysis.RiskFreeSource
	if cfg.RiskFreeSeries != "" {
		source = data.NewFred(newCache())
	}
	return analysis.NewRunner(cfg, store, source)
}

// loadExcessReturns reads the symbol's prices and returns its excess returns over the
// configured risk-free rate
func loadExcessReturns(ctx context.Context, runner *analysis.Runner, symbol string) *dataframe.Series {
	r, err := runner.LoadReturns(ctx, symbol)
	if err != nil {
		log.Fatal().Err(err).Str("Symbol", symbol).Msg("could not load returns")
	}
	return runner.ExcessReturns(ctx, r)
}

func parseDate(val string) time.Time {
	dt, err := time.ParseInLocation(dataframe.DateFormat, val, time.UTC)
	if err != nil {
		log.Fatal().Err(err).Str("Date", val).Msg("invalid date; expected YYYY-MM-DD")
	}
	return dt
}

func parseInts(val string) []int {
	res := []int{}
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			log.Fatal().Err(err).Str("Value", val).Msg("expected a comma separated list of integers")
		}
		res = append(res, n)
	}
	return res
}

func upper(args []string) []string {
	res := make([]string, len(args))
	copy(res, args)
	common.ArrToUpper(res)
	return res
}
