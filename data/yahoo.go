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

package data

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-indices/common"
	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/observability/opentelemetry"
)

var yahooURL = "https://query1.finance.yahoo.com"

type yahooChart struct {
	Chart struct {
		Result []*yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// YahooSymbol maps a B3 symbol onto its Yahoo Finance ticker. Overrides take precedence,
// IBOV maps to ^BVSP, index tickers (^...) and already-suffixed tickers are kept and bare
// tickers get the .SA suffix.
func YahooSymbol(symbol string, overrides map[string]string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if override, ok := overrides[s]; ok {
		return override
	}
	if s == "IBOV" {
		return "^BVSP"
	}
	if strings.HasPrefix(s, "^") {
		return s
	}
	if !strings.Contains(s, ".") {
		return s + ".SA"
	}
	return s
}

// Yahoo downloads daily closing prices from the Yahoo Finance chart API
type Yahoo struct {
	cache     *Cache
	overrides map[string]string
}

func NewYahoo(cache *Cache, overrides map[string]string) *Yahoo {
	normalized := make(map[string]string, len(overrides))
	for k, v := range overrides {
		normalized[strings.ToUpper(k)] = v
	}
	return &Yahoo{
		cache:     cache,
		overrides: normalized,
	}
}

// Prices returns the daily (adjusted when available) close of symbol between begin and end
func (yahoo *Yahoo) Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.Series, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "yahoo.Prices")
	defer span.End()

	symbol = strings.ToUpper(symbol)
	ticker := YahooSymbol(symbol, yahoo.overrides)

	span.SetAttributes(
		attribute.String("Symbol", symbol),
		attribute.String("Ticker", ticker),
		attribute.String("StartDate", begin.Format(dataframe.DateFormat)),
		attribute.String("EndDate", end.Format(dataframe.DateFormat)),
	)

	subLog := log.With().Str("Symbol", symbol).Str("Ticker", ticker).Logger()

	if end.Before(begin) {
		span.SetStatus(codes.Error, "invalid date range")
		return nil, ErrInvalidDateRange
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		yahooURL, ticker, begin.Unix(), end.Unix())

	body, err := fetch(ctx, url, nil, yahoo.cache)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "price download failed")
		return nil, err
	}

	chart := yahooChart{}
	if err := json.Unmarshal(body, &chart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse chart")
		subLog.Error().Err(err).Msg("could not parse yahoo chart payload")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}

	if chart.Chart.Error != nil {
		err = fmt.Errorf("%w: %s %s", ErrNoData, chart.Chart.Error.Code, chart.Chart.Error.Description)
		span.RecordError(err)
		span.SetStatus(codes.Error, "yahoo returned an error")
		subLog.Error().Err(err).Msg("yahoo returned an error")
		return nil, err
	}

	if len(chart.Chart.Result) == 0 {
		span.SetStatus(codes.Error, "no data")
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	prices := chartToSeries(symbol, chart.Chart.Result[0])
	if prices.Len() == 0 {
		span.SetStatus(codes.Error, "no data")
		subLog.Warn().Msg("yahoo returned no prices")
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	subLog.Debug().Int("NumRows", prices.Len()).Msg("downloaded prices")
	return prices, nil
}

// Download fetches prices for every symbol, ten at a time. Symbols that fail are logged and
// left out of the result; the first error encountered is returned alongside the successes.
func (yahoo *Yahoo) Download(ctx context.Context, symbols []string, begin, end time.Time) (dataframe.SeriesMap, error) {
	res := make(dataframe.SeriesMap, len(symbols))
	errs := []error{}
	ch := make(chan quoteResult)

	for _, chunk := range partitionArray(symbols, 10) {
		for ii := range chunk {
			go func(symbol string) {
				prices, err := yahoo.Prices(ctx, symbol, begin, end)
				ch <- quoteResult{
					Ticker: symbol,
					Data:   prices,
					Err:    err,
				}
			}(strings.ToUpper(chunk[ii]))
		}

		for range chunk {
			v := <-ch
			if v.Err == nil {
				res[v.Ticker] = v.Data
			} else {
				log.Warn().Err(v.Err).Str("Ticker", v.Ticker).Msg("cannot download ticker data")
				errs = append(errs, v.Err)
			}
		}
	}

	if len(errs) != 0 {
		return res, errs[0]
	}
	return res, nil
}

func chartToSeries(symbol string, result *yahooResult) *dataframe.Series {
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	tz := common.GetTimezone()
	dates := make([]time.Time, 0, len(result.Timestamp))
	vals := make([]float64, 0, len(result.Timestamp))
	for idx, ts := range result.Timestamp {
		if idx >= len(closes) || closes[idx] == nil || math.IsNaN(*closes[idx]) {
			continue
		}
		local := time.Unix(ts, 0).In(tz)
		dt := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if len(dates) > 0 && !dt.After(dates[len(dates)-1]) {
			// intraday bar for the current session; keep the latest value
			vals[len(vals)-1] = *closes[idx]
			continue
		}
		dates = append(dates, dt)
		vals = append(vals, *closes[idx])
	}

	return dataframe.NewSeries(symbol, dates, vals)
}
