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

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-indices/dataframe"
	"github.com/penny-vault/pv-indices/observability/opentelemetry"
	"github.com/penny-vault/pv-indices/periodicity"
)

var fredURL = "https://fred.stlouisfed.org"

// Fred downloads interest rate series from the St. Louis Fed
type Fred struct {
	cache *Cache
}

func NewFred(cache *Cache) *Fred {
	return &Fred{cache: cache}
}

// Series returns the raw observations of the FRED series id between begin and end.
// Missing observations (".") are dropped.
func (f *Fred) Series(ctx context.Context, id string, begin, end time.Time) (*dataframe.Series, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fred.Series")
	defer span.End()

	id = strings.ToUpper(id)
	span.SetAttributes(
		attribute.String("SeriesID", id),
		attribute.String("StartDate", begin.Format(dataframe.DateFormat)),
		attribute.String("EndDate", end.Format(dataframe.DateFormat)),
	)
	subLog := log.With().Str("SeriesID", id).Logger()

	url := fmt.Sprintf("%s/graph/fredgraph.csv?mode=fred&id=%s&cosd=%s&coed=%s&fq=Daily&fam=avg",
		fredURL, id, begin.Format(dataframe.DateFormat), end.Format(dataframe.DateFormat))

	body, err := fetch(ctx, url, nil, f.cache)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "FRED download failed")
		return nil, err
	}

	df, err := readCSV(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse FRED csv")
		subLog.Error().Err(err).Msg("could not parse FRED csv")
		return nil, err
	}

	if len(df.Series) < 2 {
		err = fmt.Errorf("%w: expected date and value columns", ErrUnsupportedFormat)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	dateCol := columnIndex(df, "date", "observation_date")
	if dateCol < 0 {
		dateCol = 0
	}
	valCol := columnIndex(df, id)
	if valCol < 0 {
		valCol = 1
	}

	series := seriesFromCSV(df, id, dateCol, valCol).DropNaN()
	if series.Len() == 0 {
		span.SetStatus(codes.Error, "no data")
		return nil, fmt.Errorf("%w: %s", ErrNoData, id)
	}
	return series, nil
}

// RiskFreeReturns downloads an annualized percent yield and converts it to per-period
// returns: (1 + y/100)^(1/252) - 1
func (f *Fred) RiskFreeReturns(ctx context.Context, id string, begin, end time.Time) (*dataframe.Series, error) {
	yields, err := f.Series(ctx, id, begin, end)
	if err != nil {
		return nil, err
	}
	return AnnualYieldToPeriodic(yields, periodicity.DefaultPeriodsPerYear), nil
}

// AnnualYieldToPeriodic converts annual percent yields to compounded per-period returns
func AnnualYieldToPeriodic(yields *dataframe.Series, periodsPerYear int) *dataframe.Series {
	exp := 1.0 / float64(periodsPerYear)
	return yields.Apply(func(y float64) float64 {
		return math.Pow(1+y/100.0, exp) - 1
	})
}
