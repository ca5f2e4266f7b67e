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
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-indices/observability/opentelemetry"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// fetch issues a GET request and returns the response body. When cache is non-nil the
// payload is read from and written to it, keyed by the request URL.
func fetch(ctx context.Context, url string, headers map[string]string, cache *Cache) ([]byte, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "data.fetch")
	defer span.End()

	key := CacheKey(url)
	if body, ok := cache.Get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		log.Debug().Str("Url", url).Msg("serving request from cache")
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not build request")
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	span.SetAttributes(opentelemetry.SpanAttributesFromRequest(req)...)

	subLog := log.With().Str("Url", url).Logger()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		subLog.Error().Err(err).Msg("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid status code")
		subLog.Error().Int("StatusCode", resp.StatusCode).Msg("HTTP request returned invalid status code")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read body")
		return nil, err
	}

	if err := cache.Set(ctx, key, body); err != nil {
		subLog.Warn().Err(err).Msg("could not cache response")
	}

	return body, nil
}
