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
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-indices/concentration"
	"github.com/penny-vault/pv-indices/observability/opentelemetry"
)

var b3URL = "https://cotacao.b3.com.br/mds/api/v1/IndexComposition"

var b3Headers = map[string]string{
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"Referer":         "https://www.b3.com.br/",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-origin",
}

// Percent is a composition weight in percent. B3 sends it either as a JSON number or as a
// string that may use a decimal comma.
type Percent float64

func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(unquoted), ",", ".")
		if raw == "" {
			*p = 0
			return nil
		}
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid percentage %s", ErrUnsupportedFormat, string(data))
	}
	*p = Percent(val)
	return nil
}

type Constituent struct {
	Symbol      string  `json:"symb"`
	Description string  `json:"desc"`
	Percent     Percent `json:"indxCmpnPctg"`
}

type IndexInfo struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

type CompositionMsg struct {
	DateTime string `json:"dtTm"`
}

// IndexComposition is the theoretical portfolio published by B3 for an index
type IndexComposition struct {
	Index          IndexInfo      `json:"Index"`
	UnderlyingList []*Constituent `json:"UnderlyingList"`
	Msg            CompositionMsg `json:"Msg"`
}

// ParseComposition decodes a B3 IndexComposition payload
func ParseComposition(body []byte) (*IndexComposition, error) {
	comp := &IndexComposition{}
	if err := json.Unmarshal(body, comp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}
	return comp, nil
}

// Weights converts constituent percentages into fractional weights keyed by symbol.
// Symbols listed more than once are summed.
func (comp *IndexComposition) Weights() concentration.Weights {
	weights := make(concentration.Weights, len(comp.UnderlyingList))
	for _, c := range comp.UnderlyingList {
		sym := strings.ToUpper(strings.TrimSpace(c.Symbol))
		weights[sym] += float64(c.Percent) / 100.0
	}
	return weights
}

// Symbols returns the constituent symbols sorted by descending weight
func (comp *IndexComposition) Symbols() []string {
	constituents := make([]*Constituent, len(comp.UnderlyingList))
	copy(constituents, comp.UnderlyingList)
	sort.SliceStable(constituents, func(i, j int) bool {
		return constituents[i].Percent > constituents[j].Percent
	})

	symbols := make([]string, 0, len(constituents))
	for _, c := range constituents {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(c.Symbol)))
	}
	return symbols
}

// B3 downloads index compositions and keeps a copy in the store
type B3 struct {
	store *Store
	cache *Cache
}

func NewB3(store *Store, cache *Cache) *B3 {
	return &B3{
		store: store,
		cache: cache,
	}
}

// Fetch downloads the current composition of index and returns the decoded value along
// with the raw payload
func (b3 *B3) Fetch(ctx context.Context, index string, force bool) (*IndexComposition, []byte, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "b3.Fetch")
	defer span.End()

	index = strings.ToUpper(index)
	span.SetAttributes(attribute.String("Index", index))
	subLog := log.With().Str("Index", index).Logger()

	cache := b3.cache
	if force {
		cache = nil
	}

	url := fmt.Sprintf("%s/%s", b3URL, index)
	body, err := fetch(ctx, url, b3Headers, cache)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "composition download failed")
		subLog.Error().Err(err).Msg("could not download index composition")
		return nil, nil, err
	}

	comp, err := ParseComposition(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse composition")
		subLog.Error().Err(err).Msg("could not parse index composition")
		return nil, nil, err
	}

	if len(comp.UnderlyingList) == 0 {
		subLog.Warn().Msg("composition has no constituents")
	}

	return comp, body, nil
}

// Composition returns the stored composition of index. When there is none, or force is set,
// it is downloaded from B3 and saved first.
func (b3 *B3) Composition(ctx context.Context, index string, force bool) (*IndexComposition, error) {
	index = strings.ToUpper(index)
	if !force && b3.store.HasComposition(index) {
		log.Info().Str("Index", index).Str("FileName", b3.store.CompositionPath(index)).Msg("loading local composition")
		return b3.store.LoadComposition(index)
	}

	comp, raw, err := b3.Fetch(ctx, index, force)
	if err != nil {
		return nil, err
	}

	if err := b3.store.SaveComposition(index, raw); err != nil {
		log.Error().Err(err).Str("Index", index).Msg("could not save composition")
		return nil, err
	}
	log.Info().Str("Index", index).Int("NumConstituents", len(comp.UnderlyingList)).Msg("saved composition")

	return comp, nil
}
