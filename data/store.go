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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-indices/common"
	"github.com/penny-vault/pv-indices/dataframe"
)

// Group is a named list of symbols analyzed together
type Group struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type groupsFile struct {
	Rows []*Group `json:"rows"`
}

// Store reads and writes the on-disk data directory:
//
//	{dir}/prices/{SYMBOL}.csv
//	{dir}/cotacoes_{INDEX}.json
//	{dir}/grupos.json
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (store *Store) PricesDir() string {
	return filepath.Join(store.Dir, "prices")
}

func (store *Store) PricePath(symbol string) string {
	return filepath.Join(store.PricesDir(), fmt.Sprintf("%s.csv", strings.ToUpper(symbol)))
}

func (store *Store) CompositionPath(index string) string {
	return filepath.Join(store.Dir, fmt.Sprintf("cotacoes_%s.json", strings.ToUpper(index)))
}

func (store *Store) GroupsPath() string {
	return filepath.Join(store.Dir, "grupos.json")
}

// LoadPrices reads the close (or adj_close) column of the symbol's price file. Returns an
// error wrapping ErrNotFound when no file exists.
func (store *Store) LoadPrices(ctx context.Context, symbol string) (*dataframe.Series, error) {
	symbol = strings.ToUpper(symbol)
	fn := store.PricePath(symbol)
	body, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: price file %s", ErrNotFound, fn)
		}
		return nil, err
	}

	df, err := readCSV(ctx, body)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not parse price file")
		return nil, err
	}

	dateCol := columnIndex(df, "date")
	if dateCol < 0 {
		return nil, fmt.Errorf("%w: date in %s", ErrMissingColumn, fn)
	}
	closeCol := columnIndex(df, "close", "adj_close")
	if closeCol < 0 {
		return nil, fmt.Errorf("%w: close in %s", ErrMissingColumn, fn)
	}

	return seriesFromCSV(df, symbol, dateCol, closeCol).DropNaN(), nil
}

// SavePrices writes the series to the symbol's price file as date,close
func (store *Store) SavePrices(ctx context.Context, symbol string, prices *dataframe.Series) error {
	if err := os.MkdirAll(store.PricesDir(), 0o755); err != nil {
		return err
	}

	body, err := writeCSV(ctx, prices, "close")
	if err != nil {
		return err
	}

	fn := store.PricePath(symbol)
	log.Debug().Str("FileName", fn).Int("NumRows", prices.Len()).Msg("saving prices")
	return os.WriteFile(fn, body, 0o644)
}

// ListSymbols returns the symbols with a price file in the store, sorted
func (store *Store) ListSymbols() ([]string, error) {
	entries, err := os.ReadDir(store.PricesDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		symbols = append(symbols, strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// HasComposition reports whether a composition file exists for index
func (store *Store) HasComposition(index string) bool {
	_, err := os.Stat(store.CompositionPath(index))
	return err == nil
}

// LoadComposition parses the stored composition of index
func (store *Store) LoadComposition(index string) (*IndexComposition, error) {
	fn := store.CompositionPath(index)
	body, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: composition file %s", ErrNotFound, fn)
		}
		return nil, err
	}
	return ParseComposition(body)
}

// SaveComposition writes the raw B3 payload for index, indented
func (store *Store) SaveComposition(index string, raw []byte) error {
	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("%w: composition payload is not JSON: %s", ErrUnsupportedFormat, err)
	}
	return os.WriteFile(store.CompositionPath(index), buf.Bytes(), 0o644)
}

// LoadGroups reads grupos.json. Symbols are upper-cased.
func (store *Store) LoadGroups() ([]*Group, error) {
	body, err := os.ReadFile(store.GroupsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, store.GroupsPath())
		}
		return nil, err
	}

	var groups groupsFile
	if err := json.Unmarshal(body, &groups); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}

	for _, group := range groups.Rows {
		common.ArrToUpper(group.Symbols)
	}
	return groups.Rows, nil
}

// Group returns the named group from grupos.json
func (store *Store) Group(name string) (*Group, error) {
	groups, err := store.LoadGroups()
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		if strings.EqualFold(group.Name, name) {
			return group, nil
		}
	}
	return nil, fmt.Errorf("%w: group %s", ErrNotFound, name)
}

// GroupSymbols returns the de-duplicated, sorted symbols of the named groups. With no
// names every group is included.
func (store *Store) GroupSymbols(names ...string) ([]string, error) {
	groups, err := store.LoadGroups()
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[strings.ToLower(name)] = true
	}

	seen := make(map[string]bool)
	symbols := make([]string, 0)
	for _, group := range groups {
		if len(names) > 0 && !want[strings.ToLower(group.Name)] {
			continue
		}
		for _, sym := range group.Symbols {
			if !seen[sym] {
				seen[sym] = true
				symbols = append(symbols, sym)
			}
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
