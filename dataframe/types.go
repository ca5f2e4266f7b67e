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

package dataframe

import (
	"errors"
	"time"
)

// Series is a single named column of values indexed by strictly increasing dates.
// Operations on a series never modify the receiver; they return a new series.
type Series struct {
	Name  string
	Dates []time.Time
	Vals  []float64
}

// DataFrame stores a table of values organized by date
// the vals array is column major - e.g.,
// IBOV   PETR4
// 1      4
// 2      5
// 3      6
//
// Vals[0][0] = 1
// Vals[1][0] = 4
type DataFrame struct {
	Dates    []time.Time
	ColNames []string
	Vals     [][]float64
}

// SeriesMap holds a collection of series keyed by name (typically a ticker)
type SeriesMap map[string]*Series

const (
	DateFormat = "2006-01-02"
)

var (
	ErrDateIndexNotAligned = errors.New("date index does not align")
	ErrColumnNotFound      = errors.New("column not found")
	ErrLengthMismatch      = errors.New("dates and values have different lengths")
)
