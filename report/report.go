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


// Package report writes analysis results to disk (CSV, JSON, PNG charts) and to the terminal.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// Table is any result that can be rendered as rows of strings
type Table interface {
	Columns() []string
	Records() [][]string
}

// Rows is a Table built from explicit columns and records
type Rows struct {
	Header []string
	Data   [][]string
}

func NewRows(header []string, records ...[]string) *Rows {
	return &Rows{
		Header: header,
		Data:   records,
	}
}

func (r *Rows) Columns() []string {
	return r.Header
}

func (r *Rows) Records() [][]string {
	return r.Data
}

// Append adds a record to the table
func (r *Rows) Append(record []string) {
	r.Data = append(r.Data, record)
}

func ensureDir(fn string) error {
	return os.MkdirAll(filepath.Dir(fn), 0o755)
}

// WriteCSV writes the table with a header row
func WriteCSV(fn string, t Table) error {
	if err := ensureDir(fn); err != nil {
		return err
	}

	fh, err := os.Create(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not create csv file")
		return err
	}
	defer fh.Close()

	if err := EncodeCSV(fh, t); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not write csv file")
		return err
	}

	log.Debug().Str("FileName", fn).Int("NumRows", len(t.Records())).Msg("wrote csv")
	return nil
}

// EncodeCSV writes the table to w
func EncodeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return cw.Error()
}

// WriteJSON writes v as indented JSON
func WriteJSON(fn string, v interface{}) error {
	if err := ensureDir(fn); err != nil {
		return err
	}

	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not serialize json")
		return err
	}

	return os.WriteFile(fn, body, 0o644)
}

// WriteText writes a plain text file
func WriteText(fn string, text string) error {
	if err := ensureDir(fn); err != nil {
		return err
	}
	return os.WriteFile(fn, []byte(text), 0o644)
}

// PrintTable renders the table to w in the terminal style used by every command
func PrintTable(w io.Writer, t Table) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Columns())
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.AppendBulk(t.Records())
	table.SetFooter(footer(len(t.Columns()), len(t.Records())))
	table.SetBorder(false)
	table.Render()
}

func footer(numCols, numRows int) []string {
	f := make([]string, numCols)
	if numCols == 0 {
		return f
	}
	f[0] = "Num Rows"
	if numCols > 1 {
		f[1] = fmt.Sprintf("%d", numRows)
	}
	return f
}
