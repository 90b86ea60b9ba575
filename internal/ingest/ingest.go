// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest reads PMIDs from uploaded spreadsheets. Excel workbooks
// (.xlsx) are read from their first sheet; CSV files from their only
// table. Either must carry a header row naming the PMID column.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoPMIDColumn is returned when the header row has no cell matching
	// the configured column name.
	ErrNoPMIDColumn = errors.New("no PMID column in header row")

	// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
	ErrUnsupportedFormat = errors.New("unsupported file format (want .xlsx or .csv)")

	// ErrEmptyInput is returned when the file has no header row at all.
	ErrEmptyInput = errors.New("input has no rows")
)

// integralFloat matches spreadsheet numbers such as "12345.0" that were
// stored as floats.
var integralFloat = regexp.MustCompile(`^(\d+)\.0+$`)

// ReadFile opens path and reads PMIDs from it, choosing the format by
// file extension.
func ReadFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), column)
}

// Read reads PMIDs from r. The filename selects the format by extension.
// Values come back in row order, normalised, with empty cells dropped.
func Read(r io.Reader, filename, column string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, column)
	case ".csv":
		return ReadCSV(r, column)
	default:
		return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
}

// ReadXLSX reads the PMID column from the first sheet of a workbook.
func ReadXLSX(r io.Reader, column string) ([]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return columnValues(rows, column)
}

// ReadCSV reads the PMID column from comma-separated input. Rows may have
// differing field counts.
func ReadCSV(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return columnValues(rows, column)
}

// columnValues finds column in the header row (case-insensitive) and
// returns its non-empty, normalised values.
func columnValues(rows [][]string, column string) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	idx := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w (looking for %q)", ErrNoPMIDColumn, column)
	}

	var ids []string
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if id := Normalize(row[idx]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Normalize trims a cell value and strips a zero fractional part left by
// numeric spreadsheet cells.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if m := integralFloat.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}
