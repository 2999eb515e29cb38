// Package sheet decodes uploaded spreadsheets into a header row and data rows.
//
// CSV files are read as UTF-8 (a leading byte-order mark is stripped and
// invalid bytes become U+FFFD). Files ending in .xls are read as legacy
// BIFF workbooks. Any other extension is treated as an XLSX workbook. Only
// the first sheet of a workbook is read.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/roster/internal/core"
)

// ErrEmptySheet is returned when the file holds no non-blank rows at all.
var ErrEmptySheet = errors.New("empty sheet")

// Format identifies how a file is decoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the decoder from the file extension.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xls":
		return FormatXLS
	}
	return FormatXLSX
}

// Parse decodes data as the format implied by name. The first non-blank row
// is the header; blank rows after it are dropped. A header with no data rows
// is returned as-is so the caller decides how to report it.
func Parse(name string, data []byte) ([]string, [][]core.Value, error) {
	var (
		grid [][]core.Value
		err  error
	)
	switch DetectFormat(name) {
	case FormatCSV:
		grid, err = readCSV(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parse csv %s: %w", name, err)
		}
	case FormatXLS:
		grid, err = readXLS(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parse xls %s: %w", name, err)
		}
	default:
		grid, err = readXLSX(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parse xlsx %s: %w", name, err)
		}
	}
	return split(grid)
}

func split(grid [][]core.Value) ([]string, [][]core.Value, error) {
	start := -1
	for i, row := range grid {
		if !isBlank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, ErrEmptySheet
	}

	header := make([]string, len(grid[start]))
	for i, v := range grid[start] {
		header[i] = v.String()
	}

	var records [][]core.Value
	for _, row := range grid[start+1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, row)
	}
	return header, records, nil
}

func isBlank(row []core.Value) bool {
	for _, v := range row {
		if strings.TrimSpace(v.String()) != "" {
			return false
		}
	}
	return true
}

func readCSV(data []byte) ([][]core.Value, error) {
	dec := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	r := csv.NewReader(dec)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]core.Value
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]core.Value, len(rec))
		for i, s := range rec {
			row[i] = core.Text(s)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func readXLSX(data []byte) ([][]core.Value, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}
	if len(file.Sheets) == 0 {
		return nil, nil
	}

	first := file.Sheets[0]
	grid := make([][]core.Value, 0, len(first.Rows))
	for _, r := range first.Rows {
		if r == nil {
			grid = append(grid, nil)
			continue
		}
		row := make([]core.Value, len(r.Cells))
		for i, c := range r.Cells {
			row[i] = cellValue(c)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// readXLS decodes a BIFF workbook. The decoder panics on some malformed
// streams, so panics are returned as errors.
func readXLS(data []byte) (grid [][]core.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	first := wb.GetSheet(0)
	if first == nil {
		return nil, nil
	}

	grid = make([][]core.Value, 0, int(first.MaxRow)+1)
	for i := 0; i <= int(first.MaxRow); i++ {
		r := first.Row(i)
		if r == nil {
			grid = append(grid, nil)
			continue
		}
		row := make([]core.Value, r.LastCol())
		for j := range row {
			row[j] = core.Text(r.Col(j))
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func cellValue(c *xlsx.Cell) core.Value {
	if c == nil || c.Value == "" {
		return core.Text("")
	}
	if c.Type() == xlsx.CellTypeNumeric {
		if f, err := c.Float(); err == nil {
			return core.Number(f)
		}
	}
	return core.Text(c.Value)
}
