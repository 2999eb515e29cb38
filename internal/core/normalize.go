package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoData is returned when an uploaded sheet has a header but no data rows.
var ErrNoData = errors.New("no data found in sheet")

// yearOrdinals maps ordinal words and abbreviations to year numbers.
var yearOrdinals = map[string]float64{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"1st":    1,
	"2nd":    2,
	"3rd":    3,
	"4th":    4,
}

// isYearColumn reports whether a column receives year coercion.
func isYearColumn(key string) bool {
	return strings.EqualFold(strings.TrimSpace(key), "year")
}

// NormalizeYear coerces a year cell to an ordinal number.
//
// Numbers pass through. Strings are matched case-insensitively against the
// ordinal table ("first", "2nd", ...), then parsed for a leading integer
// ("3", "5th year"). Anything else, including zero, becomes Empty.
func NormalizeYear(v Value) Value {
	switch v.Kind {
	case KindNumber:
		return v
	case KindEmpty:
		return Empty
	}

	s := strings.ToLower(strings.TrimSpace(v.Str))
	if n, ok := yearOrdinals[s]; ok {
		return Number(n)
	}
	if n, ok := leadingInt(s); ok && n != 0 {
		return Number(n)
	}
	return Empty
}

// leadingInt parses an optional sign followed by decimal digits at the start
// of s. Digit runs too long for an int still parse, losing precision.
func leadingInt(s string) (float64, bool) {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeRow trims keys and string values and applies year coercion.
// The RowID is preserved, so normalizing twice yields the same row.
func NormalizeRow(row Row) Row {
	out := Row{ID: row.ID, Cells: make(map[string]Value, len(row.Cells))}
	for k, v := range row.Cells {
		key := strings.TrimSpace(k)
		if key != k {
			// An exact key wins over one that only matches after trimming.
			if _, exact := row.Cells[key]; exact {
				continue
			}
		}
		if v.Kind == KindString {
			v = Text(strings.TrimSpace(v.Str))
		}
		if isYearColumn(key) {
			v = NormalizeYear(v)
		}
		out.Cells[key] = v
	}
	return out
}

// NormalizeHeaders trims header names and replaces blank or duplicate names
// with Column<N>, where N is the 1-based column position.
func NormalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" || seen[name] {
			name = fmt.Sprintf("Column%d", i+1)
		}
		// A synthesized name can itself collide with a later real header.
		for seen[name] {
			name += "_"
		}
		seen[name] = true
		headers[i] = name
	}
	return headers
}

// BuildDataset turns a parsed header row and data rows into a normalized Dataset.
//
// Short rows are padded with Empty, cells past the last header are dropped,
// and rows receive RowIDs 1..n in sheet order. A sheet without data rows
// returns ErrNoData.
func BuildDataset(header []string, records [][]Value) (Dataset, error) {
	if len(header) == 0 || len(records) == 0 {
		return Dataset{}, ErrNoData
	}

	headers := NormalizeHeaders(header)
	rows := make([]Row, len(records))
	for i, rec := range records {
		cells := make(map[string]Value, len(headers))
		for j, h := range headers {
			v := Empty
			if j < len(rec) {
				v = rec[j]
			}
			if v.Kind == KindEmpty {
				v = Text("")
			}
			cells[h] = v
		}
		rows[i] = NormalizeRow(Row{ID: RowID(i + 1), Cells: cells})
	}

	return Dataset{Headers: headers, Rows: rows}, nil
}
