package sheet

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tealeg/xlsx"

	"github.com/JonMunkholm/roster/internal/core"
)

func strs(row []core.Value) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = v.String()
	}
	return out
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"roster.csv", FormatCSV},
		{"ROSTER.CSV", FormatCSV},
		{"roster.xlsx", FormatXLSX},
		{"roster.xls", FormatXLS},
		{"ROSTER.XLS", FormatXLS},
		{"roster", FormatXLSX},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.name); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParse_CSV(t *testing.T) {
	data := "\ufeffName,Branch,Year\r\nAmy,CS,first\r\n\r\n\"Bo, Jr\",EE\r\n"

	header, rows, err := Parse("roster.csv", []byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := []string{"Name", "Branch", "Year"}; !reflect.DeepEqual(header, want) {
		t.Errorf("header = %q, want %q", header, want)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank line skipped)", len(rows))
	}
	if got, want := strs(rows[1]), []string{"Bo, Jr", "EE"}; !reflect.DeepEqual(got, want) {
		t.Errorf("row 2 = %q, want %q", got, want)
	}
	if rows[0][2].Kind != core.KindString {
		t.Errorf("csv cells should stay strings, got kind %v", rows[0][2].Kind)
	}
}

func TestParse_CSVInvalidUTF8(t *testing.T) {
	data := []byte("Name\nA\xffB\n")
	_, rows, err := Parse("x.csv", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := rows[0][0].String(); got != "A\uFFFDB" {
		t.Errorf("cell = %q, want replacement rune", got)
	}
}

func TestParse_CSVLazyQuotes(t *testing.T) {
	_, rows, err := Parse("x.csv", []byte("Name,Note\nAmy,say \"hi\" now\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := rows[0][1].String(); got != `say "hi" now` {
		t.Errorf("note = %q", got)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, data := range []string{"", "\ufeff", "\n\n,,\n"} {
		if _, _, err := Parse("x.csv", []byte(data)); !errors.Is(err, ErrEmptySheet) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptySheet", data, err)
		}
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	header, rows, err := Parse("x.csv", []byte("Name,Email\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(header) != 2 || len(rows) != 0 {
		t.Errorf("header=%q rows=%d", header, len(rows))
	}
	if _, err := core.BuildDataset(header, rows); !errors.Is(err, core.ErrNoData) {
		t.Errorf("BuildDataset() error = %v, want ErrNoData", err)
	}
}

func xlsxBytes(t *testing.T, build func(*xlsx.Sheet)) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Roster")
	if err != nil {
		t.Fatal(err)
	}
	build(sh)
	if _, err := f.AddSheet("Ignored"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParse_XLSX(t *testing.T) {
	data := xlsxBytes(t, func(sh *xlsx.Sheet) {
		h := sh.AddRow()
		h.AddCell().SetString("Name")
		h.AddCell().SetString("Year")
		h.AddCell().SetString("GPA")

		r := sh.AddRow()
		r.AddCell().SetString("Amy")
		r.AddCell().SetInt(2)
		r.AddCell().SetFloat(3.5)
	})

	header, rows, err := Parse("roster.xlsx", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := []string{"Name", "Year", "GPA"}; !reflect.DeepEqual(header, want) {
		t.Errorf("header = %q, want %q", header, want)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := rows[0][1]; got != core.Number(2) {
		t.Errorf("Year = %+v, want number 2", got)
	}
	if got := rows[0][2]; got != core.Number(3.5) {
		t.Errorf("GPA = %+v, want number 3.5", got)
	}
	if got := rows[0][0]; got != core.Text("Amy") {
		t.Errorf("Name = %+v", got)
	}
}

func TestParse_XLSXCorrupt(t *testing.T) {
	_, _, err := Parse("roster.xlsx", []byte("not a zip"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse xlsx") {
		t.Errorf("error = %v, want parse xlsx prefix", err)
	}
	if msg := core.MapError(err); msg.Code != "FILE003" {
		t.Errorf("MapError code = %s, want FILE003", msg.Code)
	}
}

func TestParse_XLSCorrupt(t *testing.T) {
	for _, data := range []string{"", "not a workbook"} {
		_, _, err := Parse("old.xls", []byte(data))
		if err == nil {
			t.Fatalf("Parse(%d bytes) succeeded, want error", len(data))
		}
		if !strings.Contains(err.Error(), "parse xls old.xls") {
			t.Errorf("error = %v, want parse xls prefix", err)
		}
		if msg := core.MapError(err); msg.Code != "FILE003" {
			t.Errorf("MapError code = %s, want FILE003", msg.Code)
		}
	}
}
