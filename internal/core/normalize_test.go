package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeYear(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  Value
	}{
		{"number passes through", Number(3), Number(3)},
		{"first", Text("first"), Number(1)},
		{"Second mixed case", Text("Second"), Number(2)},
		{"THIRD with spaces", Text("  THIRD "), Number(3)},
		{"fourth", Text("fourth"), Number(4)},
		{"1st", Text("1st"), Number(1)},
		{"2nd", Text("2nd"), Number(2)},
		{"3rd", Text("3RD"), Number(3)},
		{"4th", Text("4th"), Number(4)},
		{"plain integer", Text("2"), Number(2)},
		{"leading integer", Text("5th"), Number(5)},
		{"integer with suffix text", Text("3 year"), Number(3)},
		{"zero becomes empty", Text("0"), Empty},
		{"negative integer", Text("-2"), Number(-2)},
		{"integer past int32", Text("3000000000"), Number(3e9)},
		{"integer past int64", Text("99999999999999999999th"), Number(1e20)},
		{"word not in table", Text("fifth"), Empty},
		{"garbage", Text("n/a"), Empty},
		{"empty string", Text(""), Empty},
		{"empty cell", Empty, Empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeYear(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeYear(%+v) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRow(t *testing.T) {
	row := Row{
		ID: 7,
		Cells: map[string]Value{
			" Name ":  Text("  Amy "),
			"year":    Text("first"),
			"Branch":  Text(" CS"),
			"Credits": Number(12),
		},
	}

	got := NormalizeRow(row)

	if got.ID != 7 {
		t.Errorf("ID = %d, want 7", got.ID)
	}
	want := map[string]Value{
		"Name":    Text("Amy"),
		"year":    Number(1),
		"Branch":  Text("CS"),
		"Credits": Number(12),
	}
	if !reflect.DeepEqual(got.Cells, want) {
		t.Errorf("Cells = %+v, want %+v", got.Cells, want)
	}

	again := NormalizeRow(got)
	if !reflect.DeepEqual(again, got) {
		t.Errorf("NormalizeRow is not idempotent: %+v != %+v", again, got)
	}
}

func TestNormalizeRow_ExactKeyWins(t *testing.T) {
	row := Row{ID: 1, Cells: map[string]Value{
		"Name":  Text("exact"),
		"Name ": Text("padded"),
	}}
	got := NormalizeRow(row)
	if v := got.Get("Name"); v != Text("exact") {
		t.Errorf("Name = %+v, want exact", v)
	}
	if len(got.Cells) != 1 {
		t.Errorf("len(Cells) = %d, want 1", len(got.Cells))
	}
}

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{" Name ", "", "Email", "Email", "Column2"})
	want := []string{"Name", "Column2", "Email", "Column4", "Column5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeHeaders() = %q, want %q", got, want)
	}
}

func TestBuildDataset(t *testing.T) {
	header := []string{"Name", "Branch", "Year", "Interests"}
	records := [][]Value{
		{Text("Amy"), Text("CS"), Text("first"), Text("AI; Web")},
		{Text("Bo"), Text("EE"), Text("2nd")},
		{Text("Cy"), Text("ME"), Number(3), Text("Robotics"), Text("extra")},
	}

	ds, err := BuildDataset(header, records)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	if !reflect.DeepEqual(ds.Headers, header) {
		t.Errorf("Headers = %q, want %q", ds.Headers, header)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(ds.Rows))
	}

	for i, r := range ds.Rows {
		if r.ID != RowID(i+1) {
			t.Errorf("Rows[%d].ID = %d, want %d", i, r.ID, i+1)
		}
		if len(r.Cells) != len(header) {
			t.Errorf("Rows[%d] has %d cells, want %d", i, len(r.Cells), len(header))
		}
		for _, h := range header {
			if _, ok := r.Cells[h]; !ok {
				t.Errorf("Rows[%d] missing key %q", i, h)
			}
		}
	}

	if got := ds.Rows[0].Get("Year"); got != Number(1) {
		t.Errorf("Amy Year = %+v, want 1", got)
	}
	if got := ds.Rows[1].Get("Year"); got != Number(2) {
		t.Errorf("Bo Year = %+v, want 2", got)
	}
	if got := ds.Rows[1].Get("Interests"); got.String() != "" {
		t.Errorf("padded cell = %q, want empty", got.String())
	}
}

func TestBuildDataset_NoData(t *testing.T) {
	if _, err := BuildDataset([]string{"Name"}, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("BuildDataset(no rows) error = %v, want ErrNoData", err)
	}
	if _, err := BuildDataset(nil, [][]Value{{Text("x")}}); !errors.Is(err, ErrNoData) {
		t.Errorf("BuildDataset(no header) error = %v, want ErrNoData", err)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Empty, ""},
		{Text("abc"), "abc"},
		{Number(2), "2"},
		{Number(2.5), "2.5"},
		{Number(-10), "-10"},
		{Number(1234567), "1234567"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}
