package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnNames(t *testing.T) {
	for col, name := range map[int]string{0: "A", 25: "Z", 26: "AA", 701: "ZZ", 702: "AAA"} {
		assert.Equal(t, name, ColToName(col))
		got, ok := NameToCol(name)
		require.True(t, ok, name)
		assert.Equal(t, col, got)
	}
	_, ok := NameToCol("A1")
	assert.False(t, ok)
	_, ok = NameToCol("ZZZZ")
	assert.False(t, ok)
	assert.Equal(t, "?", ColToName(-1))
}

func TestParseCellRef(t *testing.T) {
	tests := []struct {
		name     string
		row, col int
		ok       bool
	}{
		{"A1", 0, 0, true},
		{"b12", 11, 1, true},
		{"$C$3", 2, 2, true},
		{"Data!AA10", 9, 26, true},
		{"A0", 0, 0, false},
		{"1A", 0, 0, false},
		{"A", 0, 0, false},
		{"A1B", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, col, ok := ParseCellRef(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.row, row)
				assert.Equal(t, tt.col, col)
			}
		})
	}
	assert.Equal(t, "AA10", ColRowToName(26, 9))
}

func TestSheetStructuralEdits(t *testing.T) {
	s := NewSheet("S")
	s.Set(0, 0, "a")
	s.Set(1, 0, "b")
	s.Set(1, 1, "c")
	s.Set(2, 2, "d")

	s.InsertRow(1)
	assert.Equal(t, "a", s.Get(0, 0))
	assert.Equal(t, "", s.Get(1, 0))
	assert.Equal(t, "b", s.Get(2, 0))
	assert.Equal(t, "d", s.Get(3, 2))

	s.DeleteRow(2)
	assert.Equal(t, "", s.Get(2, 0))
	assert.Equal(t, "d", s.Get(2, 2))

	s.InsertCol(0)
	assert.Equal(t, "a", s.Get(0, 1))
	s.DeleteCol(1)
	assert.Equal(t, "", s.Get(0, 0))
	assert.Equal(t, "d", s.Get(2, 2))

	r, c := s.Bounds()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)

	r, c = NewSheet("empty").Bounds()
	assert.Equal(t, -1, r)
	assert.Equal(t, -1, c)
}

func TestWorkbookCellValue(t *testing.T) {
	wb := NewWorkbook("Sheet1", "Data")
	data, ok := wb.Sheet("data")
	require.True(t, ok)
	require.True(t, data.SetName("A1", "42"))
	require.True(t, data.SetName("A2", "=A1*2"))
	require.True(t, data.SetName("A3", "true"))
	require.True(t, data.SetName("A4", "0x10"))
	data.Hidden[3] = true

	tests := []struct {
		row       int
		formatted bool
		want      any
	}{
		{0, false, 42.0},
		{0, true, "42"},
		{1, false, "=A1*2"},
		{2, false, true},
		{3, false, "0x10"},
		{4, false, nil},
		{4, true, ""},
	}
	for _, tt := range tests {
		got, ok := wb.CellValue("Data", tt.row, 0, tt.formatted)
		require.True(t, ok)
		assert.Equal(t, tt.want, got, "row %d", tt.row)
	}

	_, ok = wb.CellValue("Missing", 0, 0, false)
	assert.False(t, ok)
	assert.True(t, wb.RowHidden("DATA", 3))
	assert.False(t, wb.RowHidden("Missing", 3))
	assert.Equal(t, "Sheet1", wb.ActiveSheet().Name)

	wb.AddSheet(NewSheet("DATA"))
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	if diff := cmp.Diff([]string{"Sheet1", "DATA"}, names); diff != "" {
		t.Errorf("sheets (-want +got):\n%s", diff)
	}
}

func TestHiddenRowsFollowStructuralEdits(t *testing.T) {
	s := NewSheet("S")
	s.SetHidden(1, true)
	s.SetHidden(4, true)
	s.SetHidden(6, true)
	s.SetHidden(6, false)

	s.InsertRow(2)
	assert.Equal(t, map[int]bool{1: true, 5: true}, s.Hidden)

	s.DeleteRow(1)
	assert.Equal(t, map[int]bool{4: true}, s.Hidden)

	s.DeleteRow(0)
	assert.Equal(t, map[int]bool{3: true}, s.Hidden)

	// column edits leave hidden rows alone
	s.InsertCol(0)
	s.DeleteCol(0)
	assert.Equal(t, map[int]bool{3: true}, s.Hidden)

	var bare Sheet
	bare.SetHidden(2, true)
	assert.True(t, bare.Hidden[2])
}
