package grid

import (
	"strconv"
	"strings"
)

// Sheet is a sparse grid of cells keyed by 0-based (row, col).
type Sheet struct {
	Name   string
	Cells  map[[2]int]Cell
	Hidden map[int]bool
}

// NewSheet returns an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:   name,
		Cells:  map[[2]int]Cell{},
		Hidden: map[int]bool{},
	}
}

// Set stores text at (row, col); empty text clears the cell.
func (s *Sheet) Set(row, col int, text string) {
	if text == "" {
		delete(s.Cells, [2]int{row, col})
		return
	}
	s.Cells[[2]int{row, col}] = Cell{Text: text}
}

// Get returns the raw text at (row, col).
func (s *Sheet) Get(row, col int) string {
	return s.Cells[[2]int{row, col}].Text
}

// SetName stores text using an A1-style name. It reports false for an
// invalid name.
func (s *Sheet) SetName(name, text string) bool {
	r, c, ok := ParseCellRef(name)
	if !ok {
		return false
	}
	s.Set(r, c, text)
	return true
}

// Bounds returns the highest used row and column, or -1, -1 for an empty sheet.
func (s *Sheet) Bounds() (int, int) {
	maxR, maxC := -1, -1
	for k := range s.Cells {
		if k[0] > maxR {
			maxR = k[0]
		}
		if k[1] > maxC {
			maxC = k[1]
		}
	}
	return maxR, maxC
}

// InsertRow shifts rows at or below idx down by one. Hidden marks move
// with their rows.
func (s *Sheet) InsertRow(idx int) {
	move := func(r, c int) (int, int, bool) {
		if r >= idx {
			return r + 1, c, true
		}
		return r, c, true
	}
	s.shift(move)
	s.shiftHidden(move)
}

// InsertCol shifts columns at or right of idx by one.
func (s *Sheet) InsertCol(idx int) {
	s.shift(func(r, c int) (int, int, bool) {
		if c >= idx {
			return r, c + 1, true
		}
		return r, c, true
	})
}

// DeleteRow removes row idx, including its hidden mark, and shifts the
// rows below it up.
func (s *Sheet) DeleteRow(idx int) {
	move := func(r, c int) (int, int, bool) {
		switch {
		case r == idx:
			return 0, 0, false
		case r > idx:
			return r - 1, c, true
		}
		return r, c, true
	}
	s.shift(move)
	s.shiftHidden(move)
}

// DeleteCol removes column idx and shifts the columns right of it left.
func (s *Sheet) DeleteCol(idx int) {
	s.shift(func(r, c int) (int, int, bool) {
		switch {
		case c == idx:
			return 0, 0, false
		case c > idx:
			return r, c - 1, true
		}
		return r, c, true
	})
}

func (s *Sheet) shift(move func(r, c int) (int, int, bool)) {
	next := make(map[[2]int]Cell, len(s.Cells))
	for k, v := range s.Cells {
		if r, c, keep := move(k[0], k[1]); keep {
			next[[2]int{r, c}] = v
		}
	}
	s.Cells = next
}

func (s *Sheet) shiftHidden(move func(r, c int) (int, int, bool)) {
	next := make(map[int]bool, len(s.Hidden))
	for r, hidden := range s.Hidden {
		if !hidden {
			continue
		}
		if nr, _, keep := move(r, 0); keep {
			next[nr] = true
		}
	}
	s.Hidden = next
}

// SetHidden hides or shows row.
func (s *Sheet) SetHidden(row int, hidden bool) {
	if s.Hidden == nil {
		s.Hidden = map[int]bool{}
	}
	if hidden {
		s.Hidden[row] = true
		return
	}
	delete(s.Hidden, row)
}

// Workbook is an ordered collection of sheets. The first sheet is active
// unless Active says otherwise.
type Workbook struct {
	Sheets []*Sheet
	Active int
}

// NewWorkbook creates a workbook with one sheet per name.
func NewWorkbook(names ...string) *Workbook {
	if len(names) == 0 {
		names = []string{"Sheet1"}
	}
	wb := &Workbook{}
	for _, n := range names {
		wb.Sheets = append(wb.Sheets, NewSheet(n))
	}
	return wb
}

// Sheet finds a sheet by case-insensitive name; "" selects the active sheet.
func (wb *Workbook) Sheet(name string) (*Sheet, bool) {
	if name == "" {
		if wb.Active < 0 || wb.Active >= len(wb.Sheets) {
			return nil, false
		}
		return wb.Sheets[wb.Active], true
	}
	for _, s := range wb.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// AddSheet appends a sheet, replacing any sheet with the same name.
func (wb *Workbook) AddSheet(s *Sheet) {
	for i, existing := range wb.Sheets {
		if strings.EqualFold(existing.Name, s.Name) {
			wb.Sheets[i] = s
			return
		}
	}
	wb.Sheets = append(wb.Sheets, s)
}

// ActiveSheet returns the active sheet.
func (wb *Workbook) ActiveSheet() *Sheet {
	s, _ := wb.Sheet("")
	return s
}

// CellValue returns the stored value at (row, col) of the named sheet. Raw
// reads convert literal text to float64, bool or string; formulas are
// returned as their "=..." text. Formatted reads return the text as typed.
func (wb *Workbook) CellValue(sheet string, row, col int, formatted bool) (any, bool) {
	s, ok := wb.Sheet(sheet)
	if !ok {
		return nil, false
	}
	cell, ok := s.Cells[[2]int{row, col}]
	if !ok || cell.Text == "" {
		if formatted {
			return "", true
		}
		return nil, true
	}
	if formatted || cell.IsFormula() {
		return cell.Text, true
	}
	return TypedValue(cell.Text), true
}

// RowHidden reports whether row is hidden in the named sheet.
func (wb *Workbook) RowHidden(sheet string, row int) bool {
	s, ok := wb.Sheet(sheet)
	if !ok {
		return false
	}
	return s.Hidden[row]
}

// TypedValue interprets literal cell text the way a spreadsheet does on entry.
func TypedValue(text string) any {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	if !strings.ContainsAny(t, "nNxX_") {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			return v
		}
	}
	switch strings.ToUpper(t) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return text
}
