package grid

import (
	"strconv"
	"strings"
)

// Cell holds what the user typed into a cell.
type Cell struct {
	Text string
}

// IsFormula reports whether the cell holds a formula rather than a literal.
func (c Cell) IsFormula() bool {
	return strings.HasPrefix(c.Text, "=")
}

// MaxRows and MaxCols bound the addressable area of a sheet.
const (
	MaxRows = 1048576
	MaxCols = 16384
)

// ColToName converts a 0-based column to its letters: 0 -> A, 26 -> AA.
func ColToName(col int) string {
	if col < 0 {
		return "?"
	}
	var buf [8]byte
	i := len(buf)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// NameToCol is the inverse of ColToName. Letters are case-insensitive.
func NameToCol(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	col := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		col = col*26 + int(r-'A') + 1
		if col > MaxCols {
			return 0, false
		}
	}
	return col - 1, true
}

// ColRowToName builds an A1 name from a 0-based column and row.
func ColRowToName(col, row int) string {
	return ColToName(col) + strconv.Itoa(row+1)
}

// ParseCellRef parses an A1 name into 0-based (row, col). A sheet prefix
// ("Data!B2") and '$' markers are ignored.
func ParseCellRef(name string) (int, int, bool) {
	if i := strings.LastIndexByte(name, '!'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), "$", "")

	split := strings.IndexFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return 0, 0, false
	}
	col, ok := NameToCol(name[:split])
	if !ok {
		return 0, 0, false
	}
	digits := name[split:]
	if strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 || row > MaxRows {
		return 0, 0, false
	}
	return row - 1, col, true
}
