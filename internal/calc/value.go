package calc

import (
	"fmt"
	"strings"

	"gridcalc/internal/grid"
)

// Formatted tags a result with the display format a function suggests for
// it, e.g. a date constructor or a rounded number.
type Formatted struct {
	Value  any
	Format string
}

func (f Formatted) String() string {
	return Format(f.Value, f.Format)
}

// Unwrap strips a Formatted wrapper, returning the plain value.
func Unwrap(v any) any {
	if f, ok := v.(Formatted); ok {
		return f.Value
	}
	return v
}

// CellRange is a rectangular block of cells. Rows and columns are 0-based
// and always normalized so Top <= Bottom and Left <= Right.
type CellRange struct {
	Top, Left, Bottom, Right int
}

// NewCellRange builds a normalized range from two corners.
func NewCellRange(r1, c1, r2, c2 int) CellRange {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return CellRange{Top: r1, Left: c1, Bottom: r2, Right: c2}
}

// Rows returns the number of rows covered.
func (r CellRange) Rows() int { return r.Bottom - r.Top + 1 }

// Cols returns the number of columns covered.
func (r CellRange) Cols() int { return r.Right - r.Left + 1 }

// Single reports whether the range is one cell.
func (r CellRange) Single() bool { return r.Top == r.Bottom && r.Left == r.Right }

func (r CellRange) String() string {
	tl := grid.ColRowToName(r.Left, r.Top)
	if r.Single() {
		return tl
	}
	return tl + ":" + grid.ColRowToName(r.Right, r.Bottom)
}

// Reference is a range bound to a sheet. It is what a range expression
// evaluates to before it is dereferenced, and what INDEX returns.
type Reference struct {
	Sheet string
	Range CellRange
}

func (r Reference) String() string {
	if r.Sheet == "" {
		return r.Range.String()
	}
	return quoteSheet(r.Sheet) + "!" + r.Range.String()
}

func quoteSheet(name string) string {
	for _, ch := range name {
		if !isIdentRune(ch) || ch == '$' || ch == ':' || ch == '!' {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

// describe renders a value for diagnostics.
func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "blank"
	case string:
		return fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("%v", v)
}
