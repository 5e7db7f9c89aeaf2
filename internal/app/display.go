package app

import (
	"math"

	"gridcalc/internal/calc"
)

// DisplayValue renders an evaluated cell for the grid. Results tagged with
// a display format use it; non-finite numbers show as spreadsheet error
// codes.
func DisplayValue(v any) string {
	format := ""
	if f, ok := v.(calc.Formatted); ok {
		v, format = f.Value, f.Format
	}
	if n, ok := v.(float64); ok {
		switch {
		case math.IsNaN(n):
			return "#VALUE!"
		case math.IsInf(n, 0):
			return "#DIV/0!"
		}
	}
	return calc.Format(v, format)
}
