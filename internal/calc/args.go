package calc

import (
	"math"
	"time"
)

// optNumber evaluates args[i] as a number, or returns def when the
// argument is absent.
func optNumber(ctx *Context, args []Expr, i int, def float64) (float64, error) {
	if i >= len(args) {
		return def, nil
	}
	return ctx.Number(args[i])
}

func optBool(ctx *Context, args []Expr, i int, def bool) (bool, error) {
	if i >= len(args) {
		return def, nil
	}
	return ctx.Bool(args[i])
}

// intArg evaluates args[i] as a number truncated toward zero.
func intArg(ctx *Context, args []Expr, i int) (int, error) {
	n, err := ctx.Number(args[i])
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) {
		return 0, convErr("expected a number for parameter %d", i+1)
	}
	// clamp before converting; out-of-range float to int is undefined
	return int(math.Trunc(math.Max(math.MinInt32, math.Min(math.MaxInt32, n)))), nil
}

// numberArgs evaluates args as numbers, used by fixed-arity functions.
func numberArgs(ctx *Context, args []Expr) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		n, err := ctx.Number(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// collectNumbers gathers the values aggregates operate on. Cells of a
// range contribute only when they hold numbers, dates or numeric text;
// directly passed scalars are coerced, so =SUM(TRUE,"2") is 3.
func collectNumbers(ctx *Context, args []Expr, skipHidden bool) ([]float64, error) {
	var out []float64
	for _, a := range args {
		ref, isRef, err := ctx.Ref(a)
		if err != nil {
			return nil, err
		}
		if !isRef {
			v, err := ctx.Eval(a)
			if err != nil {
				return nil, err
			}
			if isBlank(v) {
				continue
			}
			n, err := toNumber(v)
			if err != nil {
				return nil, err
			}
			if !math.IsNaN(n) {
				out = append(out, n)
			}
			continue
		}
		rows, err := ctx.cells(ref, skipHidden)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			for _, v := range row {
				if !isNumeric(v) {
					continue
				}
				n, err := toNumber(v)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// collectValues flattens every argument, expanding references.
func collectValues(ctx *Context, args []Expr, skipHidden bool) ([]any, error) {
	var out []any
	for _, a := range args {
		ref, isRef, err := ctx.Ref(a)
		if err != nil {
			return nil, err
		}
		if !isRef {
			v, err := ctx.Eval(a)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		rows, err := ctx.cells(ref, skipHidden)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, row...)
		}
	}
	return out, nil
}

// wallDate returns the wall-clock fields of t in UTC, the zone all
// serial conversions use.
func wallDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
