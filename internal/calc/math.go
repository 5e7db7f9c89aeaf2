package calc

import (
	"math"
	"strconv"
	"strings"
)

func registerMath(r *Registry) {
	const cat = "math"
	unary := map[string]func(float64) float64{
		"ABS":     math.Abs,
		"ACOS":    math.Acos,
		"ASIN":    math.Asin,
		"ATAN":    math.Atan,
		"COS":     math.Cos,
		"SIN":     math.Sin,
		"TAN":     math.Tan,
		"COSH":    math.Cosh,
		"SINH":    math.Sinh,
		"TANH":    math.Tanh,
		"EXP":     math.Exp,
		"LN":      math.Log,
		"LOG10":   math.Log10,
		"SQRT":    math.Sqrt,
		"INT":     math.Floor,
		"DEGREES": func(x float64) float64 { return x * 180 / math.Pi },
		"RADIANS": func(x float64) float64 { return x * math.Pi / 180 },
		"SIGN": func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return 0
		},
	}
	for name, fn := range unary {
		r.add(cat, name, unaryFunc(fn), 1, 1)
	}
	r.add(cat, "PI", func(*Context, []Expr) (any, error) { return math.Pi, nil }, 0, 0)
	r.add(cat, "ATAN2", atan2, 2, 2)
	r.add(cat, "LOG", logBase, 1, 2)
	r.add(cat, "POWER", binaryOp(OpPow), 2, 2)
	r.add(cat, "MOD", binaryOp(OpMod), 2, 2)
	r.add(cat, "FLOOR", roundTo(math.Floor), 1, 2)
	r.add(cat, "CEILING", roundTo(math.Ceil), 1, 2)
	r.add(cat, "TRUNC", trunc, 1, 2)
	r.add(cat, "ROUND", rounding(roundHalfAway), 1, 2)
	r.add(cat, "ROUNDDOWN", rounding(math.Trunc), 1, 2)
	r.add(cat, "ROUNDUP", rounding(roundAway), 1, 2)
}

func unaryFunc(fn func(float64) float64) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		x, err := ctx.Number(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

// binaryOp exposes an infix operator as a two-parameter function.
func binaryOp(op Op) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		l, err := ctx.Eval(args[0])
		if err != nil {
			return nil, err
		}
		r, err := ctx.Eval(args[1])
		if err != nil {
			return nil, err
		}
		return applyBinary(op, l, r)
	}
}

// atan2 takes (x, y) in spreadsheet order.
func atan2(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args)
	if err != nil {
		return nil, err
	}
	if xs[0] == 0 && xs[1] == 0 {
		return nil, convErr("ATAN2 is undefined for (0, 0)")
	}
	return math.Atan2(xs[1], xs[0]), nil
}

func logBase(ctx *Context, args []Expr) (any, error) {
	x, err := ctx.Number(args[0])
	if err != nil {
		return nil, err
	}
	base, err := optNumber(ctx, args, 1, 10)
	if err != nil {
		return nil, err
	}
	return math.Log(x) / math.Log(base), nil
}

// roundTo rounds to a multiple of the optional significance.
func roundTo(fn func(float64) float64) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		x, err := ctx.Number(args[0])
		if err != nil {
			return nil, err
		}
		sig, err := optNumber(ctx, args, 1, 1)
		if err != nil {
			return nil, err
		}
		if sig == 0 {
			return 0.0, nil
		}
		return fn(snap(x/sig)) * sig, nil
	}
}

func trunc(ctx *Context, args []Expr) (any, error) {
	x, err := ctx.Number(args[0])
	if err != nil {
		return nil, err
	}
	digits, err := optNumber(ctx, args, 1, 0)
	if err != nil {
		return nil, err
	}
	p := math.Pow(10, math.Trunc(digits))
	return math.Trunc(snap(x*p)) / p, nil
}

// rounding builds ROUND-style functions. The result carries a display
// format showing the requested number of decimals.
// maxRoundDigits is the most decimal places a float64 can carry.
const maxRoundDigits = 15

func rounding(fn func(float64) float64) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		x, err := ctx.Number(args[0])
		if err != nil {
			return nil, err
		}
		digits, err := optNumber(ctx, args, 1, 0)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(digits) {
			return nil, convErr("expected a number of digits")
		}
		d := int(math.Trunc(math.Max(-maxRoundDigits, math.Min(maxRoundDigits, digits))))
		p := math.Pow(10, float64(d))
		return Formatted{Value: fn(snap(x*p)) / p, Format: decimalFormat(d)}, nil
	}
}

// decimalFormat returns "0" or "0." followed by n zeros.
func decimalFormat(n int) string {
	if n <= 0 {
		return "0"
	}
	return "0." + strings.Repeat("0", n)
}

func roundHalfAway(x float64) float64 { return math.Round(x) }

func roundAway(x float64) float64 {
	if x < 0 {
		return -math.Ceil(-x)
	}
	return math.Ceil(x)
}

// snap rounds to 15 significant digits, absorbing binary representation
// error so that 2.345*100 rounds to 235 and 1.1*10 rounds up to 11.
func snap(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', 15, 64), 64)
	if err != nil {
		return x
	}
	return v
}
