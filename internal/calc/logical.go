package calc

import (
	"errors"
	"math"
)

func registerLogical(r *Registry) {
	const cat = "logical"
	r.add(cat, "AND", and, 1, Unbounded)
	r.add(cat, "OR", or, 1, Unbounded)
	r.add(cat, "NOT", not, 1, 1)
	r.add(cat, "IF", ifFunc, 2, 3)
	r.add(cat, "IFERROR", ifError, 2, 2)
	r.add(cat, "TRUE", constant(true), 0, 0)
	r.add(cat, "FALSE", constant(false), 0, 0)
}

func constant(v any) Func {
	return func(*Context, []Expr) (any, error) { return v, nil }
}

// and stops at the first false argument; ranges contribute every
// non-blank cell.
func and(ctx *Context, args []Expr) (any, error) {
	return logicalFold(ctx, args, false)
}

// or stops at the first true argument.
func or(ctx *Context, args []Expr) (any, error) {
	return logicalFold(ctx, args, true)
}

func logicalFold(ctx *Context, args []Expr, stopOn bool) (any, error) {
	for _, a := range args {
		vs, err := ctx.Values(a)
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			if isBlank(v) {
				continue
			}
			b, err := toBool(v)
			if err != nil {
				return nil, err
			}
			if b == stopOn {
				return stopOn, nil
			}
		}
	}
	return !stopOn, nil
}

func not(ctx *Context, args []Expr) (any, error) {
	b, err := ctx.Bool(args[0])
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// ifFunc evaluates only the branch selected by the condition.
func ifFunc(ctx *Context, args []Expr) (any, error) {
	cond, err := ctx.Bool(args[0])
	if err != nil {
		return nil, err
	}
	if cond {
		return ctx.Eval(args[1])
	}
	if len(args) < 3 {
		return false, nil
	}
	return ctx.Eval(args[2])
}

// ifError yields the fallback when the first argument fails with an engine
// error or evaluates to a non-finite number.
func ifError(ctx *Context, args []Expr) (any, error) {
	v, err := ctx.Eval(args[0])
	var calcErr *Error
	switch {
	case errors.As(err, &calcErr):
		return ctx.Eval(args[1])
	case err != nil:
		return nil, err
	}
	if n, ok := Unwrap(v).(float64); ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
		return ctx.Eval(args[1])
	}
	return v, nil
}
