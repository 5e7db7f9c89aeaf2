package calc

import (
	"math"
	"sort"
	"strings"
)

func registerLookup(r *Registry) {
	const cat = "lookup"
	r.add(cat, "ROW", row, 0, 1)
	r.add(cat, "COLUMN", column, 0, 1)
	r.add(cat, "ROWS", rows, 1, 1)
	r.add(cat, "COLUMNS", columns, 1, 1)
	r.add(cat, "CHOOSE", choose, 2, Unbounded)
	r.add(cat, "INDEX", index, 2, 3)
	r.add(cat, "HLOOKUP", hlookup, 3, 4)
	r.add(cat, "VLOOKUP", vlookup, 3, 4)
}

// refArg resolves args[i] as a reference. Non-reference arguments are an
// error.
func refArg(ctx *Context, args []Expr, i int, name string) (Reference, error) {
	ref, ok, err := ctx.Ref(args[i])
	if err != nil {
		return Reference{}, err
	}
	if !ok {
		return Reference{}, refErr("%s expects a reference, got %s", name, args[i].String())
	}
	return ref, nil
}

func row(ctx *Context, args []Expr) (any, error) {
	if len(args) == 0 {
		return float64(ctx.Row + 1), nil
	}
	ref, err := refArg(ctx, args, 0, "ROW")
	if err != nil {
		return nil, err
	}
	return float64(ref.Range.Top + 1), nil
}

func column(ctx *Context, args []Expr) (any, error) {
	if len(args) == 0 {
		return float64(ctx.Col + 1), nil
	}
	ref, err := refArg(ctx, args, 0, "COLUMN")
	if err != nil {
		return nil, err
	}
	return float64(ref.Range.Left + 1), nil
}

func rows(ctx *Context, args []Expr) (any, error) {
	ref, err := refArg(ctx, args, 0, "ROWS")
	if err != nil {
		return nil, err
	}
	return float64(ref.Range.Rows()), nil
}

func columns(ctx *Context, args []Expr) (any, error) {
	ref, err := refArg(ctx, args, 0, "COLUMNS")
	if err != nil {
		return nil, err
	}
	return float64(ref.Range.Cols()), nil
}

// choose picks the 1-based argument after the index. A chosen reference is
// returned undereferenced so it can feed range functions.
func choose(ctx *Context, args []Expr) (any, error) {
	i, err := intArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	if i < 1 || i >= len(args) {
		return nil, refErr("CHOOSE: index %d out of range", i)
	}
	if ref, ok, err := ctx.Ref(args[i]); err != nil || ok {
		return ref, err
	}
	return ctx.Eval(args[i])
}

// index returns the sub-reference at a 1-based row and column. A zero row
// or column selects the whole column or row; a single index into a
// one-row range counts columns.
func index(ctx *Context, args []Expr) (any, error) {
	ref, isRef, err := ctx.Ref(args[0])
	if err != nil {
		return nil, err
	}
	r, err := intArg(ctx, args, 1)
	if err != nil {
		return nil, err
	}
	c := 0
	if len(args) > 2 {
		if c, err = intArg(ctx, args, 2); err != nil {
			return nil, err
		}
	}
	if !isRef {
		if r <= 1 && c <= 1 {
			return ctx.Eval(args[0])
		}
		return nil, refErr("INDEX: position (%d, %d) out of range", r, c)
	}
	rng := ref.Range
	if len(args) == 2 && rng.Rows() == 1 {
		r, c = 1, r
	}
	if r < 0 || c < 0 || r > rng.Rows() || c > rng.Cols() {
		return nil, refErr("INDEX: position (%d, %d) out of range for %s", r, c, ref.String())
	}
	out := rng
	if r > 0 {
		out.Top = rng.Top + r - 1
		out.Bottom = out.Top
	}
	if c > 0 {
		out.Left = rng.Left + c - 1
		out.Right = out.Left
	} else if rng.Cols() == 1 {
		out.Right = out.Left
	}
	return Reference{Sheet: ref.Sheet, Range: out}, nil
}

func hlookup(ctx *Context, args []Expr) (any, error) {
	return tableLookup(ctx, args, "HLOOKUP", false)
}

func vlookup(ctx *Context, args []Expr) (any, error) {
	return tableLookup(ctx, args, "VLOOKUP", true)
}

// tableLookup searches the first row (or column, when vertical) of a
// table and returns the entry at the given 1-based offset in the matching
// column (or row).
func tableLookup(ctx *Context, args []Expr, name string, vertical bool) (any, error) {
	target, err := ctx.Eval(args[0])
	if err != nil {
		return nil, err
	}
	table, err := ctx.Table(args[1])
	if err != nil {
		return nil, err
	}
	offset, err := intArg(ctx, args, 2)
	if err != nil {
		return nil, err
	}
	approx, err := optBool(ctx, args, 3, true)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, refErr("%s: empty table", name)
	}
	span := len(table)
	if vertical {
		span = len(table[0])
	}
	if offset < 1 || offset > span {
		return nil, refErr("%s: index %d out of range", name, offset)
	}

	var keys []any
	if vertical {
		for _, r := range table {
			keys = append(keys, r[0])
		}
	} else {
		keys = table[0]
	}
	i, err := lookupIndex(Unwrap(target), keys, approx)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, refErr("%s: value %s not found", name, describe(Unwrap(target)))
	}
	if vertical {
		return table[i][offset-1], nil
	}
	return table[offset-1][i], nil
}

// lookupIndex finds target among keys. Exact mode returns the first equal
// key. Approximate mode walks the keys sorted descending, ties ordered
// toward the higher original index, and picks the first key not greater
// than target. -1 means no match.
func lookupIndex(target any, keys []any, approx bool) (int, error) {
	if !approx {
		for i, k := range keys {
			eq, err := applyBinary(OpEq, Unwrap(k), target)
			if err != nil {
				return -1, err
			}
			if b, _ := eq.(bool); b {
				return i, nil
			}
		}
		return -1, nil
	}

	order := make([]int, 0, len(keys))
	for i, k := range keys {
		if !isBlank(k) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		c := compareKeys(keys[order[a]], keys[order[b]])
		if c == 0 {
			return order[a] > order[b]
		}
		return c > 0
	})
	for _, i := range order {
		if sameKind(keys[i], target) && compareKeys(keys[i], target) <= 0 {
			return i, nil
		}
	}
	return -1, nil
}

// compareKeys orders numbers before text; text compares case-insensitively.
func compareKeys(a, b any) int {
	an, aNum := keyNumber(a)
	bn, bNum := keyNumber(b)
	switch {
	case aNum && bNum:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(strings.ToLower(toText(a)), strings.ToLower(toText(b)))
}

func keyNumber(v any) (float64, bool) {
	v = Unwrap(v)
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	if !isNumeric(v) {
		return 0, false
	}
	n, err := toNumber(v)
	return n, err == nil && !math.IsNaN(n)
}

func sameKind(a, b any) bool {
	_, aNum := keyNumber(a)
	_, bNum := keyNumber(b)
	return aNum == bNum
}
