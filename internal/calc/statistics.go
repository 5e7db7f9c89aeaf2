package calc

import (
	"math"
	"sort"
	"strings"
)

func registerStatistics(r *Registry) {
	const cat = "statistics"
	r.add(cat, "COUNT", count, 1, Unbounded)
	r.add(cat, "COUNTA", countA, 1, Unbounded)
	r.add(cat, "COUNTBLANK", countBlank, 1, Unbounded)
	r.add(cat, "COUNTIF", countIf, 2, 2)
	r.add(cat, "COUNTIFS", countIfs, 2, Unbounded)
	r.add(cat, "SUMIF", sumIf, 2, 3)
	r.add(cat, "SUMIFS", sumIfs, 3, Unbounded)
	r.add(cat, "RANK", rank, 2, 3)
	r.add(cat, "PRODUCT", numbersFunc(product), 1, Unbounded)
	r.add(cat, "SUBTOTAL", subtotal, 2, Unbounded)
	r.add(cat, "DCOUNT", dcount, 2, 3)
}

func count(ctx *Context, args []Expr) (any, error) {
	xs, err := collectNumbers(ctx, args, false)
	if err != nil {
		return nil, err
	}
	return float64(len(xs)), nil
}

func countA(ctx *Context, args []Expr) (any, error) {
	vs, err := collectValues(ctx, args, false)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, v := range vs {
		if !isBlank(v) {
			n++
		}
	}
	return float64(n), nil
}

func countBlank(ctx *Context, args []Expr) (any, error) {
	vs, err := collectValues(ctx, args, false)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, v := range vs {
		if isBlank(v) {
			n++
		}
	}
	return float64(n), nil
}

// criteriaPair is one (range, criterion) argument pair of the *IF(S)
// functions, already resolved.
type criteriaPair struct {
	values []any
	crit   criterion
}

func resolvePairs(ctx *Context, args []Expr, name string) ([]criteriaPair, error) {
	if len(args)%2 != 0 {
		return nil, arityErr("%s expects range/criteria pairs, got %d parameter(s)", name, len(args))
	}
	pairs := make([]criteriaPair, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		values, err := ctx.Values(args[i])
		if err != nil {
			return nil, err
		}
		c, err := ctx.Eval(args[i+1])
		if err != nil {
			return nil, err
		}
		if len(pairs) > 0 && len(values) != len(pairs[0].values) {
			return nil, refErr("%s ranges must have the same size", name)
		}
		pairs = append(pairs, criteriaPair{values: values, crit: compileCriterion(c)})
	}
	return pairs, nil
}

// matchAll reports which positions satisfy every pair.
func matchAll(ctx *Context, pairs []criteriaPair) ([]bool, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	hits := make([]bool, len(pairs[0].values))
	for i := range hits {
		hits[i] = true
		for _, p := range pairs {
			ok, err := p.crit.match(ctx, p.values[i])
			if err != nil {
				return nil, err
			}
			if !ok {
				hits[i] = false
				break
			}
		}
	}
	return hits, nil
}

func countHits(hits []bool) float64 {
	n := 0
	for _, h := range hits {
		if h {
			n++
		}
	}
	return float64(n)
}

func countIf(ctx *Context, args []Expr) (any, error) {
	pairs, err := resolvePairs(ctx, args, "COUNTIF")
	if err != nil {
		return nil, err
	}
	hits, err := matchAll(ctx, pairs)
	if err != nil {
		return nil, err
	}
	return countHits(hits), nil
}

func countIfs(ctx *Context, args []Expr) (any, error) {
	pairs, err := resolvePairs(ctx, args, "COUNTIFS")
	if err != nil {
		return nil, err
	}
	hits, err := matchAll(ctx, pairs)
	if err != nil {
		return nil, err
	}
	return countHits(hits), nil
}

// sumHits adds the numeric entries of values at matching positions.
func sumHits(values []any, hits []bool) float64 {
	var total float64
	for i, h := range hits {
		if !h || i >= len(values) || !isNumeric(values[i]) {
			continue
		}
		n, _ := toNumber(values[i])
		total += n
	}
	return total
}

func sumIf(ctx *Context, args []Expr) (any, error) {
	pairs, err := resolvePairs(ctx, args[:2], "SUMIF")
	if err != nil {
		return nil, err
	}
	hits, err := matchAll(ctx, pairs)
	if err != nil {
		return nil, err
	}
	values := pairs[0].values
	if len(args) == 3 {
		if values, err = ctx.Values(args[2]); err != nil {
			return nil, err
		}
	}
	return sumHits(values, hits), nil
}

func sumIfs(ctx *Context, args []Expr) (any, error) {
	values, err := ctx.Values(args[0])
	if err != nil {
		return nil, err
	}
	pairs, err := resolvePairs(ctx, args[1:], "SUMIFS")
	if err != nil {
		return nil, err
	}
	if len(pairs[0].values) != len(values) {
		return nil, refErr("SUMIFS ranges must have the same size")
	}
	hits, err := matchAll(ctx, pairs)
	if err != nil {
		return nil, err
	}
	return sumHits(values, hits), nil
}

// rank returns the 1-based position of a number in the sorted list. Equal
// values keep their original order, so ties share the first position.
func rank(ctx *Context, args []Expr) (any, error) {
	target, err := ctx.Number(args[0])
	if err != nil {
		return nil, err
	}
	xs, err := collectNumbers(ctx, args[1:2], false)
	if err != nil {
		return nil, err
	}
	ascending, err := optNumber(ctx, args, 2, 0)
	if err != nil {
		return nil, err
	}
	sorted := append([]float64(nil), xs...)
	if ascending != 0 {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	}
	for i, x := range sorted {
		if x == target {
			return float64(i + 1), nil
		}
	}
	return nil, refErr("RANK: %s not found in list", formatGeneral(target))
}

// subtotal dispatches on a function code; codes above 100 skip hidden
// rows.
func subtotal(ctx *Context, args []Expr) (any, error) {
	code, err := intArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	skipHidden := code > 100
	if skipHidden {
		code -= 100
	}
	refs := args[1:]
	switch code {
	case 2:
		xs, err := collectNumbers(ctx, refs, skipHidden)
		if err != nil {
			return nil, err
		}
		return float64(len(xs)), nil
	case 3:
		vs, err := collectValues(ctx, refs, skipHidden)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, v := range vs {
			if !isBlank(v) {
				n++
			}
		}
		return float64(n), nil
	}
	reducers := map[int]func([]float64) float64{
		1:  average,
		4:  maximum,
		5:  minimum,
		6:  product,
		7:  sampleStdev,
		8:  populationStdev,
		9:  sum,
		10: sampleVariance,
		11: populationVariance,
	}
	reduce, ok := reducers[code]
	if !ok {
		return nil, convErr("SUBTOTAL: unknown function code %d", code)
	}
	xs, err := collectNumbers(ctx, refs, skipHidden)
	if err != nil {
		return nil, err
	}
	return reduce(xs), nil
}

// dcount counts database rows that satisfy the criteria table. The first
// row of both regions holds column labels; each later criteria row is a
// conjunction of its non-blank cells and rows combine with OR. When a
// field is given only rows with a numeric value in that column count.
func dcount(ctx *Context, args []Expr) (any, error) {
	db, err := ctx.Table(args[0])
	if err != nil {
		return nil, err
	}
	critExpr := args[len(args)-1]
	crit, err := ctx.Table(critExpr)
	if err != nil {
		return nil, err
	}
	if len(db) == 0 || len(crit) == 0 {
		return 0.0, nil
	}
	header := db[0]
	column := func(label any) int {
		name := strings.TrimSpace(toText(label))
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(toText(h)), name) {
				return i
			}
		}
		return -1
	}

	field := -1
	if len(args) == 3 {
		fv, err := ctx.Eval(args[1])
		if err != nil {
			return nil, err
		}
		switch f := Unwrap(fv).(type) {
		case float64:
			field = int(math.Trunc(f)) - 1
			if field < 0 || field >= len(header) {
				return nil, refErr("DCOUNT: field %d out of range", field+1)
			}
		case nil:
		default:
			if toText(f) != "" {
				if field = column(f); field < 0 {
					return nil, refErr("DCOUNT: unknown field %s", describe(f))
				}
			}
		}
	}

	type condition struct {
		col  int
		crit criterion
	}
	var rows [][]condition
	for _, cr := range crit[1:] {
		var conds []condition
		for i, cell := range cr {
			if isBlank(cell) || i >= len(crit[0]) {
				continue
			}
			col := column(crit[0][i])
			if col < 0 {
				return nil, refErr("DCOUNT: unknown criteria column %s", describe(crit[0][i]))
			}
			conds = append(conds, condition{col: col, crit: compileCriterion(cell)})
		}
		rows = append(rows, conds)
	}

	n := 0
	for _, rec := range db[1:] {
		if field >= 0 && !isNumeric(rec[field]) {
			continue
		}
		matched := len(rows) == 0
		for _, conds := range rows {
			all := true
			for _, c := range conds {
				ok, err := c.crit.match(ctx, rec[c.col])
				if err != nil {
					return nil, err
				}
				if !ok {
					all = false
					break
				}
			}
			if all {
				matched = true
				break
			}
		}
		if matched {
			n++
		}
	}
	return float64(n), nil
}
