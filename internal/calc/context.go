package calc

import (
	"time"
)

type memoKey struct {
	node  Expr
	sheet string
	row   int
	col   int
}

// Context carries the position of the formula being evaluated and the
// state of one evaluation pass. Function implementations use it to
// evaluate and coerce their arguments.
type Context struct {
	Sheet string
	Row   int
	Col   int

	engine *Engine
	memo   map[memoKey]any
}

// newContext starts a fresh evaluation pass.
func newContext(e *Engine, sheet string, row, col int) *Context {
	return &Context{Sheet: sheet, Row: row, Col: col, engine: e, memo: map[memoKey]any{}}
}

// at derives a context for another cell within the same pass.
func (c *Context) at(sheet string, row, col int) *Context {
	return &Context{Sheet: sheet, Row: row, Col: col, engine: c.engine, memo: c.memo}
}

func (c *Context) memoized(n Expr) (any, bool) {
	v, ok := c.memo[memoKey{node: n, sheet: c.Sheet, row: c.Row, col: c.Col}]
	return v, ok
}

func (c *Context) memoize(n Expr, v any) {
	c.memo[memoKey{node: n, sheet: c.Sheet, row: c.Row, col: c.Col}] = v
}

// Now returns the engine clock.
func (c *Context) Now() time.Time { return c.engine.now() }

// Eval evaluates e to a scalar value.
func (c *Context) Eval(e Expr) (any, error) {
	return e.Eval(c)
}

// Number evaluates e and coerces the result to a number.
func (c *Context) Number(e Expr) (float64, error) {
	v, err := c.Eval(e)
	if err != nil {
		return 0, err
	}
	return toNumber(v)
}

// Text evaluates e and coerces the result to a string.
func (c *Context) Text(e Expr) (string, error) {
	v, err := c.Eval(e)
	if err != nil {
		return "", err
	}
	return toText(v), nil
}

// Bool evaluates e and coerces the result to a boolean.
func (c *Context) Bool(e Expr) (bool, error) {
	v, err := c.Eval(e)
	if err != nil {
		return false, err
	}
	return toBool(v)
}

// Date evaluates e and coerces the result to a date.
func (c *Context) Date(e Expr) (time.Time, error) {
	v, err := c.Eval(e)
	if err != nil {
		return time.Time{}, err
	}
	return toDate(v)
}

// Ref returns the reference e denotes without dereferencing it. ok is
// false for expressions that are not references.
func (c *Context) Ref(e Expr) (Reference, bool, error) {
	switch n := e.(type) {
	case *RangeRef:
		return n.reference(c), true, nil
	case *Call:
		v, err := n.evalRaw(c)
		if err != nil {
			return Reference{}, false, err
		}
		ref, ok := v.(Reference)
		return ref, ok, nil
	}
	return Reference{}, false, nil
}

// Values flattens e row-major: every cell of a reference, or the single
// scalar value of any other expression.
func (c *Context) Values(e Expr) ([]any, error) {
	ref, ok, err := c.Ref(e)
	if err != nil {
		return nil, err
	}
	if !ok {
		v, err := c.Eval(e)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}
	rows, err := c.cells(ref, false)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, ref.Range.Rows()*ref.Range.Cols())
	for _, row := range rows {
		out = append(out, row...)
	}
	return out, nil
}

// Table returns the cells of e as rows. Scalars become a 1x1 table.
func (c *Context) Table(e Expr) ([][]any, error) {
	ref, ok, err := c.Ref(e)
	if err != nil {
		return nil, err
	}
	if !ok {
		v, err := c.Eval(e)
		if err != nil {
			return nil, err
		}
		return [][]any{{v}}, nil
	}
	return c.cells(ref, false)
}

// cells resolves every cell of ref, optionally dropping hidden rows.
func (c *Context) cells(ref Reference, skipHidden bool) ([][]any, error) {
	release, err := c.engine.guard.acquire(ref)
	if err != nil {
		c.engine.logger.Debug("circular reference", "ref", ref.String())
		return nil, err
	}
	defer release()

	rows := make([][]any, 0, ref.Range.Rows())
	for r := ref.Range.Top; r <= ref.Range.Bottom; r++ {
		if skipHidden && c.engine.source.RowHidden(ref.Sheet, r) {
			continue
		}
		row := make([]any, 0, ref.Range.Cols())
		for col := ref.Range.Left; col <= ref.Range.Right; col++ {
			v, err := c.engine.cellValue(c, ref.Sheet, r, col)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Context) deref(ref Reference) (any, error) {
	release, err := c.engine.guard.acquire(ref)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.engine.cellValue(c, ref.Sheet, ref.Range.Top, ref.Range.Left)
}
