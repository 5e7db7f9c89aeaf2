package calc

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Expr is a node of a parsed formula. Nodes are immutable once built and
// may be shared between cells through the expression cache; anything
// computed during an evaluation lives in the Context, not the node.
type Expr interface {
	Eval(ctx *Context) (any, error)
	String() string
}

// Literal is a constant number, string, boolean or date.
type Literal struct {
	Value any
}

func (n *Literal) Eval(ctx *Context) (any, error) {
	return n.Value, nil
}

func (n *Literal) String() string {
	switch v := n.Value.(type) {
	case string:
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	case time.Time:
		return "#" + Format(v, "m/d/yyyy") + "#"
	}
	return toText(n.Value)
}

// Unary applies a sign to its operand.
type Unary struct {
	Op Op
	X  Expr
}

func (n *Unary) Eval(ctx *Context) (any, error) {
	if v, ok := ctx.memoized(n); ok {
		return v, nil
	}
	x, err := ctx.Number(n.X)
	if err != nil {
		return nil, err
	}
	if n.Op == OpSub {
		x = -x
	}
	ctx.memoize(n, x)
	return x, nil
}

func (n *Unary) String() string {
	return n.Op.String() + n.X.String()
}

// Binary is an infix operation.
type Binary struct {
	Op   Op
	L, R Expr
}

func (n *Binary) Eval(ctx *Context) (any, error) {
	l, err := ctx.Eval(n.L)
	if err != nil {
		return nil, err
	}
	r, err := ctx.Eval(n.R)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Op, l, r)
}

func (n *Binary) String() string {
	return fmt.Sprintf("(%s%s%s)", n.L.String(), n.Op.String(), n.R.String())
}

// applyBinary implements every infix operator on already evaluated
// operands. Criteria matching reuses it for its comparisons.
func applyBinary(op Op, l, r any) (any, error) {
	if op == OpConcat {
		return toText(l) + toText(r), nil
	}
	ln, err := toNumber(l)
	if err != nil {
		return nil, err
	}
	rn, err := toNumber(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return ln + rn, nil
	case OpSub:
		return ln - rn, nil
	case OpMul:
		return ln * rn, nil
	case OpDiv:
		return ln / rn, nil
	case OpIntDiv:
		return math.Floor(ln / rn), nil
	case OpMod:
		return ln - rn*math.Floor(ln/rn), nil
	case OpPow:
		return math.Pow(ln, rn), nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return compare(op, l, r, ln-rn), nil
	}
	return nil, syntaxErr("unsupported operator %s", op)
}

// compare decides a relational operator from the numeric difference of the
// operands. Non-numeric operands only support (case-insensitive) equality.
func compare(op Op, l, r any, diff float64) bool {
	if math.IsNaN(diff) {
		switch op {
		case OpEq:
			return strings.EqualFold(toText(l), toText(r))
		case OpNe:
			return !strings.EqualFold(toText(l), toText(r))
		}
		return false
	}
	switch op {
	case OpEq:
		return diff == 0
	case OpNe:
		return diff != 0
	case OpLt:
		return diff < 0
	case OpLe:
		return diff <= 0
	case OpGt:
		return diff > 0
	case OpGe:
		return diff >= 0
	}
	return false
}

// RangeRef is a cell or range reference, optionally sheet-qualified. An
// empty Sheet means the sheet of the evaluating cell.
type RangeRef struct {
	Sheet string
	Range CellRange
}

// Eval dereferences the top-left cell.
func (n *RangeRef) Eval(ctx *Context) (any, error) {
	ref := n.reference(ctx)
	release, err := ctx.engine.guard.acquire(ref)
	if err != nil {
		ctx.engine.logger.Debug("circular reference", "ref", ref.String())
		return nil, err
	}
	defer release()
	return ctx.engine.cellValue(ctx, ref.Sheet, ref.Range.Top, ref.Range.Left)
}

func (n *RangeRef) reference(ctx *Context) Reference {
	sheet := n.Sheet
	if sheet == "" {
		sheet = ctx.Sheet
	}
	return Reference{Sheet: sheet, Range: n.Range}
}

func (n *RangeRef) String() string {
	return Reference{Sheet: n.Sheet, Range: n.Range}.String()
}

// Call invokes a registered function with unevaluated arguments.
type Call struct {
	Name string
	Args []Expr
}

func (n *Call) Eval(ctx *Context) (any, error) {
	v, err := n.evalRaw(ctx)
	if err != nil {
		return nil, err
	}
	if ref, ok := v.(Reference); ok {
		return ctx.deref(ref)
	}
	return v, nil
}

// evalRaw returns the function result without dereferencing a Reference.
func (n *Call) evalRaw(ctx *Context) (any, error) {
	if v, ok := ctx.memoized(n); ok {
		return v, nil
	}
	def, ok := ctx.engine.registry.Lookup(n.Name)
	if !ok {
		return nil, refErr("function not supported: %s", n.Name)
	}
	v, err := def.Fn(ctx, n.Args)
	if err != nil {
		return nil, err
	}
	ctx.memoize(n, v)
	return v, nil
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// UnknownCall is an identifier that is neither a function nor a reference.
// It is resolved by the engine's Unknown hook at evaluation time.
type UnknownCall struct {
	Name   string
	Args   []Expr
	Parens bool
}

func (n *UnknownCall) Eval(ctx *Context) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := ctx.Eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	hook := ctx.engine.unknown
	if hook != nil {
		if v, ok := hook(n.Name, args); ok {
			return v, nil
		}
	}
	ctx.engine.logger.Debug("unknown function declined", "name", n.Name)
	return nil, ctx.engine.unsupported(n.Name)
}

func (n *UnknownCall) String() string {
	if !n.Parens {
		return n.Name
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}
