package calc

import "strings"

type guardKey struct {
	sheet string
	rows  [2]int
	cols  [2]int
}

// guard tracks references whose resolution is in progress on the current
// call stack. Re-entering one means the formula depends on itself.
type guard struct {
	active map[guardKey]struct{}
}

func newGuard() *guard {
	return &guard{active: map[guardKey]struct{}{}}
}

// acquire marks ref as in progress. The returned release func must be
// called on every exit path, normally through defer.
func (g *guard) acquire(ref Reference) (func(), error) {
	key := guardKey{
		sheet: strings.ToUpper(ref.Sheet),
		rows:  [2]int{ref.Range.Top, ref.Range.Bottom},
		cols:  [2]int{ref.Range.Left, ref.Range.Right},
	}
	if _, busy := g.active[key]; busy {
		return nil, circularErr("circular reference detected at %s", ref.String())
	}
	g.active[key] = struct{}{}
	return func() { delete(g.active, key) }, nil
}
