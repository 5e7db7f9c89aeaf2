package calc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Func implements a spreadsheet function. It receives the unevaluated
// argument expressions and evaluates only what it needs through ctx.
type Func func(ctx *Context, args []Expr) (any, error)

// Unbounded marks a Definition without an upper parameter limit.
const Unbounded = -1

// Definition describes a registered function.
type Definition struct {
	Name     string
	Category string
	Fn       Func
	Min      int
	Max      int
}

// Arity renders the accepted parameter count, e.g. "1..*".
func (d Definition) Arity() string {
	if d.Max == Unbounded {
		return fmt.Sprintf("%d..*", d.Min)
	}
	if d.Min == d.Max {
		return fmt.Sprintf("%d", d.Min)
	}
	return fmt.Sprintf("%d..%d", d.Min, d.Max)
}

func (d Definition) checkArity(n int) error {
	if n < d.Min {
		return arityErr("%s expects at least %d parameter(s), got %d", d.Name, d.Min, n)
	}
	if d.Max != Unbounded && n > d.Max {
		return arityErr("%s expects at most %d parameter(s), got %d", d.Name, d.Max, n)
	}
	return nil
}

// Registry maps case-insensitive function names to definitions. Each
// Engine owns one, so independent engines can carry different functions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// DefaultRegistry returns a registry holding every built-in function.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerAggregate(r)
	registerStatistics(r)
	registerMath(r)
	registerLogical(r)
	registerText(r)
	registerDate(r)
	registerLookup(r)
	registerFinancial(r)
	return r
}

// Register adds fn under name, replacing an existing definition.
func (r *Registry) Register(name string, fn Func, min, max int) {
	r.add("custom", name, fn, min, max)
}

func (r *Registry) add(category, name string, fn Func, min, max int) {
	key := strings.ToUpper(name)
	r.defs[key] = Definition{Name: key, Category: category, Fn: fn, Min: min, Max: max}
}

// Lookup finds a definition by case-insensitive name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[strings.ToUpper(name)]
	return d, ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return len(r.defs) }

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	defs := r.Definitions()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// Suggest returns the registered name closest to name, or "".
func (r *Registry) Suggest(name string) string {
	ranks := fuzzy.RankFindFold(name, r.Names())
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
