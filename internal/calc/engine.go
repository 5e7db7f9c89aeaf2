// Package calc is a spreadsheet formula engine: a tokenizer, a
// recursive-descent parser producing an immutable expression tree, and an
// evaluator that resolves cell references through a host-provided Source.
//
// An Engine is not safe for concurrent use; the host calls it in-line from
// its own evaluation path.
package calc

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Source is the host grid the engine reads cells from. CellValue returns
// the stored value of a cell, which may itself be a "=..." formula string;
// ok is false when the sheet does not exist. An empty sheet name selects
// the host's active sheet.
type Source interface {
	CellValue(sheet string, row, col int, formatted bool) (any, bool)
	RowHidden(sheet string, row int) bool
}

// UnknownFunc is consulted for identifiers that are neither registered
// functions nor cell references. Returning ok=false lets the formula fail.
type UnknownFunc func(name string, args []any) (any, bool)

// DefaultCacheSize bounds the expression cache.
const DefaultCacheSize = 10000

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Registry  *Registry
	CacheSize int
	Logger    *slog.Logger
	Unknown   UnknownFunc
	Now       func() time.Time
	// DefaultSheet is used when Eval is called without a sheet name.
	DefaultSheet string
}

// Engine parses and evaluates formulas against a Source.
type Engine struct {
	source   Source
	registry *Registry
	cache    *Cache
	guard    *guard
	unknown  UnknownFunc
	logger   *slog.Logger
	now      func() time.Time
	sheet    string
}

// New creates an engine reading cells from src.
func New(src Source, opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		source:   src,
		registry: opts.Registry,
		cache:    newCache(opts.CacheSize, opts.Logger),
		guard:    newGuard(),
		unknown:  opts.Unknown,
		logger:   opts.Logger,
		now:      opts.Now,
		sheet:    opts.DefaultSheet,
	}
}

// Registry returns the engine's function registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Cache returns the engine's expression cache.
func (e *Engine) Cache() *Cache { return e.cache }

// AddCustomFunction registers fn under name. A negative max means
// unbounded. Cached expressions are dropped since arity checks and
// unknown-name decisions were made against the previous registry.
func (e *Engine) AddCustomFunction(name string, fn Func, min, max int) {
	if max < 0 {
		max = Unbounded
	}
	e.registry.Register(name, fn, min, max)
	e.cache.Clear()
}

// ClearExpressionCache drops every cached parse. Hosts call it after any
// edit that could change what a formula text means or refers to.
func (e *Engine) ClearExpressionCache() {
	e.cache.Clear()
}

// Parse returns the expression for a formula, using the cache.
func (e *Engine) Parse(text string) (Expr, error) {
	key := normalizeFormula(text)
	if expr, ok := e.cache.Get(key); ok {
		return expr, nil
	}
	p := NewParser(e.registry)
	p.allowUnknown = e.unknown != nil
	expr, err := p.Parse(key)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, expr)
	return expr, nil
}

// Eval evaluates text as if it were stored in (sheet, row, col). Text that
// does not start with '=' is returned unchanged.
func (e *Engine) Eval(text, sheet string, row, col int) (any, error) {
	if !strings.HasPrefix(text, "=") {
		return text, nil
	}
	expr, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		sheet = e.sheet
	}
	ctx := newContext(e, sheet, row, col)
	return ctx.Eval(expr)
}

// Evaluate is the host boundary: failures come back as an "Error: ..."
// string and, when format is given, primitive results are rendered
// through it.
func (e *Engine) Evaluate(text, format, sheet string, row, col int) (result any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("formula evaluation panicked", "formula", text, "panic", r)
			result = fmt.Sprintf("Error: internal error: %v", r)
		}
	}()
	v, err := e.Eval(text, sheet, row, col)
	if err != nil {
		return "Error: " + err.Error()
	}
	if format == "" {
		return v
	}
	if _, tagged := v.(Formatted); tagged {
		return v
	}
	return Format(v, format)
}

func (e *Engine) unsupported(name string) error {
	p := NewParser(e.registry)
	return p.unsupported(name)
}

// cellValue reads a cell and evaluates it when it holds a formula.
func (e *Engine) cellValue(ctx *Context, sheet string, row, col int) (any, error) {
	raw, ok := e.source.CellValue(sheet, row, col, false)
	if !ok {
		return nil, refErr("unknown sheet %s", sheet)
	}
	text, isText := raw.(string)
	if !isText || !strings.HasPrefix(text, "=") {
		return raw, nil
	}
	expr, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	return ctx.at(sheet, row, col).Eval(expr)
}

func normalizeFormula(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "=")
	return strings.TrimSpace(s)
}
