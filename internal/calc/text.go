package calc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxTextLength bounds the text a formula may build.
const maxTextLength = 32767

func registerText(r *Registry) {
	const cat = "text"
	r.add(cat, "CHAR", char, 1, 1)
	r.add(cat, "CODE", code, 1, 1)
	r.add(cat, "CONCATENATE", concatenate, 1, Unbounded)
	r.add(cat, "LEFT", left, 1, 2)
	r.add(cat, "RIGHT", right, 1, 2)
	r.add(cat, "MID", mid, 3, 3)
	r.add(cat, "LEN", length, 1, 1)
	r.add(cat, "FIND", find, 2, 3)
	r.add(cat, "SEARCH", search, 2, 3)
	r.add(cat, "LOWER", caser(cases.Lower(language.Und)), 1, 1)
	r.add(cat, "UPPER", caser(cases.Upper(language.Und)), 1, 1)
	r.add(cat, "PROPER", caser(cases.Title(language.Und)), 1, 1)
	r.add(cat, "TRIM", trim, 1, 1)
	r.add(cat, "REPLACE", replace, 4, 4)
	r.add(cat, "SUBSTITUTE", substitute, 3, 4)
	r.add(cat, "REPT", rept, 2, 2)
	r.add(cat, "TEXT", text, 2, 2)
	r.add(cat, "VALUE", value, 1, 1)
	r.add(cat, "EXACT", exact, 2, 2)
}

func char(ctx *Context, args []Expr) (any, error) {
	n, err := intArg(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	if n < 1 || !utf8.ValidRune(rune(n)) {
		return nil, convErr("CHAR: invalid code %d", n)
	}
	return string(rune(n)), nil
}

func code(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, convErr("CODE: empty text")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return float64(r), nil
}

func concatenate(ctx *Context, args []Expr) (any, error) {
	vs, err := collectValues(ctx, args, false)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, v := range vs {
		sb.WriteString(toText(v))
	}
	return sb.String(), nil
}

// textCount reads a text argument and an optional character count.
func textCount(ctx *Context, args []Expr) ([]rune, int, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, 0, err
	}
	n := 1
	if len(args) > 1 {
		if n, err = intArg(ctx, args, 1); err != nil {
			return nil, 0, err
		}
	}
	if n < 0 {
		return nil, 0, convErr("character count must not be negative")
	}
	return []rune(s), n, nil
}

func left(ctx *Context, args []Expr) (any, error) {
	rs, n, err := textCount(ctx, args)
	if err != nil {
		return nil, err
	}
	return string(rs[:min(n, len(rs))]), nil
}

func right(ctx *Context, args []Expr) (any, error) {
	rs, n, err := textCount(ctx, args)
	if err != nil {
		return nil, err
	}
	return string(rs[len(rs)-min(n, len(rs)):]), nil
}

func mid(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	start, err := intArg(ctx, args, 1)
	if err != nil {
		return nil, err
	}
	n, err := intArg(ctx, args, 2)
	if err != nil {
		return nil, err
	}
	if start < 1 || n < 0 {
		return nil, convErr("MID: invalid start %d or length %d", start, n)
	}
	rs := []rune(s)
	if start > len(rs) {
		return "", nil
	}
	return string(rs[start-1 : min(start-1+n, len(rs))]), nil
}

func length(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	return float64(utf8.RuneCountInString(s)), nil
}

// locate returns the 1-based rune position of a match found by index,
// searching from the optional start position.
func locate(ctx *Context, args []Expr, name string, index func(within, needle string) int) (any, error) {
	needle, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	within, err := ctx.Text(args[1])
	if err != nil {
		return nil, err
	}
	start := 1
	if len(args) > 2 {
		if start, err = intArg(ctx, args, 2); err != nil {
			return nil, err
		}
	}
	rs := []rune(within)
	if start < 1 || start > len(rs)+1 {
		return nil, convErr("%s: start position %d out of range", name, start)
	}
	offset := len(string(rs[:start-1]))
	i := index(within[offset:], needle)
	if i < 0 {
		return nil, refErr("%s: %q not found", name, needle)
	}
	return float64(start + utf8.RuneCountInString(within[offset:offset+i])), nil
}

func find(ctx *Context, args []Expr) (any, error) {
	return locate(ctx, args, "FIND", strings.Index)
}

// search is case-insensitive and honours the ? and * wildcards.
func search(ctx *Context, args []Expr) (any, error) {
	return locate(ctx, args, "SEARCH", func(within, needle string) int {
		re, err := regexp.Compile("(?is)" + wildcardRegexp(needle))
		if err != nil {
			return -1
		}
		loc := re.FindStringIndex(within)
		if loc == nil {
			return -1
		}
		return loc[0]
	})
}

// wildcardRegexp translates ? and * to their regexp forms, quoting the
// rest. A ~ escapes the following wildcard.
func wildcardRegexp(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; {
		case ch == '~' && i+1 < len(pattern) && strings.IndexByte("?*~", pattern[i+1]) >= 0:
			i++
			sb.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case ch == '?':
			sb.WriteString(".")
		case ch == '*':
			sb.WriteString(".*?")
		default:
			sb.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}
	return sb.String()
}

func caser(c cases.Caser) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		s, err := ctx.Text(args[0])
		if err != nil {
			return nil, err
		}
		return c.String(s), nil
	}
}

// trim removes leading and trailing spaces and collapses inner runs.
func trim(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' }), " "), nil
}

func replace(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	start, err := intArg(ctx, args, 1)
	if err != nil {
		return nil, err
	}
	n, err := intArg(ctx, args, 2)
	if err != nil {
		return nil, err
	}
	repl, err := ctx.Text(args[3])
	if err != nil {
		return nil, err
	}
	if start < 1 || n < 0 {
		return nil, convErr("REPLACE: invalid start %d or length %d", start, n)
	}
	rs := []rune(s)
	from := min(start-1, len(rs))
	to := min(from+n, len(rs))
	return string(rs[:from]) + repl + string(rs[to:]), nil
}

// substitute replaces every occurrence, or only the given 1-based one.
func substitute(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	old, err := ctx.Text(args[1])
	if err != nil {
		return nil, err
	}
	repl, err := ctx.Text(args[2])
	if err != nil {
		return nil, err
	}
	if old == "" {
		return s, nil
	}
	if len(args) < 4 {
		return strings.ReplaceAll(s, old, repl), nil
	}
	nth, err := intArg(ctx, args, 3)
	if err != nil {
		return nil, err
	}
	if nth < 1 {
		return nil, convErr("SUBSTITUTE: instance must be positive, got %d", nth)
	}
	pos := 0
	for i := 1; ; i++ {
		j := strings.Index(s[pos:], old)
		if j < 0 {
			return s, nil
		}
		if i == nth {
			at := pos + j
			return s[:at] + repl + s[at+len(old):], nil
		}
		pos += j + len(old)
	}
}

func rept(ctx *Context, args []Expr) (any, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	n, err := intArg(ctx, args, 1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, convErr("REPT: negative count %d", n)
	}
	if width := utf8.RuneCountInString(s); width > 0 && n > maxTextLength/width {
		return nil, convErr("REPT: result longer than %d characters", maxTextLength)
	}
	return strings.Repeat(s, n), nil
}

func text(ctx *Context, args []Expr) (any, error) {
	v, err := ctx.Eval(args[0])
	if err != nil {
		return nil, err
	}
	format, err := ctx.Text(args[1])
	if err != nil {
		return nil, err
	}
	return Format(v, format), nil
}

func value(ctx *Context, args []Expr) (any, error) {
	v, err := ctx.Eval(args[0])
	if err != nil {
		return nil, err
	}
	switch t := Unwrap(v).(type) {
	case float64:
		return t, nil
	case bool:
		return nil, convErr("VALUE: cannot convert %s to a number", describe(t))
	}
	s := strings.TrimSpace(toText(v))
	if n, ok := parseNumber(s); ok {
		return n, nil
	}
	if d, ok := parseDateText(s); ok {
		return ToSerial(d), nil
	}
	return nil, convErr("VALUE: cannot convert %s to a number", describe(s))
}

func exact(ctx *Context, args []Expr) (any, error) {
	a, err := ctx.Text(args[0])
	if err != nil {
		return nil, err
	}
	b, err := ctx.Text(args[1])
	if err != nil {
		return nil, err
	}
	return a == b, nil
}
