package calc

import (
	"regexp"
	"strconv"
	"strings"
)

// criterion is a compiled COUNTIF-style predicate: either a wildcard
// pattern or a comparison against a fixed operand.
type criterion struct {
	pattern *regexp.Regexp
	negate  bool
	op      Op
	rhs     Expr
}

var criterionOps = []struct {
	prefix string
	op     Op
}{
	{"<=", OpLe},
	{">=", OpGe},
	{"<>", OpNe},
	{"<", OpLt},
	{">", OpGt},
	{"=", OpEq},
}

// compileCriterion classifies v as a wildcard pattern (text containing ?
// or *) or a comparison. Bare values compare for equality.
func compileCriterion(v any) criterion {
	text, isText := Unwrap(v).(string)
	if !isText {
		return criterion{op: OpEq, rhs: &Literal{Value: Unwrap(v)}}
	}
	if strings.ContainsAny(text, "?*") {
		body, negate := text, false
		switch {
		case strings.HasPrefix(body, "<>"):
			body, negate = body[2:], true
		case strings.HasPrefix(body, "="):
			body = body[1:]
		}
		if re, ok := compileWildcard(body); ok {
			return criterion{pattern: re, negate: negate}
		}
	}
	for _, c := range criterionOps {
		if strings.HasPrefix(text, c.prefix) {
			return criterion{op: c.op, rhs: &Literal{Value: criterionOperand(text[len(c.prefix):])}}
		}
	}
	return criterion{op: OpEq, rhs: &Literal{Value: criterionOperand(text)}}
}

func criterionOperand(s string) any {
	if n, ok := parseNumber(s); ok {
		return n
	}
	return s
}

// compileWildcard turns a pattern of at most two literal runs flanked by
// wildcard groups into an anchored, case-insensitive regexp. '*' matches
// any run of word characters and each '?' exactly one. Patterns with more
// literal runs are not wildcards.
func compileWildcard(pattern string) (*regexp.Regexp, bool) {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	literals := 0
	i := 0
	for i < len(pattern) {
		j := i
		if pattern[i] == '?' || pattern[i] == '*' {
			fixed, star := 0, false
			for j < len(pattern) && (pattern[j] == '?' || pattern[j] == '*') {
				if pattern[j] == '?' {
					fixed++
				} else {
					star = true
				}
				j++
			}
			switch {
			case star && fixed == 0:
				sb.WriteString(`\w*`)
			case star:
				sb.WriteString(`\w{` + strconv.Itoa(fixed) + `,}`)
			default:
				sb.WriteString(`\w{` + strconv.Itoa(fixed) + `}`)
			}
		} else {
			for j < len(pattern) && pattern[j] != '?' && pattern[j] != '*' {
				j++
			}
			literals++
			if literals > 2 {
				return nil, false
			}
			sb.WriteString(regexp.QuoteMeta(pattern[i:j]))
		}
		i = j
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, false
	}
	return re, true
}

// match reports whether a cell value satisfies the criterion. Comparisons
// run through the same Binary node evaluation as formulas.
func (c criterion) match(ctx *Context, v any) (bool, error) {
	if c.pattern != nil {
		return c.pattern.MatchString(toText(v)) != c.negate, nil
	}
	cmp := &Binary{Op: c.op, L: &Literal{Value: Unwrap(v)}, R: c.rhs}
	res, err := cmp.Eval(ctx)
	if err != nil {
		return false, err
	}
	return toBool(res)
}
