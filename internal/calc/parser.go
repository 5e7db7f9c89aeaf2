package calc

import (
	"regexp"
	"strconv"
	"strings"

	"gridcalc/internal/grid"
)

// cellRefRe matches one endpoint of a reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?([A-Za-z]{1,3})\$?([0-9]+)$`)

// Parser turns formula text into an Expr tree. It pulls tokens from the
// tokenizer one at a time and validates function arity as it goes.
type Parser struct {
	text     string
	cursor   int
	tok      Token
	registry *Registry
	// allowUnknown defers unknown identifiers to evaluation time instead
	// of rejecting them.
	allowUnknown bool
	suggest      bool
}

// NewParser creates a parser that resolves function names against registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry, suggest: true}
}

// Parse parses a formula body. A leading '=' is accepted and skipped.
func (p *Parser) Parse(text string) (Expr, error) {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "=")
	p.text = body
	p.cursor = 0
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == TokenEnd {
		return nil, syntaxErr("empty formula")
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	switch {
	case p.tok.Kind == TokenEnd:
		return expr, nil
	case p.tok.Op == OpRParen:
		return nil, syntaxErr("unbalanced parentheses: unexpected ')' at position %d", p.tok.Pos+1)
	}
	return nil, syntaxErr("unexpected %q at position %d", p.tok.Text, p.tok.Pos+1)
}

func (p *Parser) advance() error {
	tok, next, err := nextToken(p.text, p.cursor)
	if err != nil {
		return err
	}
	p.tok = tok
	p.cursor = next
	return nil
}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseCompareOrConcat()
}

func (p *Parser) parseCompareOrConcat() (Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokenOperator {
		op := p.tok.Op
		switch op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpConcat:
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseAddSub() (Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokenOperator && (p.tok.Op == OpAdd || p.tok.Op == OpSub) {
		op := p.tok.Op
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokenOperator && (p.tok.Op == OpMul || p.tok.Op == OpDiv || p.tok.Op == OpIntDiv) {
		op := p.tok.Op
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokenOperator && p.tok.Op == OpPow {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpPow, L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.tok.Kind == TokenOperator && (p.tok.Op == OpAdd || p.tok.Op == OpSub) {
		op := p.tok.Op
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() (Expr, error) {
	tok := p.tok
	switch {
	case tok.Kind == TokenLiteral:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: tok.Value}, nil
	case tok.Kind == TokenIdentifier:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseIdentifier(tok)
	case tok.Op == OpLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(tok.Pos); err != nil {
			return nil, err
		}
		return expr, nil
	case tok.Kind == TokenEnd:
		return nil, syntaxErr("unexpected end of formula")
	}
	return nil, syntaxErr("unexpected %q at position %d", tok.Text, tok.Pos+1)
}

func (p *Parser) expectClose(open int) error {
	if p.tok.Op != OpRParen {
		if p.tok.Kind == TokenEnd {
			return syntaxErr("unbalanced parentheses: '(' at position %d is not closed", open+1)
		}
		return syntaxErr("expected ')' but found %q at position %d", p.tok.Text, p.tok.Pos+1)
	}
	return p.advance()
}

// parseIdentifier resolves an identifier as a function call, a reference,
// a boolean constant or, failing those, an unknown call.
func (p *Parser) parseIdentifier(tok Token) (Expr, error) {
	name := tok.Value.(string)
	hasParens := p.tok.Op == OpLParen

	if hasParens {
		if def, ok := p.registry.Lookup(name); ok {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if err := def.checkArity(len(args)); err != nil {
				return nil, err
			}
			return &Call{Name: def.Name, Args: args}, nil
		}
	} else {
		switch strings.ToUpper(name) {
		case "TRUE":
			return &Literal{Value: true}, nil
		case "FALSE":
			return &Literal{Value: false}, nil
		}
	}

	ref, isRef, err := parseReference(name)
	if err != nil {
		return nil, err
	}
	if isRef {
		return ref, nil
	}
	if strings.ContainsAny(name, "!:") {
		return nil, refErr("invalid reference %s", name)
	}

	var args []Expr
	if hasParens {
		if args, err = p.parseArgs(); err != nil {
			return nil, err
		}
	}
	if !p.allowUnknown {
		return nil, p.unsupported(name)
	}
	return &UnknownCall{Name: name, Args: args, Parens: hasParens}, nil
}

func (p *Parser) unsupported(name string) error {
	if p.suggest {
		if s := p.registry.Suggest(name); s != "" {
			return refErr("function not supported: %s (did you mean %s?)", name, s)
		}
	}
	return refErr("function not supported: %s", name)
}

// parseArgs parses "(a, b, ...)" with the current token on '('.
func (p *Parser) parseArgs() ([]Expr, error) {
	open := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []Expr
	if p.tok.Op == OpRParen {
		return args, p.advance()
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.Op == OpComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if err := p.expectClose(open); err != nil {
			return nil, err
		}
		return args, nil
	}
}

// parseReference interprets text as A1, A1:B2 or a sheet-qualified form.
// It returns isRef=false when text is not shaped like a reference.
func parseReference(text string) (*RangeRef, bool, error) {
	parts := splitEndpoints(text)
	if len(parts) == 0 || len(parts) > 2 {
		return nil, false, nil
	}
	sheet1, has1, r1, c1, ok := parseEndpoint(parts[0])
	if !ok {
		return nil, false, nil
	}
	if len(parts) == 1 {
		return &RangeRef{Sheet: sheet1, Range: NewCellRange(r1, c1, r1, c1)}, true, nil
	}
	sheet2, has2, r2, c2, ok := parseEndpoint(parts[1])
	if !ok {
		return nil, false, nil
	}
	if has2 && (!has1 || !strings.EqualFold(sheet1, sheet2)) {
		return nil, false, refErr("mismatched sheet references in %s", text)
	}
	return &RangeRef{Sheet: sheet1, Range: NewCellRange(r1, c1, r2, c2)}, true, nil
}

// splitEndpoints splits on ':' outside quoted sheet names.
func splitEndpoints(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'':
			end, ok := skipQuotedSheet(text, i)
			if !ok {
				return nil
			}
			i = end - 1
		case ':':
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

func parseEndpoint(s string) (sheet string, hasSheet bool, row, col int, ok bool) {
	cell := s
	if strings.HasPrefix(s, "'") {
		end, closed := skipQuotedSheet(s, 0)
		if !closed || end >= len(s) || s[end] != '!' {
			return "", false, 0, 0, false
		}
		sheet = strings.ReplaceAll(s[1:end-1], "''", "'")
		hasSheet = true
		cell = s[end+1:]
	} else if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = s[:idx]
		if sheet == "" || strings.ContainsAny(sheet, "!$") {
			return "", false, 0, 0, false
		}
		hasSheet = true
		cell = s[idx+1:]
	}
	m := cellRefRe.FindStringSubmatch(cell)
	if m == nil {
		return "", false, 0, 0, false
	}
	col, colOK := grid.NameToCol(m[1])
	n, err := strconv.Atoi(m[2])
	if !colOK || err != nil || n < 1 || n > grid.MaxRows {
		return "", false, 0, 0, false
	}
	return sheet, hasSheet, n - 1, col, true
}
