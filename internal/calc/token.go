package calc

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies tokens produced by nextToken.
type TokenKind int

const (
	TokenEnd TokenKind = iota
	TokenLiteral
	TokenIdentifier
	TokenOperator
	TokenGroup
)

func (k TokenKind) String() string {
	switch k {
	case TokenEnd:
		return "end"
	case TokenLiteral:
		return "literal"
	case TokenIdentifier:
		return "identifier"
	case TokenOperator:
		return "operator"
	case TokenGroup:
		return "group"
	}
	return "unknown"
}

// Op identifies operators and grouping characters.
type Op int

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpIntDiv
	OpMod
	OpPow
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLParen
	OpRParen
	OpComma
	OpPeriod
)

var opText = map[Op]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpIntDiv: "\\",
	OpMod:    "mod",
	OpPow:    "^",
	OpConcat: "&",
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpLParen: "(",
	OpRParen: ")",
	OpComma:  ",",
	OpPeriod: ".",
}

func (o Op) String() string {
	if s, ok := opText[o]; ok {
		return s
	}
	return "?"
}

// Token is a lexical token. Value holds the decoded literal (float64,
// string or time.Time) for literals and the identifier text for
// identifiers; Text is the raw source slice.
type Token struct {
	Kind  TokenKind
	Op    Op
	Value any
	Text  string
	Pos   int
}

// dateLayouts are tried in order for #...# literals.
var dateLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"15:04",
	"15:04:05",
	"3:04 PM",
}

// nextToken scans one token starting at cursor and returns it with the
// cursor positioned after it.
func nextToken(text string, cursor int) (Token, int, error) {
	for cursor < len(text) && isSpace(text[cursor]) {
		cursor++
	}
	if cursor >= len(text) {
		return Token{Kind: TokenEnd, Pos: cursor}, cursor, nil
	}

	start := cursor
	ch := text[cursor]

	switch ch {
	case '+':
		return opToken(OpAdd, text, start, 1)
	case '-':
		return opToken(OpSub, text, start, 1)
	case '*':
		return opToken(OpMul, text, start, 1)
	case '/':
		return opToken(OpDiv, text, start, 1)
	case '\\':
		return opToken(OpIntDiv, text, start, 1)
	case '^':
		return opToken(OpPow, text, start, 1)
	case '&':
		return opToken(OpConcat, text, start, 1)
	case '=':
		return opToken(OpEq, text, start, 1)
	case '<':
		if cursor+1 < len(text) {
			switch text[cursor+1] {
			case '=':
				return opToken(OpLe, text, start, 2)
			case '>':
				return opToken(OpNe, text, start, 2)
			}
		}
		return opToken(OpLt, text, start, 1)
	case '>':
		if cursor+1 < len(text) && text[cursor+1] == '=' {
			return opToken(OpGe, text, start, 2)
		}
		return opToken(OpGt, text, start, 1)
	case '(':
		return groupToken(OpLParen, text, start)
	case ')':
		return groupToken(OpRParen, text, start)
	case ',':
		return groupToken(OpComma, text, start)
	case '"':
		return scanString(text, start)
	case '#':
		return scanDate(text, start)
	case '\'':
		return scanQuotedIdentifier(text, start)
	}

	if isDigit(ch) || (ch == '.' && cursor+1 < len(text) && isDigit(text[cursor+1])) {
		return scanNumber(text, start)
	}
	if ch == '.' {
		return groupToken(OpPeriod, text, start)
	}

	r, _ := utf8.DecodeRuneInString(text[cursor:])
	if isIdentStart(r) {
		end, err := scanIdentifierTail(text, cursor)
		if err != nil {
			return Token{}, cursor, err
		}
		raw := text[start:end]
		return Token{Kind: TokenIdentifier, Value: raw, Text: raw, Pos: start}, end, nil
	}

	return Token{}, cursor, syntaxErr("identifier expected at position %d near %q", start+1, string(r))
}

// tokenize scans the whole text; it is used by tests and diagnostics,
// the parser pulls tokens one at a time.
func tokenize(text string) ([]Token, error) {
	var out []Token
	cursor := 0
	for {
		tok, next, err := nextToken(text, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == TokenEnd {
			return out, nil
		}
		cursor = next
	}
}

func opToken(op Op, text string, start, width int) (Token, int, error) {
	end := start + width
	return Token{Kind: TokenOperator, Op: op, Text: text[start:end], Pos: start}, end, nil
}

func groupToken(op Op, text string, start int) (Token, int, error) {
	return Token{Kind: TokenGroup, Op: op, Text: text[start : start+1], Pos: start}, start + 1, nil
}

func scanNumber(text string, start int) (Token, int, error) {
	pos := start
	for pos < len(text) && isDigit(text[pos]) {
		pos++
	}
	if pos < len(text) && text[pos] == '.' {
		pos++
		for pos < len(text) && isDigit(text[pos]) {
			pos++
		}
	}
	if pos < len(text) && (text[pos] == 'e' || text[pos] == 'E') {
		save := pos
		pos++
		if pos < len(text) && (text[pos] == '+' || text[pos] == '-') {
			pos++
		}
		if pos < len(text) && isDigit(text[pos]) {
			for pos < len(text) && isDigit(text[pos]) {
				pos++
			}
		} else {
			pos = save
		}
	}
	digits := text[start:pos]
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return Token{}, start, &Error{Kind: KindSyntax, Msg: "invalid number " + digits, Err: err}
	}
	if pos < len(text) && text[pos] == '%' {
		pos++
		v /= 100
	}
	return Token{Kind: TokenLiteral, Value: v, Text: text[start:pos], Pos: start}, pos, nil
}

func scanString(text string, start int) (Token, int, error) {
	var sb strings.Builder
	pos := start + 1
	for pos < len(text) {
		if text[pos] == '"' {
			if pos+1 < len(text) && text[pos+1] == '"' {
				sb.WriteByte('"')
				pos += 2
				continue
			}
			pos++
			if pos < len(text) && text[pos] == '!' {
				return Token{}, start, syntaxErr("illegal sheet reference on string literal at position %d", start+1)
			}
			return Token{Kind: TokenLiteral, Value: sb.String(), Text: text[start:pos], Pos: start}, pos, nil
		}
		sb.WriteByte(text[pos])
		pos++
	}
	return Token{}, start, syntaxErr("unterminated string literal at position %d", start+1)
}

func scanDate(text string, start int) (Token, int, error) {
	end := strings.IndexByte(text[start+1:], '#')
	if end < 0 {
		return Token{}, start, syntaxErr("unterminated date literal at position %d", start+1)
	}
	body := strings.TrimSpace(text[start+1 : start+1+end])
	pos := start + end + 2
	t, ok := parseDateText(body)
	if !ok {
		return Token{}, start, syntaxErr("invalid date literal #%s#", body)
	}
	return Token{Kind: TokenLiteral, Value: t, Text: text[start:pos], Pos: start}, pos, nil
}

func parseDateText(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			if t.Year() == 0 {
				// time-only layouts: anchor on the serial epoch
				t = time.Date(1899, 12, 30, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// scanQuotedIdentifier handles 'Sheet Name'!A1 style references.
func scanQuotedIdentifier(text string, start int) (Token, int, error) {
	pos, ok := skipQuotedSheet(text, start)
	if !ok {
		return Token{}, start, syntaxErr("unterminated sheet name at position %d", start+1)
	}
	if pos >= len(text) || text[pos] != '!' {
		return Token{}, start, syntaxErr("identifier expected at position %d", start+1)
	}
	end, err := scanIdentifierTail(text, pos)
	if err != nil {
		return Token{}, start, err
	}
	raw := text[start:end]
	return Token{Kind: TokenIdentifier, Value: raw, Text: raw, Pos: start}, end, nil
}

// skipQuotedSheet returns the position after the closing quote of a
// '...' sheet name starting at start. Doubled quotes are escapes.
func skipQuotedSheet(text string, start int) (int, bool) {
	pos := start + 1
	for pos < len(text) {
		if text[pos] == '\'' {
			if pos+1 < len(text) && text[pos+1] == '\'' {
				pos += 2
				continue
			}
			return pos + 1, true
		}
		pos++
	}
	return pos, false
}

func scanIdentifierTail(text string, pos int) (int, error) {
	for pos < len(text) {
		if text[pos] == ':' && pos+1 < len(text) && text[pos+1] == '\'' {
			next, ok := skipQuotedSheet(text, pos+1)
			if !ok {
				return pos, syntaxErr("unterminated sheet name at position %d", pos+2)
			}
			if next >= len(text) || text[next] != '!' {
				return pos, syntaxErr("identifier expected at position %d", pos+2)
			}
			pos = next
			continue
		}
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !isIdentRune(r) {
			break
		}
		pos += size
	}
	return pos, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentSpecial(r rune) bool {
	return r == '$' || r == ':' || r == '!'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || isIdentSpecial(r)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || isIdentSpecial(r)
}
