package calc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Format renders v through a spreadsheet display format code such as
// "0.00", "#,##0", "0%", "0.00E+00" or "m/d/yyyy h:mm AM/PM". An empty
// code or "General" gives the plain text form.
func Format(v any, code string) string {
	v = Unwrap(v)
	if code == "" || strings.EqualFold(code, "general") {
		return toText(v)
	}
	if isDateFormat(code) {
		t, err := toDate(v)
		if err != nil {
			return toText(v)
		}
		return formatDate(t, code)
	}
	if code == "@" {
		return toText(v)
	}
	if s, isText := v.(string); isText {
		if _, ok := parseNumber(s); !ok {
			return s
		}
	}
	n, err := toNumber(v)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return toText(v)
	}
	return formatNumber(n, code)
}

// isDateFormat reports whether code holds date or time placeholders
// outside quoted literals.
func isDateFormat(code string) bool {
	inQuote := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\':
			i++
		case strings.IndexByte("yYdDhHsS", ch) >= 0:
			return true
		case ch == 'm' || ch == 'M':
			return true
		case strings.HasPrefix(strings.ToUpper(code[i:]), "AM/PM"):
			return true
		}
	}
	return false
}

func formatNumber(n float64, code string) string {
	sections := splitSections(code)
	section := sections[0]
	switch {
	case n < 0 && len(sections) > 1:
		section = sections[1]
		n = -n
	case n == 0 && len(sections) > 2:
		section = sections[2]
	}

	start := strings.IndexAny(section, "0#?.,")
	if start < 0 {
		return unquote(section)
	}
	end := start
	for i := start; i < len(section); i++ {
		if strings.IndexByte("0#?.,", section[i]) >= 0 {
			end = i + 1
			continue
		}
		if (section[i] == 'E' || section[i] == 'e') && i+1 < len(section) && (section[i+1] == '+' || section[i+1] == '-') {
			j := i + 2
			for j < len(section) && section[j] == '0' {
				j++
			}
			end = j
			i = j - 1
			continue
		}
		break
	}
	prefix, core, suffix := section[:start], section[start:end], section[end:]

	if strings.Contains(section, "%") {
		n *= 100
	}

	decimals := 0
	intPart, fracPart, hasDot := strings.Cut(core, ".")
	expIdx := strings.IndexAny(fracPart, "Ee")
	expPart := ""
	if expIdx >= 0 {
		expPart = fracPart[expIdx:]
		fracPart = fracPart[:expIdx]
	} else if i := strings.IndexAny(intPart, "Ee"); i >= 0 {
		expPart = intPart[i:]
		intPart = intPart[:i]
	}
	if hasDot {
		decimals = strings.Count(fracPart, "0") + strings.Count(fracPart, "#")
	}

	var body string
	if expPart != "" {
		body = strconv.FormatFloat(n, 'E', decimals, 64)
		mant, exp, _ := strings.Cut(body, "E")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		width := strings.Count(expPart, "0")
		for len(digits) < width {
			digits = "0" + digits
		}
		if sign == "+" && strings.Contains(expPart, "-") {
			sign = ""
		}
		body = mant + "E" + sign + digits
	} else {
		body = strconv.FormatFloat(math.Abs(n), 'f', decimals, 64)
		whole, frac, _ := strings.Cut(body, ".")
		minInt := strings.Count(intPart, "0")
		if whole == "0" && minInt == 0 {
			whole = ""
		}
		for len(whole) < minInt {
			whole = "0" + whole
		}
		if strings.Contains(intPart, ",") {
			whole = groupThousands(whole)
		}
		if hasDot {
			frac = trimOptional(frac, fracPart)
			if frac != "" || strings.Contains(fracPart, "0") || fracPart == "" {
				body = whole + "." + frac
			} else {
				body = whole
			}
			if fracPart == "" {
				body = whole + "."
			}
		} else {
			body = whole
		}
		if n < 0 && strings.Trim(body, "0.,") != "" {
			body = "-" + body
		}
	}
	return unquote(prefix) + body + unquote(suffix)
}

// trimOptional drops trailing digits that correspond to '#' placeholders
// when they are zero.
func trimOptional(frac, pattern string) string {
	b := []byte(frac)
	for i := len(b) - 1; i >= 0 && i < len(pattern); i-- {
		if pattern[i] != '#' || b[i] != '0' {
			break
		}
		b = b[:i]
	}
	return string(b)
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

func splitSections(code string) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '"':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				out = append(out, code[start:i])
				start = i + 1
			}
		}
	}
	return append(out, code[start:])
}

// unquote strips quoting and escapes from literal format text.
func unquote(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
		case '\\':
			if i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

type dateToken struct {
	kind string // placeholder run like "yyyy", "m", "AM/PM", or "" for literal
	text string
}

func tokenizeDateFormat(code string) []dateToken {
	var out []dateToken
	for i := 0; i < len(code); {
		ch := code[i]
		switch {
		case ch == '"':
			end := strings.IndexByte(code[i+1:], '"')
			if end < 0 {
				out = append(out, dateToken{text: code[i+1:]})
				return out
			}
			out = append(out, dateToken{text: code[i+1 : i+1+end]})
			i += end + 2
		case ch == '\\' && i+1 < len(code):
			out = append(out, dateToken{text: code[i+1 : i+2]})
			i += 2
		case strings.HasPrefix(strings.ToUpper(code[i:]), "AM/PM"):
			kind := "AM/PM"
			if ch == 'a' {
				kind = "am/pm"
			}
			out = append(out, dateToken{kind: kind})
			i += 5
		case strings.IndexByte("yYmMdDhHsS", ch) >= 0:
			lower := ch | 0x20
			j := i
			for j < len(code) && code[j]|0x20 == lower {
				j++
			}
			out = append(out, dateToken{kind: strings.ToLower(code[i:j])})
			i = j
		default:
			out = append(out, dateToken{text: code[i : i+1]})
			i++
		}
	}
	return out
}

func formatDate(t time.Time, code string) string {
	tokens := tokenizeDateFormat(code)
	twelve := false
	for _, tok := range tokens {
		if tok.kind == "AM/PM" || tok.kind == "am/pm" {
			twelve = true
		}
	}

	// m/mm after an hour or before a second placeholder means minutes.
	minute := make([]bool, len(tokens))
	lastHour := false
	for i, tok := range tokens {
		switch tok.kind[:min(1, len(tok.kind))] {
		case "h":
			lastHour = true
		case "m":
			if len(tok.kind) <= 2 {
				if lastHour {
					minute[i] = true
				} else {
					for _, next := range tokens[i+1:] {
						if next.kind == "" {
							continue
						}
						minute[i] = next.kind[0] == 's'
						break
					}
				}
			}
			lastHour = false
		case "":
		default:
			lastHour = false
		}
	}

	var sb strings.Builder
	for i, tok := range tokens {
		switch tok.kind {
		case "":
			sb.WriteString(tok.text)
		case "yy":
			sb.WriteString(pad2(t.Year() % 100))
		case "y", "yyy", "yyyy":
			sb.WriteString(strconv.Itoa(t.Year()))
		case "m":
			if minute[i] {
				sb.WriteString(strconv.Itoa(t.Minute()))
			} else {
				sb.WriteString(strconv.Itoa(int(t.Month())))
			}
		case "mm":
			if minute[i] {
				sb.WriteString(pad2(t.Minute()))
			} else {
				sb.WriteString(pad2(int(t.Month())))
			}
		case "mmm":
			sb.WriteString(t.Month().String()[:3])
		case "mmmmm":
			sb.WriteString(t.Month().String()[:1])
		case "d":
			sb.WriteString(strconv.Itoa(t.Day()))
		case "dd":
			sb.WriteString(pad2(t.Day()))
		case "ddd":
			sb.WriteString(t.Weekday().String()[:3])
		case "h", "hh":
			h := t.Hour()
			if twelve {
				h %= 12
				if h == 0 {
					h = 12
				}
			}
			if tok.kind == "hh" {
				sb.WriteString(pad2(h))
			} else {
				sb.WriteString(strconv.Itoa(h))
			}
		case "s":
			sb.WriteString(strconv.Itoa(t.Second()))
		case "ss":
			sb.WriteString(pad2(t.Second()))
		case "AM/PM", "am/pm":
			ampm := "AM"
			if t.Hour() >= 12 {
				ampm = "PM"
			}
			if tok.kind == "am/pm" {
				ampm = strings.ToLower(ampm)
			}
			sb.WriteString(ampm)
		default:
			switch {
			case tok.kind[0] == 'm':
				sb.WriteString(t.Month().String())
			case tok.kind[0] == 'd':
				sb.WriteString(t.Weekday().String())
			case tok.kind[0] == 'y':
				sb.WriteString(strconv.Itoa(t.Year()))
			default:
				sb.WriteString(tok.kind)
			}
		}
	}
	return sb.String()
}

func pad2(n int) string {
	if n < 10 && n >= 0 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
