package calc

import (
	"strings"

	"github.com/xuri/efp"
)

// References lists the range operands a formula mentions, in order of
// first appearance and without duplicates. It uses an independent Excel
// tokenizer and does not need the formula to parse with this engine's
// function registry.
func References(formula string) []string {
	formula = normalizeFormula(formula)
	if formula == "" {
		return nil
	}
	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)

	seen := map[string]bool{}
	var out []string
	for _, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref := tok.TValue
		// efp reports TRUE/FALSE and bare names as ranges too
		if _, ok := parseCellOrRange(ref); !ok {
			continue
		}
		key := strings.ToUpper(ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	return out
}

func parseCellOrRange(text string) (*RangeRef, bool) {
	ref, ok, err := parseReference(text)
	if err != nil || !ok {
		return nil, false
	}
	return ref, true
}
