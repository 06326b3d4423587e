package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MissingParametersError lists every identifier in a formula that has no
// resolved value. Callers surface the full list, never a partial result.
type MissingParametersError struct {
	Names []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing parameters: %s", strings.Join(e.Names, ", "))
}

// Evaluate computes an arithmetic formula over named values. The grammar is
// deliberately small: + - * /, parentheses, unary minus, numeric literals
// and identifiers. Anything else is rejected rather than interpreted.
//
// All identifiers are checked before any arithmetic runs, so a formula with
// several unresolved parameters reports every one of them at once.
func Evaluate(expr string, vars map[string]float64) (float64, error) {
	if missing := missingIdentifiers(expr, vars); len(missing) > 0 {
		return 0, &MissingParametersError{Names: missing}
	}

	p := &exprParser{input: expr, vars: vars}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("formula produced a non-finite result")
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
	vars  map[string]float64
}

// parseExpr handles + and -.
func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles * and /.
func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

// parseFactor handles literals, identifiers, parentheses and unary minus.
func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of formula")
	}

	c := p.input[p.pos]
	switch {
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseIdent()
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
		p.pos++
	}
	name := p.input[start:p.pos]
	v, ok := p.vars[name]
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	return v, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// missingIdentifiers scans the formula for identifiers not bound in vars.
func missingIdentifiers(expr string, vars map[string]float64) []string {
	var missing []string
	seen := make(map[string]bool)

	runes := []rune(expr)
	for i := 0; i < len(runes); {
		if !isIdentStart(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isIdentPart(runes[i]) {
			i++
		}
		name := string(runes[start:i])
		if _, ok := vars[name]; !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	return missing
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// normalizeExpression rewrites parameter references in a formula to their
// canonical snake_case names so "Total Debt / Total Equity" evaluates
// against the resolved parameter map.
func normalizeExpression(expr string, params []string) string {
	for _, name := range params {
		spaced := strings.ReplaceAll(name, "_", " ")
		if spaced != name {
			expr = strings.ReplaceAll(expr, spaced, name)
		}
	}
	return expr
}
