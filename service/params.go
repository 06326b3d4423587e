package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

const paramPromptTemplate = `Find the value of "%s" in the following financial document data.

%s

Respond with ONLY the numeric value (no currency symbols, no commas, no explanation).
If the value is not present, respond with exactly: NOT_FOUND`

// embeddedNumberPattern picks the first numeric literal out of a textual
// field value once separators are stripped.
var embeddedNumberPattern = regexp.MustCompile(`-?[0-9]+\.?[0-9]*`)

// nullSentinels are extracted values that mean "no data", not zero.
var nullSentinels = map[string]bool{
	"": true, "null": true, "none": true, "n/a": true, "na": true, "-": true,
}

// ParameterResolver locates numeric parameter values in extracted document
// fields, asking the model only when a direct key match fails.
type ParameterResolver struct {
	gen             Generator
	maxContextChars int
}

func NewParameterResolver(gen Generator, maxContextChars int) *ParameterResolver {
	if maxContextChars <= 0 {
		maxContextChars = 8000
	}
	return &ParameterResolver{gen: gen, maxContextChars: maxContextChars}
}

// Resolve returns the values it found and the names it could not. Direct
// key matching runs first so clean extractions never cost a model call.
func (r *ParameterResolver) Resolve(ctx context.Context, params []string, docs []*model.DocumentFields) (map[string]float64, []string) {
	resolved := make(map[string]float64)
	var missing []string

	for _, name := range params {
		if v, ok := directMatch(name, docs); ok {
			resolved[name] = v
			continue
		}
		if v, ok := r.modelMatch(ctx, name, docs); ok {
			resolved[name] = v
			continue
		}
		missing = append(missing, name)
	}
	return resolved, missing
}

// directMatch scans every section of every document for a key that
// normalizes to the parameter name. "Total Debt" matches total_debt.
func directMatch(name string, docs []*model.DocumentFields) (float64, bool) {
	want := normalizeKey(name)
	for _, doc := range docs {
		for _, section := range doc.Sections() {
			for key, raw := range section {
				if normalizeKey(key) != want {
					continue
				}
				if v, ok := parseNumeric(raw); ok {
					return v, true
				}
			}
		}
	}
	return 0, false
}

func (r *ParameterResolver) modelMatch(ctx context.Context, name string, docs []*model.DocumentFields) (float64, bool) {
	docContext := buildContext(docs, r.maxContextChars)
	if docContext == "" {
		return 0, false
	}

	raw, err := r.gen.Generate(ctx, fmt.Sprintf(paramPromptTemplate, name, docContext), 100)
	if err != nil {
		logger.Warn(ctx, "parameter lookup call failed", "parameter", name, "error", err)
		return 0, false
	}

	answer := strings.TrimSpace(raw)
	if strings.Contains(strings.ToUpper(answer), "NOT_FOUND") {
		return 0, false
	}
	return parseNumeric(answer)
}

// normalizeKey lowercases and strips separators so "Total Debt",
// "total-debt" and "total_debt" all compare equal.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case ' ', '_', '-', '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseNumeric converts a raw extracted value to a float. Handles currency
// symbols, thousands separators, percentages ("2.5%" -> 0.025), multiplier
// suffixes ("1.5x" -> 1.5), and accounting negatives ("(500)" -> -500).
func parseNumeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parseNumericString(v)
	default:
		return 0, false
	}
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if nullSentinels[strings.ToLower(s)] {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(strings.ToLower(s), "x")

	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	if nullSentinels[strings.ToLower(cleaned)] {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		// Values like "1,234,567 USD (unaudited)" still carry a usable
		// figure; take the first embedded numeric literal.
		m := embeddedNumberPattern.FindString(cleaned)
		if m == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
	}
	if percent {
		f /= 100
	}
	if negative {
		f = -f
	}
	return f, true
}

// buildContext flattens document fields into a textual context for the
// model, truncated so the prompt stays within bounds.
func buildContext(docs []*model.DocumentFields, maxChars int) string {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "Document: %s (%s)\n", doc.Filename, doc.DocumentType)
		if doc.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", doc.Summary)
		}
		for _, section := range doc.Sections() {
			for key, val := range section {
				fmt.Fprintf(&b, "%s: %v\n", key, val)
			}
		}
		b.WriteString("\n")
		if b.Len() > maxChars {
			break
		}
	}
	out := b.String()
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}
