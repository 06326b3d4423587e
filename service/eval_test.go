package service

import (
	"errors"
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]float64{
		"total_debt":          100000,
		"total_equity":        200000,
		"current_assets":      50000,
		"current_liabilities": 25000,
		"inventory":           10000,
	}

	tests := []struct {
		name     string
		expr     string
		expected float64
	}{
		{"division", "total_debt / total_equity", 0.5},
		{"subtraction", "current_assets - current_liabilities", 25000},
		{"parentheses", "(current_assets - inventory) / current_liabilities", 1.6},
		{"operator precedence", "2 + 3 * 4", 14},
		{"unary minus", "-total_debt / total_equity", -0.5},
		{"literal only", "42.5", 42.5},
		{"nested parens", "((total_debt))", 100000},
		{"whitespace", "  total_debt  /  total_equity  ", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, vars)
			if err != nil {
				t.Fatalf("Evaluate(%q) returned error: %v", tt.expr, err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	vars := map[string]float64{"a": 1, "b": 0}

	tests := []struct {
		name string
		expr string
	}{
		{"division by zero", "a / b"},
		{"unknown parameter", "a / missing"},
		{"empty formula", ""},
		{"trailing junk", "a + 1 )"},
		{"unclosed paren", "(a + 1"},
		{"forbidden operator", "a ** 2"},
		{"function call", "max(a, 1)"},
		{"invalid number", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Evaluate(tt.expr, vars); err == nil {
				t.Errorf("Evaluate(%q) expected error, got none", tt.expr)
			}
		})
	}
}

func TestEvaluateListsAllMissingParameters(t *testing.T) {
	vars := map[string]float64{"a": 1}

	_, err := Evaluate("a + ebitda / interest_expense", vars)
	if err == nil {
		t.Fatal("expected missing-parameters error")
	}

	var missing *MissingParametersError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T", err)
	}
	if len(missing.Names) != 2 || missing.Names[0] != "ebitda" || missing.Names[1] != "interest_expense" {
		t.Errorf("missing = %v, expected both unresolved names", missing.Names)
	}
}

func TestNormalizeExpression(t *testing.T) {
	params := []string{"total_debt", "total_equity"}
	got := normalizeExpression("total debt / total equity", params)
	if got != "total_debt / total_equity" {
		t.Errorf("normalizeExpression = %q", got)
	}
}
