package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

const formulaPromptTemplate = `You are a financial compliance analyst. Given a user request, produce the calculation needed to verify it.

Canonical ratio definitions:
- Debt-to-Equity Ratio = total_debt / total_equity
- Current Ratio = current_assets / current_liabilities
- Quick Ratio = (current_assets - inventory) / current_liabilities
- Debt Ratio = total_debt / total_assets
- Return on Assets = net_income / total_assets
- Return on Equity = net_income / total_equity
- Working Capital = current_assets - current_liabilities
- Interest Coverage Ratio = ebitda / interest_expense

User request: %s

Respond with ONLY a JSON object, no other text:
{
  "formula": "arithmetic expression using parameter names, e.g. total_debt / total_equity",
  "parameters": ["list", "of", "parameter_names"],
  "threshold": "comparison and limit, e.g. < 2.0, or empty string if none",
  "description": "one sentence describing the check"
}`

// fallbackRules maps ratio keywords to known covenant calculations. Used
// when the model cannot produce a usable formula. A rule matches when any
// keyword phrase appears, or when every word in allWords does.
var fallbackRules = []struct {
	keywords []string
	allWords []string
	spec     model.FormulaSpec
}{
	{
		allWords: []string{"debt", "equity"},
		spec: model.FormulaSpec{
			Expression:  "total_debt / total_equity",
			Parameters:  []string{"total_debt", "total_equity"},
			Description: "Debt-to-equity ratio",
		},
	},
	{
		keywords: []string{"current ratio"},
		spec: model.FormulaSpec{
			Expression:  "current_assets / current_liabilities",
			Parameters:  []string{"current_assets", "current_liabilities"},
			Description: "Current ratio",
		},
	},
	{
		keywords: []string{"quick ratio", "acid test", "acid-test"},
		spec: model.FormulaSpec{
			Expression:  "(current_assets - inventory) / current_liabilities",
			Parameters:  []string{"current_assets", "inventory", "current_liabilities"},
			Description: "Quick ratio",
		},
	},
	{
		keywords: []string{"debt ratio", "debt-to-assets", "debt to assets"},
		spec: model.FormulaSpec{
			Expression:  "total_debt / total_assets",
			Parameters:  []string{"total_debt", "total_assets"},
			Description: "Debt ratio",
		},
	},
	{
		keywords: []string{"interest coverage", "times interest earned"},
		spec: model.FormulaSpec{
			Expression:  "ebitda / interest_expense",
			Parameters:  []string{"ebitda", "interest_expense"},
			Description: "Interest coverage ratio",
		},
	},
	{
		keywords: []string{"return on assets", "roa"},
		spec: model.FormulaSpec{
			Expression:  "net_income / total_assets",
			Parameters:  []string{"net_income", "total_assets"},
			Description: "Return on assets",
		},
	},
	{
		keywords: []string{"working capital"},
		spec: model.FormulaSpec{
			Expression:  "current_assets - current_liabilities",
			Parameters:  []string{"current_assets", "current_liabilities"},
			Description: "Working capital",
		},
	},
}

// thresholdPattern matches phrases like "below 2.0", "under 1.5x",
// "at least 3", "not exceed 0.6" in a user prompt.
var thresholdPattern = regexp.MustCompile(
	`(?i)(below|under|less than|not exceed(?:ing)?|at most|maximum(?: of)?|above|over|greater than|more than|at least|minimum(?: of)?)\s+\$?([0-9]+(?:\.[0-9]+)?)`)

// symbolThresholdPattern matches thresholds written symbolically in the
// prompt, such as "< 2.0" or ">= 1.25".
var symbolThresholdPattern = regexp.MustCompile(`(<=|>=|<|>)\s*\$?([0-9]+(?:\.[0-9]+)?)`)

var upperBoundWords = map[string]bool{
	"below": true, "under": true, "less than": true, "not exceed": true,
	"not exceeding": true, "at most": true, "maximum": true, "maximum of": true,
}

// FormulaDeriver turns a compliance request into a FormulaSpec.
type FormulaDeriver struct {
	gen Generator
}

func NewFormulaDeriver(gen Generator) *FormulaDeriver {
	return &FormulaDeriver{gen: gen}
}

// Derive asks the model for the calculation, falling back to the built-in
// rule table when the model is unavailable or returns garbage. The Source
// field records which path produced the spec.
func (d *FormulaDeriver) Derive(ctx context.Context, prompt string) model.FormulaSpec {
	if spec, ok := d.fromModel(ctx, prompt); ok {
		spec.Source = model.FormulaSourceModel
		if spec.Threshold == "" {
			spec.Threshold = scanThreshold(prompt)
		}
		return spec
	}

	if spec, ok := fromFallback(prompt); ok {
		logger.Info(ctx, "using fallback formula", "description", spec.Description)
		spec.Source = model.FormulaSourceFallback
		spec.Threshold = scanThreshold(prompt)
		return spec
	}

	logger.Warn(ctx, "could not derive formula", "prompt_len", len(prompt))
	return model.FormulaSpec{
		Expression: "unknown",
		Parameters: []string{},
		Source:     model.FormulaSourceUnknown,
	}
}

func (d *FormulaDeriver) fromModel(ctx context.Context, prompt string) (model.FormulaSpec, bool) {
	raw, err := d.gen.Generate(ctx, fmt.Sprintf(formulaPromptTemplate, prompt), 500)
	if err != nil {
		logger.Warn(ctx, "formula derivation call failed", "error", err)
		return model.FormulaSpec{}, false
	}

	var spec model.FormulaSpec
	if err := json.Unmarshal([]byte(extractJSON(raw)), &spec); err != nil {
		logger.Warn(ctx, "formula response was not valid JSON", "error", err)
		return model.FormulaSpec{}, false
	}
	if spec.Expression == "" || len(spec.Parameters) == 0 {
		return model.FormulaSpec{}, false
	}
	return spec, true
}

func fromFallback(prompt string) (model.FormulaSpec, bool) {
	lower := strings.ToLower(prompt)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.spec, true
			}
		}
		if len(rule.allWords) == 0 {
			continue
		}
		matched := true
		for _, w := range rule.allWords {
			if !strings.Contains(lower, w) {
				matched = false
				break
			}
		}
		if matched {
			return rule.spec, true
		}
	}
	return model.FormulaSpec{}, false
}

// scanThreshold extracts a comparison threshold from the prompt text,
// checking symbolic form before comparison words.
func scanThreshold(prompt string) string {
	if m := symbolThresholdPattern.FindStringSubmatch(prompt); m != nil {
		return m[1] + " " + m[2]
	}

	m := thresholdPattern.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	word := strings.ToLower(strings.TrimSpace(m[1]))
	if upperBoundWords[word] {
		return "< " + m[2]
	}
	return "> " + m[2]
}

// extractJSON strips markdown code fences and surrounding prose so a
// response like "```json\n{...}\n```" still parses.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
