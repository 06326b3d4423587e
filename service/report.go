package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/clearledger/finsight/model"
)

// ReportGenerator assembles the final compliance report from pipeline
// results. Report construction is deterministic; no model calls happen
// after the calculation stage.
type ReportGenerator struct{}

func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

func (g *ReportGenerator) Generate(prompt string, spec model.FormulaSpec, calc *model.CalculationResult, docs []*model.DocumentFields) *model.ComplianceReport {
	report := &model.ComplianceReport{
		RequestSummary: model.RequestSummary{
			OriginalPrompt:    prompt,
			CalculationType:   spec.Description,
			DocumentsAnalyzed: len(docs),
			Timestamp:         time.Now().UTC(),
		},
		CalculationDetails: model.CalculationDetails{
			Formula:         calc.Formula,
			FormulaSource:   spec.Source,
			ParametersFound: calc.Parameters,
			Result:          calc.Result,
			Success:         calc.Success,
		},
		ComplianceAssessment: model.ComplianceAssessment{
			Status:          calc.ComplianceStatus,
			Threshold:       calc.Threshold,
			MeetsCompliance: calc.ComplianceStatus == model.ComplianceCompliant,
		},
		DocumentSources: make([]model.DocumentSource, 0, len(docs)),
		Recommendations: recommendations(spec, calc),
	}

	for _, doc := range docs {
		report.DocumentSources = append(report.DocumentSources, model.DocumentSource{
			DocumentID:   doc.DocumentID,
			Filename:     doc.Filename,
			DocumentType: doc.DocumentType,
		})
	}
	return report
}

func recommendations(spec model.FormulaSpec, calc *model.CalculationResult) []string {
	recs := statusRecommendations(calc)

	// Leverage-specific notes for debt/equity style ratios.
	if calc.Success && calc.Result != nil && isLeverageRatio(spec) {
		switch {
		case *calc.Result > 2.0:
			recs = append(recs, "The leverage level is high risk; debt exceeds twice the equity base.")
		case *calc.Result < 0.5:
			recs = append(recs, "The capital structure is conservative; there may be room for additional leverage.")
		}
	}
	return recs
}

func isLeverageRatio(spec model.FormulaSpec) bool {
	text := strings.ToLower(spec.Expression + " " + spec.Description)
	return strings.Contains(text, "debt") && strings.Contains(text, "equity")
}

func statusRecommendations(calc *model.CalculationResult) []string {
	switch calc.ComplianceStatus {
	case model.ComplianceCompliant:
		return []string{
			"The calculated value satisfies the required threshold.",
			"Re-verify after the next reporting period to confirm continued compliance.",
		}
	case model.ComplianceNonCompliant:
		result := ""
		if calc.Result != nil {
			result = fmt.Sprintf(" (calculated value: %.4f)", *calc.Result)
		}
		return []string{
			fmt.Sprintf("The calculated value does not satisfy the threshold %s%s.", calc.Threshold, result),
			"Review the underlying covenant terms and consult the counterparty before the next reporting date.",
		}
	case model.ComplianceCalculated:
		return []string{
			"No threshold was specified; the value is reported without a compliance verdict.",
		}
	case model.ComplianceFormatError, model.ComplianceParseError:
		return []string{
			"The threshold could not be interpreted. Restate it as a comparison, for example \"< 2.0\".",
		}
	default:
		return []string{
			"The calculation could not be completed. Verify that the referenced documents contain the required figures.",
		}
	}
}
