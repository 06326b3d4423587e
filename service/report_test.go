package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/clearledger/finsight/model"
)

func TestReportGenerate(t *testing.T) {
	result := 0.5
	spec := model.FormulaSpec{
		Expression:  "total_debt / total_equity",
		Parameters:  []string{"total_debt", "total_equity"},
		Threshold:   "< 2.0",
		Description: "Debt-to-equity ratio",
		Source:      model.FormulaSourceModel,
	}
	calc := &model.CalculationResult{
		Success:          true,
		Result:           &result,
		Formula:          spec.Expression,
		Parameters:       map[string]float64{"total_debt": 100000, "total_equity": 200000},
		Threshold:        spec.Threshold,
		ComplianceStatus: model.ComplianceCompliant,
	}
	docs := []*model.DocumentFields{balanceSheetFields()}

	report := NewReportGenerator().Generate("Is the debt-to-equity ratio below 2.0?", spec, calc, docs)

	if report.RequestSummary.DocumentsAnalyzed != 1 {
		t.Errorf("documents analyzed = %d", report.RequestSummary.DocumentsAnalyzed)
	}
	if report.RequestSummary.Timestamp.IsZero() {
		t.Error("expected report timestamp")
	}
	if report.CalculationDetails.FormulaSource != model.FormulaSourceModel {
		t.Errorf("formula source = %q", report.CalculationDetails.FormulaSource)
	}
	if !report.ComplianceAssessment.MeetsCompliance {
		t.Error("expected compliance met")
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
	if report.DocumentSources[0].Filename != "balance_sheet_q3.txt" {
		t.Errorf("source filename = %q", report.DocumentSources[0].Filename)
	}
}

func TestReportNonCompliantRecommendation(t *testing.T) {
	result := 2.5
	calc := &model.CalculationResult{
		Success:          true,
		Result:           &result,
		Threshold:        "< 2.0",
		ComplianceStatus: model.ComplianceNonCompliant,
	}

	report := NewReportGenerator().Generate("check", model.FormulaSpec{}, calc, nil)
	if report.ComplianceAssessment.MeetsCompliance {
		t.Error("non-compliant result must not be marked compliant")
	}

	joined := strings.Join(report.Recommendations, " ")
	if !strings.Contains(joined, "2.5000") {
		t.Errorf("recommendations should cite the calculated value: %v", report.Recommendations)
	}
}

func TestReportLeverageNotes(t *testing.T) {
	spec := model.FormulaSpec{
		Expression:  "total_debt / total_equity",
		Description: "Debt-to-equity ratio",
	}

	tests := []struct {
		name   string
		result float64
		want   string
	}{
		{"high leverage", 2.5, "high risk"},
		{"conservative", 0.3, "conservative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := &model.CalculationResult{
				Success:          true,
				Result:           &tt.result,
				ComplianceStatus: model.ComplianceCalculated,
			}
			report := NewReportGenerator().Generate("check", spec, calc, nil)
			joined := strings.ToLower(strings.Join(report.Recommendations, " "))
			if !strings.Contains(joined, tt.want) {
				t.Errorf("recommendations missing %q note: %v", tt.want, report.Recommendations)
			}
		})
	}

	// A ratio inside the band gets neither note.
	mid := 1.0
	calc := &model.CalculationResult{Success: true, Result: &mid, ComplianceStatus: model.ComplianceCalculated}
	report := NewReportGenerator().Generate("check", spec, calc, nil)
	joined := strings.ToLower(strings.Join(report.Recommendations, " "))
	if strings.Contains(joined, "high risk") || strings.Contains(joined, "conservative") {
		t.Errorf("unexpected leverage note for mid-band ratio: %v", report.Recommendations)
	}
}

func TestReportSerializes(t *testing.T) {
	calc := &model.CalculationResult{
		Success:          false,
		ComplianceStatus: model.ComplianceError,
		ErrorMsg:         "missing parameters: ebitda",
	}
	report := NewReportGenerator().Generate("check", model.FormulaSpec{Source: model.FormulaSourceUnknown}, calc, nil)

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	if !strings.Contains(string(data), "request_summary") {
		t.Errorf("unexpected report shape: %s", data)
	}
}
