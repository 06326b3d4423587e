package model

import (
	"time"
)

// FormulaSpec is the structured representation of a financial calculation
// derived from natural language.
type FormulaSpec struct {
	Expression  string   `json:"formula"`
	Parameters  []string `json:"parameters"`
	Threshold   string   `json:"threshold,omitempty"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// FormulaSpec.Source values: how the spec was derived.
const (
	FormulaSourceModel    = "model"
	FormulaSourceFallback = "fallback"
	FormulaSourceUnknown  = "unknown"
)

// Compliance status values
const (
	ComplianceCalculated   = "calculated"
	ComplianceCompliant    = "compliant"
	ComplianceNonCompliant = "non_compliant"
	ComplianceFormatError  = "threshold_format_error"
	ComplianceParseError   = "threshold_parse_error"
	ComplianceError        = "error"
)

// CalculationResult captures one formula evaluation, including structured
// failures. Result is nil whenever Success is false.
type CalculationResult struct {
	Success          bool               `json:"success"`
	Result           *float64           `json:"result,omitempty"`
	Formula          string             `json:"formula_used,omitempty"`
	Parameters       map[string]float64 `json:"parameters_used,omitempty"`
	Threshold        string             `json:"threshold,omitempty"`
	ComplianceStatus string             `json:"compliance_status"`
	ErrorMsg         string             `json:"error,omitempty"`
}

// RequestSummary describes the request a report answers.
type RequestSummary struct {
	OriginalPrompt    string    `json:"original_prompt"`
	CalculationType   string    `json:"calculation_type"`
	DocumentsAnalyzed int       `json:"documents_analyzed"`
	Timestamp         time.Time `json:"timestamp"`
}

// CalculationDetails summarizes the formula evaluation for the report.
type CalculationDetails struct {
	Formula         string             `json:"formula"`
	FormulaSource   string             `json:"formula_source,omitempty"`
	ParametersFound map[string]float64 `json:"parameters_found"`
	Result          *float64           `json:"result,omitempty"`
	Success         bool               `json:"success"`
}

// ComplianceAssessment is the verdict section of the report.
type ComplianceAssessment struct {
	Status          string `json:"status"`
	Threshold       string `json:"threshold,omitempty"`
	MeetsCompliance bool   `json:"meets_compliance"`
}

// DocumentSource cites one document that contributed to a report.
type DocumentSource struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
}

// ComplianceReport is the read-only aggregate returned to the user. It is
// built once per pipeline run and never mutated afterwards.
type ComplianceReport struct {
	RequestSummary       RequestSummary       `json:"request_summary"`
	CalculationDetails   CalculationDetails   `json:"calculation_details"`
	ComplianceAssessment ComplianceAssessment `json:"compliance_assessment"`
	DocumentSources      []DocumentSource     `json:"document_sources"`
	Recommendations      []string             `json:"recommendations"`
}

// ComplianceOutcome is the compliance pipeline result stored on the request
// record.
type ComplianceOutcome struct {
	Report            *ComplianceReport  `json:"compliance_result"`
	Calculation       *CalculationResult `json:"calculation_details"`
	DocumentsAnalyzed int                `json:"documents_analyzed"`
}

// QAAnswer is the structured answer to a free-form document question.
type QAAnswer struct {
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources"`
	Confidence  string   `json:"confidence"`
	DataPoints  []string `json:"data_points,omitempty"`
	Limitations string   `json:"limitations,omitempty"`
}

// QAOutcome is the query pipeline result stored on the request record.
type QAOutcome struct {
	Answer            *QAAnswer `json:"answer"`
	DocumentsAnalyzed int       `json:"documents_analyzed"`
}

// UsageDay aggregates billable operations for one tenant on one day.
type UsageDay struct {
	Tenant     string         `json:"tenant"`
	Date       string         `json:"date"`
	Operations map[string]int `json:"operations"`
	TotalCost  float64        `json:"total_cost"`
}
