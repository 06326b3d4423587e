package model

import (
	"time"
)

// Document is the metadata record for one uploaded financial document.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Tenant       string    `json:"tenant"`
	DocumentType string    `json:"document_type"`
	ObjectKey    string    `json:"object_key"`
	FieldsKey    string    `json:"fields_key,omitempty"`
	Status       string    `json:"status"`
	ErrorMsg     string    `json:"error_msg,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Document status constants
const (
	DocStatusPending    = "pending"
	DocStatusExtracting = "extracting"
	DocStatusExtracted  = "extracted"
	DocStatusFailed     = "extraction_failed"
)

// DocumentFields is the normalized extracted data for one document, produced
// by the extraction step and read-only afterwards. Field values may be
// numeric, textual, or nested structures.
type DocumentFields struct {
	DocumentID       string         `json:"document_id"`
	Filename         string         `json:"filename"`
	DocumentType     string         `json:"document_type"`
	Summary          string         `json:"document_summary,omitempty"`
	FinancialMetrics map[string]any `json:"key_financial_metrics"`
	ComplianceData   map[string]any `json:"compliance_relevant_data"`
	Entities         map[string]any `json:"entities"`
}

// Sections returns the three field sections in scan order.
func (f *DocumentFields) Sections() []map[string]any {
	return []map[string]any{f.FinancialMetrics, f.ComplianceData, f.Entities}
}
