package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

const extractionPromptTemplate = `Extract structured data from this financial document.

Document filename: %s
Document content:
%s

Respond with ONLY a JSON object:
{
  "document_type": "balance_sheet, income_statement, cash_flow, loan_agreement, or other",
  "document_summary": "two sentence summary",
  "key_financial_metrics": {"metric_name": value, ...},
  "compliance_relevant_data": {"covenant_or_ratio_name": value, ...},
  "entities": {"entity_role": "name", ...}
}
Use snake_case keys and plain numbers for all values.`

// Extractor turns an uploaded document into a structured field bag and
// stores it next to the original object.
type Extractor struct {
	gen                Generator
	store              *DocumentStore
	objects            ObjectStore
	usage              *UsageTracker
	maxExtractionChars int
}

func NewExtractor(gen Generator, store *DocumentStore, objects ObjectStore, usage *UsageTracker, maxExtractionChars int) *Extractor {
	if maxExtractionChars <= 0 {
		maxExtractionChars = 3000
	}
	return &Extractor{
		gen:                gen,
		store:              store,
		objects:            objects,
		usage:              usage,
		maxExtractionChars: maxExtractionChars,
	}
}

// Extract runs the extraction for one document and records the outcome on
// its metadata. Intended to run in its own goroutine after upload.
func (e *Extractor) Extract(ctx context.Context, doc *model.Document) {
	e.store.UpdateStatus(doc.ID, model.DocStatusExtracting, "")

	fieldsKey, err := e.extract(ctx, doc)
	if err != nil {
		logger.Error(ctx, "document extraction failed", "document_id", doc.ID, "error", err)
		e.store.UpdateStatus(doc.ID, model.DocStatusFailed, err.Error())
		return
	}

	e.store.SetFieldsKey(doc.ID, fieldsKey)
	e.usage.Record(doc.Tenant, "document_extraction")
	logger.Info(ctx, "document extracted", "document_id", doc.ID, "fields_key", fieldsKey)
}

func (e *Extractor) extract(ctx context.Context, doc *model.Document) (string, error) {
	data, err := e.objects.Download(ctx, doc.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("failed to download document: %w", err)
	}

	fields, ok := preExtractedFields(data)
	if !ok {
		content := documentText(data, e.maxExtractionChars)
		if content == "" {
			return "", fmt.Errorf("document contains no extractable text")
		}

		raw, err := e.gen.Generate(ctx, fmt.Sprintf(extractionPromptTemplate, doc.Filename, content), 1500)
		if err != nil {
			return "", fmt.Errorf("extraction call failed: %w", err)
		}
		if err := json.Unmarshal([]byte(extractJSON(raw)), &fields); err != nil {
			return "", fmt.Errorf("extraction response was not valid JSON: %w", err)
		}
	}
	if fields.DocumentType != "" {
		e.store.UpdateType(doc.ID, fields.DocumentType)
	}

	encoded, err := json.Marshal(&fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode extracted fields: %w", err)
	}

	fieldsKey := fmt.Sprintf("fields/%s/%s.json", doc.Tenant, doc.ID)
	if err := e.objects.Upload(ctx, fieldsKey, bytes.NewReader(encoded), int64(len(encoded)), "application/json"); err != nil {
		return "", fmt.Errorf("failed to store extracted fields: %w", err)
	}
	return fieldsKey, nil
}

// preExtractedFields recognizes an upload that is already a structured
// field-bag JSON document and accepts it without a model call.
func preExtractedFields(data []byte) (model.DocumentFields, bool) {
	var fields model.DocumentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return model.DocumentFields{}, false
	}
	if len(fields.FinancialMetrics) == 0 && len(fields.ComplianceData) == 0 && len(fields.Entities) == 0 {
		return model.DocumentFields{}, false
	}
	return fields, true
}

// documentText interprets the upload as UTF-8 text, truncated to the
// extraction budget. Binary uploads yield an empty string.
func documentText(data []byte, maxChars int) string {
	if !utf8.Valid(data) {
		return ""
	}
	s := string(data)
	if len(s) > maxChars {
		s = s[:maxChars]
	}
	return s
}
