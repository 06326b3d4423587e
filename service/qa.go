package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

const qaPromptTemplate = `You are a financial analyst answering questions about a set of documents.

Document data:
%s

Question: %s

Answer using ONLY the document data above. Respond with a JSON object:
{
  "answer": "direct answer to the question",
  "sources": ["filenames of documents the answer came from"],
  "confidence": "high, medium, or low",
  "data_points": ["specific figures used"],
  "limitations": "anything the documents do not cover, or empty string"
}`

// QAService answers free-form questions about extracted document data.
type QAService struct {
	gen             Generator
	docs            *DocumentService
	maxContextChars int
}

func NewQAService(gen Generator, docs *DocumentService, maxContextChars int) *QAService {
	if maxContextChars <= 0 {
		maxContextChars = 8000
	}
	return &QAService{gen: gen, docs: docs, maxContextChars: maxContextChars}
}

// Run answers the question against the tenant's documents. Unlike the
// compliance pipeline, a model failure here fails the request; there is no
// deterministic fallback for an open question.
func (s *QAService) Run(ctx context.Context, tenant, prompt string, fileIDs []string) (*model.QAOutcome, error) {
	bags := s.docs.FetchAll(ctx, tenant, fileIDs)
	if len(bags) == 0 {
		return nil, fmt.Errorf("no analyzable documents found")
	}

	docContext := buildContext(bags, s.maxContextChars)
	raw, err := s.gen.Generate(ctx, fmt.Sprintf(qaPromptTemplate, docContext, prompt), 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	answer := parseAnswer(ctx, raw, bags)
	return &model.QAOutcome{
		Answer:            answer,
		DocumentsAnalyzed: len(bags),
	}, nil
}

// parseAnswer decodes the structured response, degrading to the raw text
// when the model did not return valid JSON.
func parseAnswer(ctx context.Context, raw string, bags []*model.DocumentFields) *model.QAAnswer {
	var answer model.QAAnswer
	if err := json.Unmarshal([]byte(extractJSON(raw)), &answer); err == nil && answer.Answer != "" {
		return &answer
	}

	logger.Warn(ctx, "answer was not valid JSON, returning raw text")
	sources := make([]string, 0, len(bags))
	for _, bag := range bags {
		sources = append(sources, bag.Filename)
	}
	return &model.QAAnswer{
		Answer:     raw,
		Sources:    sources,
		Confidence: "low",
	}
}
