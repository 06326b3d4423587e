package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

// AnalysisService accepts analysis requests and runs them to a terminal
// state before returning. Records stay readable through GetStatus until
// their retention deadline.
type AnalysisService struct {
	requests   *RequestStore
	classifier *IntentClassifier
	compliance *ComplianceService
	qa         *QAService
	usage      *UsageTracker
}

func NewAnalysisService(requests *RequestStore, classifier *IntentClassifier, compliance *ComplianceService, qa *QAService, usage *UsageTracker) *AnalysisService {
	return &AnalysisService{
		requests:   requests,
		classifier: classifier,
		compliance: compliance,
		qa:         qa,
		usage:      usage,
	}
}

// Submit records the request, runs the full pipeline synchronously, and
// returns the terminal record. A panic anywhere in the pipeline is caught
// once and written as the request's failed state; the record is never left
// non-terminal.
func (s *AnalysisService) Submit(ctx context.Context, tenant, prompt string, fileIDs []string) *model.ProcessingRequest {
	req := &model.ProcessingRequest{
		ID:      uuid.New().String(),
		Tenant:  tenant,
		Prompt:  prompt,
		FileIDs: fileIDs,
	}
	s.requests.Create(req)
	logger.Info(ctx, "analysis request accepted", "analysis_id", req.ID, "documents", len(fileIDs))

	s.process(ctx, req.ID, tenant, prompt, fileIDs)

	done, err := s.requests.Get(tenant, req.ID)
	if err != nil {
		// The record was just written; only a concurrent retention sweep
		// could remove it.
		logger.Warn(ctx, "request vanished after processing", "analysis_id", req.ID, "error", err)
		return req
	}
	return done
}

// GetStatus returns the tenant's view of a request.
func (s *AnalysisService) GetStatus(tenant, id string) (*model.ProcessingRequest, error) {
	return s.requests.Get(tenant, id)
}

func (s *AnalysisService) process(ctx context.Context, id, tenant, prompt string, fileIDs []string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "analysis panicked", "analysis_id", id, "panic", r)
			if err := s.requests.Fail(id, fmt.Sprintf("internal error: %v", r)); err != nil {
				logger.Warn(ctx, "could not record panic failure", "analysis_id", id, "error", err)
			}
		}
	}()

	intent := s.classifier.Classify(ctx, prompt)
	if err := s.requests.SetIntent(id, intent); err != nil {
		logger.Warn(ctx, "could not record intent", "analysis_id", id, "error", err)
		return
	}
	logger.Info(ctx, "request routed", "analysis_id", id, "intent", intent)

	var (
		result any
		err    error
	)
	switch intent {
	case model.IntentCompliance:
		result, err = s.compliance.Run(ctx, tenant, prompt, fileIDs)
	default:
		result, err = s.qa.Run(ctx, tenant, prompt, fileIDs)
	}

	if err != nil {
		logger.Error(ctx, "analysis failed", "analysis_id", id, "intent", intent, "error", err)
		if ferr := s.requests.Fail(id, err.Error()); ferr != nil {
			logger.Warn(ctx, "could not record failure", "analysis_id", id, "error", ferr)
		}
		return
	}

	if cerr := s.requests.Complete(id, result); cerr != nil {
		logger.Warn(ctx, "could not record completion", "analysis_id", id, "error", cerr)
		return
	}

	switch intent {
	case model.IntentCompliance:
		s.usage.Record(tenant, "compliance_check")
	default:
		s.usage.Record(tenant, "document_qa")
	}
}
