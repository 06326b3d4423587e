package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/clearledger/finsight/model"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrTerminalState   = errors.New("request already in terminal state")
)

// RequestStore is an in-memory store for processing requests.
// In production, this should be replaced with a database.
//
// Records are time-boxed: each carries a retention deadline after which the
// store may reclaim it, so nothing may rely on state surviving past that
// deadline. Terminal records are immutable.
type RequestStore struct {
	mu        sync.RWMutex
	requests  map[string]*model.ProcessingRequest
	retention time.Duration
}

// NewRequestStore creates a store whose records expire after retention.
// The duration is taken as-is; a non-positive retention means records are
// expired on arrival.
func NewRequestStore(retention time.Duration) *RequestStore {
	return &RequestStore{
		requests:  make(map[string]*model.ProcessingRequest),
		retention: retention,
	}
}

// Create records a new request with status analyzing and stamps its
// retention deadline.
func (s *RequestStore) Create(req *model.ProcessingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	req.Status = model.StatusAnalyzing
	req.CreatedAt = now
	req.ExpiresAt = now.Add(s.retention)
	s.requests[req.ID] = req

	s.sweepExpired(now)
}

// Get returns a copy of the record, scoped to the calling tenant. A tenant
// mismatch is reported as access denied; a missing or expired record as not
// found. Nothing else leaks.
func (s *RequestStore) Get(tenant, id string) (*model.ProcessingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok || time.Now().After(req.ExpiresAt) {
		return nil, ErrRequestNotFound
	}
	if req.Tenant != tenant {
		return nil, ErrAccessDenied
	}

	cp := *req
	return &cp, nil
}

// SetIntent records the routing decision for a request.
func (s *RequestStore) SetIntent(id, intent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Terminal() {
		return ErrTerminalState
	}
	req.Intent = intent
	return nil
}

// Complete writes the terminal success state with its result payload.
func (s *RequestStore) Complete(id string, result any) error {
	return s.finish(id, model.StatusCompleted, result, "")
}

// Fail writes the terminal failure state with its error description.
func (s *RequestStore) Fail(id, errMsg string) error {
	return s.finish(id, model.StatusFailed, nil, errMsg)
}

func (s *RequestStore) finish(id, status string, result any, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Terminal() {
		return ErrTerminalState
	}

	now := time.Now()
	req.Status = status
	req.Result = result
	req.ErrorMsg = errMsg
	req.CompletedAt = &now
	return nil
}

// sweepExpired reclaims records past their retention deadline.
// Must be called with lock held.
func (s *RequestStore) sweepExpired(now time.Time) {
	for id, req := range s.requests {
		if now.After(req.ExpiresAt) {
			slog.Debug("reclaiming expired request", "request_id", id)
			delete(s.requests, id)
		}
	}
}

// Count returns the number of records in the store.
func (s *RequestStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
