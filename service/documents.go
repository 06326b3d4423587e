package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is an in-memory store for document metadata.
// In production, this should be replaced with a database.
type DocumentStore struct {
	mu           sync.RWMutex
	docs         map[string]*model.Document
	maxDocuments int // Maximum documents to keep, 0 = unlimited
}

func NewDocumentStore(maxDocuments int) *DocumentStore {
	if maxDocuments < 0 {
		maxDocuments = 0
	}
	return &DocumentStore{
		docs:         make(map[string]*model.Document),
		maxDocuments: maxDocuments,
	}
}

func (s *DocumentStore) Save(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.docs[doc.ID] = doc

	s.cleanupIfNeeded()
}

// Get returns the document scoped to tenant. A record belonging to another
// tenant is reported as not found so nothing leaks.
func (s *DocumentStore) Get(tenant, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok || doc.Tenant != tenant {
		return nil, ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *DocumentStore) ListByTenant(tenant string) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, doc := range s.docs {
		if doc.Tenant == tenant {
			cp := *doc
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *DocumentStore) UpdateStatus(id, status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Status = status
		doc.ErrorMsg = errMsg
		doc.UpdatedAt = time.Now()
	}
}

// UpdateType records the document type once extraction classifies it.
func (s *DocumentStore) UpdateType(id, documentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.DocumentType = documentType
		doc.UpdatedAt = time.Now()
	}
}

// SetFieldsKey records where the extracted field bag lives and marks the
// document extracted.
func (s *DocumentStore) SetFieldsKey(id, fieldsKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.FieldsKey = fieldsKey
		doc.Status = model.DocStatusExtracted
		doc.ErrorMsg = ""
		doc.UpdatedAt = time.Now()
	}
}

func (s *DocumentStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// cleanupIfNeeded removes oldest documents if store exceeds maxDocuments
// Must be called with lock held
func (s *DocumentStore) cleanupIfNeeded() {
	if s.maxDocuments <= 0 {
		return // Unlimited
	}

	if len(s.docs) <= s.maxDocuments {
		return
	}

	docs := make([]*model.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	removeCount := len(docs) - s.maxDocuments
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old document",
			"document_id", docs[i].ID,
			"created_at", docs[i].CreatedAt,
		)
		delete(s.docs, docs[i].ID)
	}
}

// Count returns the number of documents in the store.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// DocumentService reads extracted field bags for the pipelines.
type DocumentService struct {
	store   *DocumentStore
	objects ObjectStore
}

func NewDocumentService(store *DocumentStore, objects ObjectStore) *DocumentService {
	return &DocumentService{store: store, objects: objects}
}

// FetchFields returns the extracted field bag for one document, scoped to
// tenant.
func (s *DocumentService) FetchFields(ctx context.Context, tenant, documentID string) (*model.DocumentFields, error) {
	doc, err := s.store.Get(tenant, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.DocStatusExtracted || doc.FieldsKey == "" {
		return nil, fmt.Errorf("document %s has no extracted data", documentID)
	}

	data, err := s.objects.Download(ctx, doc.FieldsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download extracted data: %w", err)
	}

	var fields model.DocumentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extracted data: %w", err)
	}

	fields.DocumentID = doc.ID
	fields.Filename = doc.Filename
	fields.DocumentType = doc.DocumentType
	return &fields, nil
}

// FetchAll fetches field bags for all requested documents concurrently.
// Documents that cannot be fetched are logged and skipped; the combined set
// is unordered evidence for the caller.
func (s *DocumentService) FetchAll(ctx context.Context, tenant string, documentIDs []string) []*model.DocumentFields {
	var (
		mu   sync.Mutex
		bags []*model.DocumentFields
		g    errgroup.Group
	)

	for _, id := range documentIDs {
		id := id
		g.Go(func() error {
			fields, err := s.FetchFields(ctx, tenant, id)
			if err != nil {
				logger.Warn(ctx, "skipping document", "document_id", id, "error", err)
				return nil
			}
			mu.Lock()
			bags = append(bags, fields)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return bags
}
