package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGenerator scripts model responses for handler tests.
type stubGenerator struct {
	fn func(prompt string) (string, error)
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	return s.fn(prompt)
}

// memObjectStore is an in-memory service.ObjectStore.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (m *memObjectStore) Upload(_ context.Context, name string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *memObjectStore) Download(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return data, nil
}

func (m *memObjectStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memObjectStore) GetPresignedURL(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return "", fmt.Errorf("object %s not found", name)
	}
	return "mem://" + name, nil
}

// asTenant injects the tenant claim the auth middleware would set.
func asTenant(tenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("username", "tester")
		c.Set("tenant", tenant)
		c.Next()
	}
}

func seedExtractedDocument(t *testing.T, store *service.DocumentStore, objects *memObjectStore, id, tenant string) {
	t.Helper()

	fields := &model.DocumentFields{
		Filename:     "balance_sheet_q3.txt",
		DocumentType: "balance_sheet",
		FinancialMetrics: map[string]any{
			"total_debt":   100000.0,
			"total_equity": 200000.0,
		},
		ComplianceData: map[string]any{},
		Entities:       map[string]any{},
	}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal fields: %v", err)
	}

	key := fmt.Sprintf("%s/%s/fields.json", tenant, id)
	if err := objects.Upload(context.Background(), key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		t.Fatalf("upload fields: %v", err)
	}

	objectKey := fmt.Sprintf("%s/%s/original.txt", tenant, id)
	if err := objects.Upload(context.Background(), objectKey, bytes.NewReader([]byte("Total debt: 100,000")), 19, "text/plain"); err != nil {
		t.Fatalf("upload original: %v", err)
	}

	store.Save(&model.Document{
		ID:        id,
		Filename:  fields.Filename,
		Tenant:    tenant,
		ObjectKey: objectKey,
		FieldsKey: key,
		Status:    model.DocStatusExtracted,
	})
}

