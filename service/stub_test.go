package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/clearledger/finsight/model"
)

// stubGenerator is a test double for the Generator interface.
type stubGenerator struct {
	fn func(prompt string) (string, error)
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	return s.fn(prompt)
}

// failingGenerator always errors, simulating an unreachable model.
func failingGenerator() *stubGenerator {
	return &stubGenerator{fn: func(string) (string, error) {
		return "", fmt.Errorf("model unavailable")
	}}
}

// memObjectStore is an in-memory ObjectStore for tests.
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

func (m *memObjectStore) put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = bytes.Clone(data)
}

// balanceSheetFields is a standard test document with figures for a
// debt-to-equity check.
func balanceSheetFields() *model.DocumentFields {
	return &model.DocumentFields{
		DocumentID:   "doc-1",
		Filename:     "balance_sheet_q3.txt",
		DocumentType: "balance_sheet",
		Summary:      "Q3 balance sheet.",
		FinancialMetrics: map[string]any{
			"total_debt":   100000.0,
			"total_equity": 200000.0,
		},
		ComplianceData: map[string]any{},
		Entities:       map[string]any{"company": "Acme Corp"},
	}
}
