package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/service"
)

func newDocumentFixture(gen service.Generator) (*DocumentHandler, *service.DocumentStore, *memObjectStore) {
	store := service.NewDocumentStore(100)
	objects := newMemObjectStore()
	extractor := service.NewExtractor(gen, store, objects, service.NewUsageTracker(), 3000)
	return NewDocumentHandler(store, objects, extractor), store, objects
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestDocumentUpload(t *testing.T) {
	gen := &stubGenerator{fn: func(string) (string, error) {
		return `{"document_type": "balance_sheet", "document_summary": "s", "key_financial_metrics": {"total_debt": 100000}, "compliance_relevant_data": {}, "entities": {}}`, nil
	}}
	handler, store, objects := newDocumentFixture(gen)

	router := gin.New()
	router.Use(asTenant("acme"))
	router.POST("/documents/upload", handler.Upload)

	body, contentType := multipartBody(t, "balance_sheet.txt", "Total debt: 100,000")
	req := httptest.NewRequest("POST", "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		DocumentID string `json:"document_id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.DocumentID == "" {
		t.Fatal("expected a document id")
	}

	// Extraction runs in the background; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := store.Get("acme", resp.DocumentID)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if doc.Status == model.DocStatusExtracted {
			if _, err := objects.Download(context.Background(), doc.FieldsKey); err != nil {
				t.Errorf("extracted fields not stored: %v", err)
			}
			return
		}
		if doc.Status == model.DocStatusFailed {
			t.Fatalf("extraction failed: %s", doc.ErrorMsg)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("document never reached extracted state")
}

func TestDocumentUploadRejectsUnsupportedType(t *testing.T) {
	handler, _, _ := newDocumentFixture(&stubGenerator{fn: func(string) (string, error) { return "", nil }})

	router := gin.New()
	router.Use(asTenant("acme"))
	router.POST("/documents/upload", handler.Upload)

	body, contentType := multipartBody(t, "malware.exe", "MZ")
	req := httptest.NewRequest("POST", "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestDocumentUploadRequiresFile(t *testing.T) {
	handler, _, _ := newDocumentFixture(&stubGenerator{fn: func(string) (string, error) { return "", nil }})

	router := gin.New()
	router.Use(asTenant("acme"))
	router.POST("/documents/upload", handler.Upload)

	req := httptest.NewRequest("POST", "/documents/upload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestDocumentListAndGet(t *testing.T) {
	handler, store, objects := newDocumentFixture(&stubGenerator{fn: func(string) (string, error) { return "", nil }})
	seedExtractedDocument(t, store, objects, "doc-1", "acme")
	seedExtractedDocument(t, store, objects, "doc-2", "globex")

	router := gin.New()
	router.Use(asTenant("acme"))
	router.GET("/documents", handler.List)
	router.GET("/documents/:id", handler.Get)

	req := httptest.NewRequest("GET", "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listResp struct {
		Documents []model.Document `json:"documents"`
		Total     int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if listResp.Total != 1 || len(listResp.Documents) != 1 {
		t.Fatalf("expected only own tenant's documents, got %d", listResp.Total)
	}

	req = httptest.NewRequest("GET", "/documents/doc-1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get own document = %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/documents/doc-2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get other tenant's document = %d, expected 404", w.Code)
	}
}

func TestDocumentDownload(t *testing.T) {
	handler, store, objects := newDocumentFixture(&stubGenerator{fn: func(string) (string, error) { return "", nil }})
	seedExtractedDocument(t, store, objects, "doc-1", "acme")

	router := gin.New()
	router.Use(asTenant("acme"))
	router.GET("/documents/:id/download", handler.Download)

	req := httptest.NewRequest("GET", "/documents/doc-1/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.URL == "" {
		t.Error("expected a download url")
	}

	req = httptest.NewRequest("GET", "/documents/no-such/download", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document download = %d, expected 404", w.Code)
	}
}

func TestDocumentDelete(t *testing.T) {
	handler, store, objects := newDocumentFixture(&stubGenerator{fn: func(string) (string, error) { return "", nil }})
	seedExtractedDocument(t, store, objects, "doc-1", "acme")

	router := gin.New()
	router.Use(asTenant("acme"))
	router.DELETE("/documents/:id", handler.Delete)

	req := httptest.NewRequest("DELETE", "/documents/doc-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if _, err := store.Get("acme", "doc-1"); err == nil {
		t.Error("document still present after delete")
	}
	if _, err := objects.Download(context.Background(), "acme/doc-1/fields.json"); err == nil {
		t.Error("extracted fields still present after delete")
	}
}
