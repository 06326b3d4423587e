package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearledger/finsight/middleware"
	"github.com/clearledger/finsight/model"
	"github.com/clearledger/finsight/pkg/logger"
	"github.com/clearledger/finsight/service"
)

// allowedExtensions lists the upload formats extraction can handle.
var allowedExtensions = map[string]bool{
	".txt": true, ".csv": true, ".json": true, ".pdf": true,
}

type DocumentHandler struct {
	store     *service.DocumentStore
	objects   service.ObjectStore
	extractor *service.Extractor
}

func NewDocumentHandler(store *service.DocumentStore, objects service.ObjectStore, extractor *service.Extractor) *DocumentHandler {
	return &DocumentHandler{store: store, objects: objects, extractor: extractor}
}

// Upload accepts a document, stores the original, and starts extraction in
// the background.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported file type: %s", ext)})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	doc := &model.Document{
		ID:       uuid.New().String(),
		Filename: file.Filename,
		Tenant:   tenant,
		Status:   model.DocStatusPending,
	}
	doc.ObjectKey = fmt.Sprintf("uploads/%s/%s/%s", tenant, doc.ID, file.Filename)

	contentType := file.Header.Get("Content-Type")
	if err := h.objects.Upload(c.Request.Context(), doc.ObjectKey, src, file.Size, contentType); err != nil {
		logger.Error(c.Request.Context(), "document upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	h.store.Save(doc)
	logger.Info(c.Request.Context(), "document uploaded", "document_id", doc.ID, "filename", doc.Filename)

	go h.extractor.Extract(context.WithoutCancel(c.Request.Context()), doc)

	c.JSON(http.StatusOK, gin.H{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"status":      doc.Status,
	})
}

// List returns the tenant's documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	docs := h.store.ListByTenant(tenant)
	if docs == nil {
		docs = []*model.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}

// Get returns one document's metadata.
func (h *DocumentHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	doc, err := h.store.Get(tenant, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Download returns a short-lived URL for the original upload.
func (h *DocumentHandler) Download(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	doc, err := h.store.Get(tenant, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	url, err := h.objects.GetPresignedURL(c.Request.Context(), doc.ObjectKey)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to presign download", "document_id", doc.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate download link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "filename": doc.Filename})
}

// Delete removes a document and its stored objects.
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	doc, err := h.store.Get(tenant, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if err := h.objects.Delete(c.Request.Context(), doc.ObjectKey); err != nil {
		logger.Warn(c.Request.Context(), "failed to delete stored object", "object_key", doc.ObjectKey, "error", err)
	}
	if doc.FieldsKey != "" {
		if err := h.objects.Delete(c.Request.Context(), doc.FieldsKey); err != nil {
			logger.Warn(c.Request.Context(), "failed to delete extracted fields", "object_key", doc.FieldsKey, "error", err)
		}
	}

	h.store.Delete(doc.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
