package handler

import (
	"net/http"

	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/service"
	"drivecash_backend/internal/loans/transport"
	"drivecash_backend/internal/storage"
	"drivecash_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// DocumentsHandler handles multipart document uploads. Bytes land in object
// storage; metadata is recorded through the loans service.
type DocumentsHandler struct {
	svc            *service.Service
	storage        storage.Service
	documentBucket string
	photoBucket    string
}

// NewDocumentsHandler creates the upload handler. The handler is only mounted
// when object storage is configured.
func NewDocumentsHandler(svc *service.Service, storageSvc storage.Service, documentBucket, photoBucket string) *DocumentsHandler {
	return &DocumentsHandler{
		svc:            svc,
		storage:        storageSvc,
		documentBucket: documentBucket,
		photoBucket:    photoBucket,
	}
}

// RegisterRoutes adds the upload route to the applications group.
func (h *DocumentsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/documents", h.Upload)
}

// Upload accepts a multipart form with "file", "type" and optional "title"
// fields. Vehicle photos are routed to the photo bucket so the valuation
// advisory can read them back.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	docType := c.PostForm("type")
	if docType == "" {
		docType = domain.DocumentTypeOther
	}
	if !domain.IsValidDocumentType(docType) {
		httpkit.Error(c, http.StatusBadRequest, "unknown document type", gin.H{"type": docType})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.storage.ValidateContentType(contentType); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file type not allowed", nil)
		return
	}
	if err := h.storage.ValidateFileSize(fileHeader.Size); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if docType == domain.DocumentTypeVehiclePhoto && !storage.IsImageContentType(contentType) {
		httpkit.Error(c, http.StatusBadRequest, "vehicle photos must be images", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	bucket := h.documentBucket
	if docType == domain.DocumentTypeVehiclePhoto {
		bucket = h.photoBucket
	}

	key, err := h.storage.UploadFile(c.Request.Context(), bucket, id.String(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "file upload failed", nil)
		return
	}

	doc, err := h.svc.RecordDocument(c.Request.Context(), actor(c), id, service.DocumentInput{
		DocumentType: docType,
		Title:        c.PostForm("title"),
		FileName:     fileHeader.Filename,
		StorageKey:   key,
		ContentType:  contentType,
		SizeBytes:    fileHeader.Size,
	})
	if err != nil {
		// The metadata row failed; do not leave an orphaned object behind.
		_ = h.storage.DeleteObject(c.Request.Context(), bucket, key)
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromDocument(doc))
}
