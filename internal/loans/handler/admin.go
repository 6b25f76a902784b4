package handler

import (
	"net/http"

	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/internal/loans/service"
	"drivecash_backend/internal/loans/transport"
	"drivecash_backend/platform/httpkit"
	"drivecash_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 25

// AdminHandler handles reviewer decisions and the review queue.
type AdminHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(svc *service.Service, val *validator.Validator) *AdminHandler {
	return &AdminHandler{svc: svc, val: val}
}

// RegisterRoutes registers the admin review routes.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/raise_query", h.RaiseQuery)
	rg.POST("/:id/notes", h.AddNote)
	rg.GET("/:id/notes", h.ListNotes)
}

// List returns the review queue, filterable by status.
func (h *AdminHandler) List(c *gin.Context) {
	var req transport.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}

	params := repository.ListParams{
		Limit:  req.PageSize,
		Offset: (req.Page - 1) * req.PageSize,
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		params.Status = &status
	}

	apps, total, err := h.svc.ListAll(c.Request.Context(), actor(c), params)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.ApplicationResponse, len(apps))
	for i, app := range apps {
		out[i] = transport.FromApplication(app)
	}
	httpkit.OK(c, transport.ListApplicationsResponse{
		Applications: out,
		Total:        total,
		Page:         req.Page,
		PageSize:     req.PageSize,
	})
}

// Get returns one application for review.
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	app, err := h.svc.Get(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// Approve records an approval decision.
func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	app, err := h.svc.Approve(c.Request.Context(), actor(c), id, service.ApproveInput{
		ApprovedAmount: req.ApprovedAmount,
		Notes:          req.ApprovalNotes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// Reject records a rejection decision.
func (h *AdminHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	app, err := h.svc.Reject(c.Request.Context(), actor(c), id, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// RaiseQuery asks the applicant for more information.
func (h *AdminHandler) RaiseQuery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	app, err := h.svc.RaiseQuery(c.Request.Context(), actor(c), id, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// AddNote records an internal annotation.
func (h *AdminHandler) AddNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	note, err := h.svc.AddNote(c.Request.Context(), actor(c), id, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromNote(note))
}

// ListNotes returns the internal annotations for an application.
func (h *AdminHandler) ListNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	notes, err := h.svc.ListNotes(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.NoteResponse, len(notes))
	for i, note := range notes {
		out[i] = transport.FromNote(note)
	}
	httpkit.OK(c, gin.H{"notes": out})
}
