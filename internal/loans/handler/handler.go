// Package handler exposes the loans HTTP surface.
package handler

import (
	"net/http"

	"drivecash_backend/internal/loans/service"
	"drivecash_backend/internal/loans/transport"
	"drivecash_backend/platform/httpkit"
	"drivecash_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles applicant-facing application requests. Routes are mounted
// under optional auth: callers are identified by JWT or by session key.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates the applicant-facing handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the application intake and lifecycle routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, intakeLimiter gin.HandlerFunc) {
	rg.POST("", intakeLimiter, h.Create)
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/submit", h.Submit)
	rg.POST("/:id/resolve_query", h.ResolveQuery)
	rg.POST("/:id/withdraw", h.Withdraw)
	rg.GET("/:id/documents", h.ListDocuments)
}

// actor builds the service actor from the request's identity and session key.
func actor(c *gin.Context) service.Actor {
	a := service.Actor{SessionKey: httpkit.SessionKey(c)}
	id := httpkit.GetIdentity(c)
	if id.IsAuthenticated() {
		userID := id.UserID()
		a.UserID = &userID
		a.Email = id.Email()
		a.IsAdmin = id.HasRole("admin")
	}
	return a
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create starts a new draft application.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := service.CreateDraftInput{
		Amount:                  req.Amount,
		TermMonths:              req.TermMonths,
		ApplicantEstimatedValue: req.ApplicantEstimatedValue,
	}
	if req.PersonalInfo != nil {
		info := req.PersonalInfo.ToPersonalInfo()
		input.Personal = &info
	}
	if req.Vehicle != nil {
		vehicle := req.Vehicle.ToVehicle(nil)
		input.Vehicle = &vehicle
	}

	app, sessionKey, err := h.svc.CreateDraft(c.Request.Context(), actor(c), input)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.CreateApplicationResponse{
		Application: transport.FromApplication(app),
		SessionKey:  sessionKey,
	})
}

// Get returns a fully hydrated application so a draft can be resumed.
func (h *Handler) Get(c *gin.Context) {
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

// ListMine returns the authenticated user's applications.
func (h *Handler) ListMine(c *gin.Context) {
	apps, err := h.svc.ListMine(c.Request.Context(), actor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.ApplicationResponse, len(apps))
	for i, app := range apps {
		out[i] = transport.FromApplication(app)
	}
	httpkit.OK(c, gin.H{"applications": out})
}

// Update patches draft fields.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := service.UpdateDraftInput{}
	input.Core.Amount = req.Amount
	input.Core.TermMonths = req.TermMonths
	input.Core.ApplicantEstimatedValue = req.ApplicantEstimatedValue
	input.Core.AcceptTerms = req.AcceptTerms
	input.Core.Signature = req.Signature

	if req.PersonalInfo != nil {
		info := req.PersonalInfo.ToPersonalInfo()
		input.Personal = &info
	}
	if req.Identification != nil {
		ident := req.Identification.ToIdentification()
		input.Identification = &ident
	}
	if req.Financial != nil {
		fin := req.Financial.ToFinancial()
		input.Financial = &fin
	}
	if req.Address != nil {
		addr := req.Address.ToAddress()
		input.Address = &addr
	}
	if req.Vehicle != nil {
		// Photo keys are server-managed; carry the stored ones forward.
		existing, err := h.svc.Get(c.Request.Context(), actor(c), id)
		if httpkit.HandleError(c, err) {
			return
		}
		var keys []string
		if existing.Vehicle != nil {
			keys = existing.Vehicle.PhotoKeys
		}
		vehicle := req.Vehicle.ToVehicle(keys)
		input.Vehicle = &vehicle
	}

	app, err := h.svc.UpdateDraft(c.Request.Context(), actor(c), id, input)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromApplication(app))
}

// Delete removes an unsubmitted draft.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteDraft(c.Request.Context(), actor(c), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit runs validation and the advisory pipeline, then queues the
// application for review.
func (h *Handler) Submit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SubmissionResponse{
		Application:      transport.FromApplication(result.Application),
		AIAnalysis:       transport.FromAdvice(result.Advice),
		VehicleValuation: transport.FromValuation(result.Valuation),
		ValueComparison:  transport.FromValueComparison(result.ValueComparison),
	})
}

// ResolveQuery returns a queried application to the review queue.
func (h *Handler) ResolveQuery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	app, err := h.svc.ResolveQuery(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// Withdraw pulls an application out of the pipeline.
func (h *Handler) Withdraw(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	app, err := h.svc.Withdraw(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromApplication(app))
}

// ListDocuments returns an application's uploaded artifacts.
func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	docs, err := h.svc.ListDocuments(c.Request.Context(), actor(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = transport.FromDocument(doc)
	}
	httpkit.OK(c, gin.H{"documents": out})
}
