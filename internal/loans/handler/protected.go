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

// ProtectedHandler handles routes that require an authenticated user.
type ProtectedHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewProtectedHandler creates the authenticated-only handler.
func NewProtectedHandler(svc *service.Service, val *validator.Validator) *ProtectedHandler {
	return &ProtectedHandler{svc: svc, val: val}
}

// RegisterRoutes registers the authenticated application routes.
func (h *ProtectedHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/associate_draft", h.AssociateDraft)
	rg.GET("/statistics", h.Statistics)
}

// AssociateDraft attaches anonymous drafts to the caller's account. With an
// application id in the body one specific draft is claimed by session key;
// without one every ownerless draft matching the account email is claimed.
func (h *ProtectedHandler) AssociateDraft(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.AssociateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	act := actor(c)

	if req.ApplicationID != nil {
		if err := h.svc.ClaimDraft(c.Request.Context(), act, *req.ApplicationID); httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, transport.AssociateDraftResponse{ClaimedApplicationIDs: []uuid.UUID{*req.ApplicationID}})
		return
	}

	claimed, err := h.svc.ResolveDraftOwnership(c.Request.Context(), act)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssociateDraftResponse{ClaimedApplicationIDs: claimed})
}

// Statistics returns per-status application counts scoped to the caller.
// Admins see the global tally.
func (h *ProtectedHandler) Statistics(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	counts, err := h.svc.Statistics(c.Request.Context(), actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, counts)
}
