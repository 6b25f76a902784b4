// Package loans provides the loan application lifecycle module: draft intake,
// submission with AI advisories, underwriting policy checks and the admin
// review queue.
package loans

import (
	apphttp "drivecash_backend/internal/http"
	"drivecash_backend/internal/loans/handler"
	"drivecash_backend/internal/loans/service"
	"drivecash_backend/platform/validator"
)

// Module represents the loans domain module.
type Module struct {
	handler          *handler.Handler
	protectedHandler *handler.ProtectedHandler
	adminHandler     *handler.AdminHandler
	documentsHandler *handler.DocumentsHandler
	service          *service.Service
}

// NewModule creates the loans module around a pre-wired service. The
// documents handler is optional; pass nil when object storage is not
// configured and the upload route stays unmounted.
func NewModule(svc *service.Service, val *validator.Validator, docs *handler.DocumentsHandler) *Module {
	return &Module{
		handler:          handler.New(svc, val),
		protectedHandler: handler.NewProtectedHandler(svc, val),
		adminHandler:     handler.NewAdminHandler(svc, val),
		documentsHandler: docs,
		service:          svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "loans"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	applications := ctx.V1.Group("/applications")
	m.handler.RegisterRoutes(applications, ctx.IntakeRateLimiter.RateLimit())
	if m.documentsHandler != nil {
		m.documentsHandler.RegisterRoutes(applications)
	}

	protected := ctx.Protected.Group("/applications")
	m.protectedHandler.RegisterRoutes(protected)

	admin := ctx.Admin.Group("/applications")
	m.adminHandler.RegisterRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
