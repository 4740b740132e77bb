package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-sla/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla/internal/auth"
	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	staffOrSystem := auth.RequireStaffRole(true)
	anyStaff := auth.RequireStaffRole(false)
	leads := auth.RequireStaffRole(false, domain.StaffRoleTeamLead, domain.StaffRoleAdmin)

	slaGroup := app.Group("/sla", cfg.AuthMiddleware.Handle)
	slaGroup.Get("/policies", staffOrSystem, cfg.SLA.ListPolicies)
	slaGroup.Get("/report", leads, cfg.SLA.ComplianceReport)

	tickets := slaGroup.Group("/tickets")
	tickets.Post("/", staffOrSystem, cfg.SLA.CreateTicket)
	tickets.Get("/:id", staffOrSystem, cfg.SLA.GetTicket)
	tickets.Get("/:id/history", anyStaff, cfg.SLA.ListHistory)
	tickets.Post("/:id/first-response", staffOrSystem, cfg.SLA.RecordFirstResponse)
	tickets.Post("/:id/resolution", staffOrSystem, cfg.SLA.RecordResolution)
	tickets.Patch("/:id/status", anyStaff, cfg.SLA.UpdateStatus)
	tickets.Patch("/:id/priority", leads, cfg.SLA.UpdatePriority)
	tickets.Post("/:id/recompute", leads, cfg.SLA.RecomputeDeadlines)
}
