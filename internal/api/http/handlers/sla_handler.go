package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-sla/internal/api/dto"
	"github.com/spec-kit/ticket-sla/internal/auth"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/sla"
	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SLAHandler exposes deadline tracking endpoints.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: slaService}
}

// CreateTicket POST /sla/tickets.
func (h *SLAHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.sla.CreateTicket(c.UserContext(), callerStaffID(c), service.TicketCreateInput{
		Title:     req.Title,
		Priority:  req.Priority,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// GetTicket GET /sla/tickets/:id.
func (h *SLAHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.sla.GetTicketStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// RecordFirstResponse POST /sla/tickets/:id/first-response.
func (h *SLAHandler) RecordFirstResponse(c *fiber.Ctx) error {
	var req dto.RecordCheckpointRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.sla.RecordFirstResponse(c.UserContext(), callerStaffID(c), c.Params("id"), req.At)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// RecordResolution POST /sla/tickets/:id/resolution.
func (h *SLAHandler) RecordResolution(c *fiber.Ctx) error {
	var req dto.RecordCheckpointRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.sla.RecordResolution(c.UserContext(), callerStaffID(c), c.Params("id"), req.At)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// UpdateStatus PATCH /sla/tickets/:id/status.
func (h *SLAHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.sla.UpdateStatus(c.UserContext(), callerStaffID(c), c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// UpdatePriority PATCH /sla/tickets/:id/priority.
func (h *SLAHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.sla.UpdatePriority(c.UserContext(), callerStaffID(c), c.Params("id"), req.Priority, req.Recompute)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// RecomputeDeadlines POST /sla/tickets/:id/recompute.
func (h *SLAHandler) RecomputeDeadlines(c *fiber.Ctx) error {
	view, err := h.sla.RecomputeDeadlines(c.UserContext(), callerStaffID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(view)})
}

// ListHistory GET /sla/tickets/:id/history.
func (h *SLAHandler) ListHistory(c *fiber.Ctx) error {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	entries, err := h.sla.ListHistory(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			ChangeType:    entry.ChangeType,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPolicies GET /sla/policies.
func (h *SLAHandler) ListPolicies(c *fiber.Ctx) error {
	policies := h.sla.Policies()
	items := make([]dto.PolicyResponse, 0, len(policies))
	for _, p := range policies {
		items = append(items, dto.PolicyResponse{
			Priority:                p.Priority,
			ResponseBudget:          p.ResponseBudget.String(),
			ResolutionBudget:        p.ResolutionBudget.String(),
			ResponseBudgetSeconds:   int64(p.ResponseBudget.Seconds()),
			ResolutionBudgetSeconds: int64(p.ResolutionBudget.Seconds()),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ComplianceReport GET /sla/report.
func (h *SLAHandler) ComplianceReport(c *fiber.Ctx) error {
	report, err := h.sla.ComplianceReport(c.UserContext(), h.sla.Now())
	if err != nil {
		return err
	}
	resp := dto.ComplianceReportResponse{
		GeneratedAt:  report.GeneratedAt,
		TotalTickets: report.TotalTickets,
		Checkpoints:  make([]dto.CheckpointReportResponse, 0, len(report.Checkpoints)),
	}
	for _, cp := range report.Checkpoints {
		resp.Checkpoints = append(resp.Checkpoints, dto.CheckpointReportResponse{
			Checkpoint:          string(cp.Checkpoint),
			Met:                 cp.Met,
			Breached:            cp.Breached,
			Pending:             cp.Pending,
			CompliancePercent:   cp.CompliancePercent,
			WorstOverdueSeconds: int64(cp.WorstOverdue.Seconds()),
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// parseBody decodes an optional JSON body and validates it.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]any, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			return apperrors.NewValidationError("invalid payload", details)
		}
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return nil
}

func callerStaffID(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return ""
	}
	return principal.StaffID()
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

func ticketSLAResponse(view *service.TicketSLA) dto.TicketSLAResponse {
	t := view.Ticket
	return dto.TicketSLAResponse{
		ID:                 t.ID,
		ExternalKey:        t.ExternalKey,
		Title:              t.Title,
		Status:             t.Status,
		Priority:           t.Priority,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		ClosedAt:           t.ClosedAt,
		ResponseDeadline:   t.ResponseDeadline,
		ResolutionDeadline: t.ResolutionDeadline,
		FirstRespondedAt:   t.FirstRespondedAt,
		ResolvedAt:         t.ResolvedAt,
		Version:            t.Version,
		EvaluatedAt:        view.EvaluatedAt,
		Response:           complianceResponse(view.Status.Response),
		Resolution:         complianceResponse(view.Status.Resolution),
	}
}

func complianceResponse(r sla.ComplianceResult) dto.ComplianceResponse {
	return dto.ComplianceResponse{
		Checkpoint:       string(r.Checkpoint),
		Deadline:         r.Deadline,
		State:            string(r.State),
		RemainingSeconds: int64(r.Remaining.Seconds()),
		Occurred:         r.Occurred,
	}
}
