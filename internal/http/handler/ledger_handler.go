package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/service"
	"go.uber.org/zap"
)

// LedgerDeps groups dependencies required by ledger handlers.
type LedgerDeps struct {
	Logger *zap.Logger
	Ledger service.Ledger
}

// LedgerHandler exposes CRUD over the cross-lead slot ledger.
type LedgerHandler struct {
	logger *zap.Logger
	ledger service.Ledger
}

// NewLedgerHandler creates a ledger handler with the provided dependencies.
func NewLedgerHandler(deps LedgerDeps) *LedgerHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{
		logger: logger,
		ledger: deps.Ledger,
	}
}

// Register wires ledger routes onto the provided router.
func (h *LedgerHandler) Register(router fiber.Router) {
	router.Get("/proposed-meetings", h.TakenTimes)
	router.Post("/proposed-meetings", h.Add)
	router.Put("/proposed-meetings/:leadId", h.Update)
	router.Delete("/proposed-meetings/:leadId", h.Remove)
}

// TakenTimes handles GET /proposed-meetings, returning the flat taken-times list.
func (h *LedgerHandler) TakenTimes(c *fiber.Ctx) error {
	taken, err := h.ledger.TakenTimes(userContext(c))
	if err != nil {
		h.logger.Error("failed to load taken times", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load proposed meetings",
		})
	}

	times := make([]string, 0, len(taken))
	for t := range taken {
		times = append(times, t)
	}

	return c.JSON(fiber.Map{
		"takenTimes": times,
		"count":      len(times),
	})
}

// LedgerEntryRequest is the body for creating or replacing a ledger entry.
type LedgerEntryRequest struct {
	LeadID       string   `json:"leadId"`
	LeadName     string   `json:"leadName"`
	MeetingTimes []string `json:"meetingTimes"`
}

// Add handles POST /proposed-meetings.
func (h *LedgerHandler) Add(c *fiber.Ctx) error {
	var req LedgerEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.LeadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "leadId is required",
		})
	}

	if err := h.ledger.AddProposedTimes(userContext(c), req.LeadID, req.LeadName, req.MeetingTimes); err != nil {
		h.logger.Error("failed to add proposed times", zap.Error(err), zap.String("lead_id", req.LeadID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store proposed meetings",
		})
	}

	return c.SendStatus(fiber.StatusCreated)
}

// UpdateEntryRequest is the body for PUT /proposed-meetings/:leadId.
type UpdateEntryRequest struct {
	MeetingTimes []string `json:"meetingTimes"`
}

// Update handles PUT /proposed-meetings/:leadId, replacing the offer set.
func (h *LedgerHandler) Update(c *fiber.Ctx) error {
	leadID := c.Params("leadId")
	if leadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "leadId is required",
		})
	}

	var req UpdateEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.ledger.UpdateProposedTimes(userContext(c), leadID, req.MeetingTimes); err != nil {
		if errors.Is(err, repository.ErrLedgerEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no proposed meetings for lead",
			})
		}
		h.logger.Error("failed to update proposed times", zap.Error(err), zap.String("lead_id", leadID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update proposed meetings",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Remove handles DELETE /proposed-meetings/:leadId.
func (h *LedgerHandler) Remove(c *fiber.Ctx) error {
	leadID := c.Params("leadId")
	if leadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "leadId is required",
		})
	}

	if err := h.ledger.RemoveProposedTimes(userContext(c), leadID); err != nil {
		h.logger.Error("failed to remove proposed times", zap.Error(err), zap.String("lead_id", leadID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to remove proposed meetings",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
