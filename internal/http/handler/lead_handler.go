package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/service"
	"go.uber.org/zap"
)

// LeadDeps groups dependencies required by lead handlers.
type LeadDeps struct {
	Logger    *zap.Logger
	Leads     service.LeadService
	Proposals service.ProposalService
}

// LeadHandler implements the lead-facing management API.
type LeadHandler struct {
	logger    *zap.Logger
	leads     service.LeadService
	proposals service.ProposalService
}

// NewLeadHandler creates a lead handler with the provided dependencies.
func NewLeadHandler(deps LeadDeps) *LeadHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{
		logger:    logger,
		leads:     deps.Leads,
		proposals: deps.Proposals,
	}
}

// Register wires lead routes onto the provided router.
func (h *LeadHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		leads := api.Group("/leads")
		{
			leads.Get("/:id", h.Get)
			leads.Delete("/:id", h.Delete)
			leads.Post("/:id/proposals", h.Propose)
		}
	}
}

// LeadResponse is the lead representation returned by the API.
type LeadResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	ContactName     string    `json:"contactName"`
	CompanyName     string    `json:"companyName,omitempty"`
	MeetingDates    []string  `json:"meetingDates,omitempty"`
	BookingLinks    []string  `json:"bookingLinks,omitempty"`
	BookedSlotIndex *int      `json:"bookedSlotIndex,omitempty"`
	MeetingStatus   string    `json:"meetingStatus,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Get handles GET /api/leads/:id.
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	lead, err := h.leads.Get(userContext(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "lead not found",
			})
		}
		h.logger.Error("failed to load lead", zap.Error(err), zap.String("lead_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load lead",
		})
	}

	return c.JSON(LeadResponse{
		ID:              lead.ID,
		Email:           lead.Email,
		ContactName:     lead.ContactName,
		CompanyName:     lead.CompanyName,
		MeetingDates:    lead.MeetingDates,
		BookingLinks:    lead.BookingLinks,
		BookedSlotIndex: lead.BookedSlotIndex,
		MeetingStatus:   lead.MeetingStatus,
		UpdatedAt:       lead.UpdatedAt,
	})
}

// Delete handles DELETE /api/leads/:id, purging links and ledger entry too.
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.leads.Delete(userContext(c), id); err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "lead not found",
			})
		}
		h.logger.Error("failed to delete lead", zap.Error(err), zap.String("lead_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete lead",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ProposalResponse is one offered slot as returned by the API.
type ProposalResponse struct {
	StartISO     string `json:"startISO"`
	EndISO       string `json:"endISO"`
	Display      string `json:"display"`
	BookingToken string `json:"bookingToken"`
}

// Propose handles POST /api/leads/:id/proposals.
func (h *LeadHandler) Propose(c *fiber.Ctx) error {
	id := c.Params("id")

	proposals, err := h.proposals.ProposeForLead(userContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLeadNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "lead not found",
			})
		case errors.Is(err, service.ErrInsufficientAvailability):
			// The caller must skip meeting proposals for this lead entirely;
			// a partial set is never returned.
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "insufficient availability for three proposals",
			})
		default:
			h.logger.Error("failed to generate proposals", zap.Error(err), zap.String("lead_id", id))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate proposals",
			})
		}
	}

	response := make([]ProposalResponse, len(proposals))
	for i, p := range proposals {
		response[i] = ProposalResponse{
			StartISO:     p.Start.UTC().Format(time.RFC3339),
			EndISO:       p.End.UTC().Format(time.RFC3339),
			Display:      p.Display,
			BookingToken: p.BookingToken,
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"proposals": response,
	})
}
