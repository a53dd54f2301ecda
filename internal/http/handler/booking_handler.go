package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/service"
	"github.com/haugli/meetflow/internal/app/token"
	"github.com/haugli/meetflow/internal/http/view"
	"go.uber.org/zap"
)

// BookingDeps groups dependencies required by booking handlers.
type BookingDeps struct {
	Logger  *zap.Logger
	Booking service.BookingService
}

// BookingHandler exposes the two confirmation surfaces: the redirect-driven
// page for email clicks and the JSON API for programmatic booking.
type BookingHandler struct {
	logger  *zap.Logger
	booking service.BookingService
}

// NewBookingHandler creates a booking handler with the provided dependencies.
func NewBookingHandler(deps BookingDeps) *BookingHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{
		logger:  logger,
		booking: deps.Booking,
	}
}

// Register wires booking routes onto the provided router.
func (h *BookingHandler) Register(router fiber.Router) {
	router.Get("/book/:token", h.BookPage)
	router.Post("/booking/confirm", h.ConfirmJSON)
}

// BookPage handles GET /book/:token?e=&n=&c= and renders a result page.
func (h *BookingHandler) BookPage(c *fiber.Ctx) error {
	bookingToken := c.Params("token")
	email := c.Query("e")
	name := c.Query("n")
	shortCode := c.Query("c")

	result, err := h.booking.Confirm(userContext(c), bookingToken, shortCode, email, name)
	if err != nil {
		return h.renderFailure(c, err)
	}

	html, err := view.RenderBookingPage(view.BookingPageData{
		Success:     true,
		Heading:     "Møtet er booket!",
		Message:     "Du får en møtelenke under. Vi gleder oss til å snakke med deg.",
		Display:     result.Display,
		MeetingLink: result.MeetingLink,
		EventLink:   result.EventLink,
	})
	if err != nil {
		h.logger.Error("failed to render booking page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}

	return c.Type("html", "utf-8").SendString(html)
}

// ConfirmRequest is the body of POST /booking/confirm.
type ConfirmRequest struct {
	BookingToken    string `json:"bookingToken"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	MeetingStartISO string `json:"meetingStartISO"`
	MeetingEndISO   string `json:"meetingEndISO"`
	ShortCode       string `json:"shortCode"`
}

// ConfirmJSON handles POST /booking/confirm.
func (h *BookingHandler) ConfirmJSON(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	if req.BookingToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "bookingToken is required",
		})
	}

	result, err := h.booking.Confirm(userContext(c), req.BookingToken, req.ShortCode, req.Email, req.Name)
	if err != nil {
		status, message := classify(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("booking confirmation failed", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"leadId":          result.LeadID,
			"bookedSlotIndex": result.SlotIndex,
			"meetingStartISO": result.Start.UTC().Format(time.RFC3339),
		},
	})
}

func (h *BookingHandler) renderFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		return renderErrorPage(c, fiber.StatusBadRequest,
			"Ugyldig lenke",
			"Bookinglenken er ugyldig eller ødelagt. Ta kontakt med oss direkte, så finner vi et tidspunkt.")
	case errors.Is(err, repository.ErrLeadNotFound):
		return renderErrorPage(c, fiber.StatusNotFound,
			"Fant ikke bookingen",
			"Vi fant ingen booking knyttet til denne lenken. Ta kontakt med oss direkte, så hjelper vi deg.")
	case errors.Is(err, service.ErrSlotUnavailable):
		return renderErrorPage(c, fiber.StatusConflict,
			"Tidspunktet er opptatt",
			"Dette tidspunktet er dessverre ikke lenger ledig. Velg gjerne et av de andre foreslåtte tidspunktene, eller ta kontakt med oss direkte.")
	default:
		h.logger.Error("booking confirmation failed", zap.Error(err))
		return renderErrorPage(c, fiber.StatusInternalServerError,
			"Noe gikk galt",
			"Vi klarte ikke å fullføre bookingen akkurat nå. Prøv igjen om litt, eller ta kontakt med oss direkte.")
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		return fiber.StatusBadRequest, "invalid booking token"
	case errors.Is(err, repository.ErrLeadNotFound):
		return fiber.StatusNotFound, "no lead matches the short code"
	case errors.Is(err, service.ErrSlotUnavailable):
		return fiber.StatusConflict, "slot no longer available"
	default:
		return fiber.StatusInternalServerError, "failed to confirm booking"
	}
}
