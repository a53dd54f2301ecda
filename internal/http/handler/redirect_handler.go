package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haugli/meetflow/internal/app/repository"
	"github.com/haugli/meetflow/internal/app/service"
	"github.com/haugli/meetflow/internal/http/view"
	infraprom "github.com/haugli/meetflow/internal/infra/prometheus"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Shortener service.Shortener
	Postgres  *pgxpool.Pool
}

// RedirectHandler serves health checks and short-link redirects.
type RedirectHandler struct {
	logger    *zap.Logger
	shortener service.Shortener
	postgres  *pgxpool.Pool
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		shortener: deps.Shortener,
		postgres:  deps.Postgres,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/s/:code", h.Resolve)
}

// Health reports service status, including database reachability.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if h.postgres != nil {
		pingCtx, cancel := context.WithTimeout(userContext(c), 2*time.Second)
		defer cancel()
		if err := h.postgres.Ping(pingCtx); err != nil {
			h.logger.Warn("health check postgres ping failed", zap.Error(err))
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"service": "meetflow",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /s/:code and redirects to the full booking URL. The
// short code itself is carried along in the c query parameter so the booking
// endpoint can recover which of the lead's three links was clicked.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing link code",
		})
	}

	fullURL, err := h.shortener.Resolve(userContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return renderErrorPage(c, fiber.StatusNotFound,
				"Lenken finnes ikke",
				"Denne lenken finnes ikke eller har utløpt. Ta kontakt med oss direkte, så finner vi et tidspunkt.")
		}
		h.logger.Error("failed to resolve short link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	infraprom.ShortLinkRedirects.Inc()
	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", fullURL))

	separator := "?"
	if strings.Contains(fullURL, "?") {
		separator = "&"
	}
	return c.Redirect(fullURL+separator+"c="+code, fiber.StatusFound)
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func renderErrorPage(c *fiber.Ctx, status int, heading, message string) error {
	html, err := view.RenderBookingPage(view.BookingPageData{
		Success: false,
		Heading: heading,
		Message: message,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}
	return c.Status(status).
		Type("html", "utf-8").
		SendString(html)
}
