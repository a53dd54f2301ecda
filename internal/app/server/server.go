package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/haugli/meetflow/internal/app/service"
	inthttp "github.com/haugli/meetflow/internal/http/handler"
	"github.com/haugli/meetflow/internal/http/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure and service dependencies required by
// the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext

	Shortener service.Shortener
	Ledger    service.Ledger
	Proposals service.ProposalService
	Booking   service.BookingService
	Leads     service.LeadService
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
		s.app.Use("/booking/confirm", middleware.RateLimit(s.deps.Redis, middleware.ConfirmRateLimitConfig(), s.deps.Logger))
	}

	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:    s.deps.Logger,
		Shortener: s.deps.Shortener,
		Postgres:  s.deps.Postgres,
	})
	redirectHandler.Register(s.app)

	bookingHandler := inthttp.NewBookingHandler(inthttp.BookingDeps{
		Logger:  s.deps.Logger,
		Booking: s.deps.Booking,
	})
	bookingHandler.Register(s.app)

	ledgerHandler := inthttp.NewLedgerHandler(inthttp.LedgerDeps{
		Logger: s.deps.Logger,
		Ledger: s.deps.Ledger,
	})
	ledgerHandler.Register(s.app)

	leadHandler := inthttp.NewLeadHandler(inthttp.LeadDeps{
		Logger:    s.deps.Logger,
		Leads:     s.deps.Leads,
		Proposals: s.deps.Proposals,
	})
	leadHandler.Register(s.app)
}
