package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/haugli/meetflow/config"
	appmodel "github.com/haugli/meetflow/internal/app/model"
	apprepository "github.com/haugli/meetflow/internal/app/repository"
	appserver "github.com/haugli/meetflow/internal/app/server"
	appservice "github.com/haugli/meetflow/internal/app/service"
	"github.com/haugli/meetflow/internal/calendar"
	"github.com/haugli/meetflow/internal/crm"
	"github.com/haugli/meetflow/internal/infra/logger"
	infraNATS "github.com/haugli/meetflow/internal/infra/nats"
	infraPostgres "github.com/haugli/meetflow/internal/infra/postgres"
	infraPrometheus "github.com/haugli/meetflow/internal/infra/prometheus"
	infraRedis "github.com/haugli/meetflow/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("nats_host", cfg.NATS.Host),
		zap.String("booking_base_url", cfg.Booking.BaseURL),
		zap.String("booking_timezone", cfg.Booking.Timezone),
		zap.Bool("invite_customer", cfg.Booking.InviteCustomer),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.ShortLink{},
		&appmodel.ProposedMeeting{},
		&appmodel.Lead{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	shortLinkRepo := apprepository.NewShortLinkRepository(gormDB)
	ledgerRepo := apprepository.NewLedgerRepository(gormDB)
	leadRepo := apprepository.NewLeadRepository(gormDB)

	calendarClient := calendar.NewClient(cfg.Calendar)
	crmClient := crm.NewClient(cfg.CRM)

	shortener := appservice.NewShortener(ctx, shortLinkRepo, redisClient, log)
	ledger := appservice.NewLedger(ledgerRepo)

	proposals, err := appservice.NewProposalService(appservice.ProposalDeps{
		Logger:    log,
		Calendar:  calendarClient,
		Ledger:    ledger,
		Shortener: shortener,
		Leads:     leadRepo,
		Booking:   cfg.Booking,
	})
	if err != nil {
		log.Fatal("Failed to build proposal service", zap.Error(err))
	}

	booking, err := appservice.NewBookingService(appservice.BookingDeps{
		Logger:   log,
		Calendar: calendarClient,
		Leads:    leadRepo,
		Mirror:   appservice.NewCRMPublisher(js),
		Booking:  cfg.Booking,
	})
	if err != nil {
		log.Fatal("Failed to build booking service", zap.Error(err))
	}

	leads := appservice.NewLeadService(log, leadRepo, shortener, ledger)

	crmConsumer := appservice.NewCRMSyncConsumer(js, log, crmClient)
	if err := crmConsumer.Start(); err != nil {
		log.Fatal("Failed to start CRM sync consumer", zap.Error(err))
	}

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Postgres:  pool,
		Redis:     redisClient,
		NATS:      natsConn,
		JetStream: js,
		Shortener: shortener,
		Ledger:    ledger,
		Proposals: proposals,
		Booking:   booking,
		Leads:     leads,
	})

	if err := server.Listen(":8080"); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
