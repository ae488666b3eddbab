package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/chatdesk/support-service/internal/api/http"
	"github.com/chatdesk/support-service/internal/api/http/handlers"
	"github.com/chatdesk/support-service/internal/config"
	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/observability"
	"github.com/chatdesk/support-service/internal/persistence"
	"github.com/chatdesk/support-service/internal/realtime"
	"github.com/chatdesk/support-service/internal/repository"
	"github.com/chatdesk/support-service/internal/service"
	"github.com/chatdesk/support-service/internal/storage"
	"github.com/chatdesk/support-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	customerRepo := repository.NewCustomerRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	broker := realtime.NewBroker(redis.Client, cfg.Realtime, logger)
	realtimeService := service.NewRealtimeService(broker, logger)
	worker.StartRealtimeWorker(realtimeService, dispatcher)

	ticketService := service.NewTicketService(service.TicketDependencies{
		CustomerRepo:   customerRepo,
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		Dispatcher:     dispatcher,
	})
	signer := storage.NewSigner(cfg.Storage)
	attachmentService := service.NewAttachmentService(signer, messageRepo, attachmentRepo, dispatcher)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		RequestTimeout:   cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.App.CORSAllowOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(pg, redis),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Attachments: handlers.NewAttachmentsHandler(attachmentService),
		Admin:       handlers.NewAdminHandler(ticketService),
		Realtime:    handlers.NewRealtimeHandler(broker, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
