package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/amo-sbp-bridge/internal/config"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/handlers"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/middleware"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/alfabank"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/integration/amocrm"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/mail"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/queue"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/store"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/worker"
	"github.com/xavierca1/amo-sbp-bridge/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitURL)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Store
	intentStore := store.NewFileStore(cfg.PaymentsFile)

	// 2. External collaborators
	crm := amocrm.NewClient(cfg.AmoDomain, cfg.AmoToken)
	gateway := alfabank.NewClient(cfg.SBPLogin, cfg.SBPPassword, cfg.SBPReturnURL, cfg.SBPTestEnv)
	producer := queue.NewProducer(rabbitMQ.Ch)

	var notifier usecase.PaymentNotifier
	if cfg.MailHost != "" {
		notifier = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailNotifyTo)
	}

	// 3. UseCases
	reconcileUC := usecase.NewReconcileLeadUseCase(
		crm, gateway, intentStore,
		cfg.PipelineID, cfg.AllowedStatusIDs, cfg.CustomFieldID,
	)
	settleUC := usecase.NewSettlePaymentUseCase(
		crm, intentStore, notifier,
		cfg.PaidStatusID, cfg.FailedStatusID,
	)
	sweepUC := usecase.NewSweepIntentsUseCase(gateway, intentStore, settleUC, cfg.IntentMaxAge)

	// 4. Background workers
	reconcileWorker := queue.NewWorker(rabbitMQ.Ch, reconcileUC, cfg.RetryAttempts, cfg.RetryBaseDelay)
	go reconcileWorker.Start(ctx, queue.QueueName)

	sweepWorker := worker.NewSweepWorker(sweepUC, cfg.SweepInterval)
	go sweepWorker.Start(ctx)

	// 5. Handlers
	webhookHandler := handlers.NewWebhookHandler(producer)
	callbackHandler := handlers.NewCallbackHandler(settleUC, cfg.CallbackSecret)
	sweepHandler := handlers.NewSweepHandler(sweepUC)
	healthHandler := handlers.NewHealthHandler(rabbitMQ.Conn, cfg.PaymentsFile)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook", webhookHandler.Handle)
	// The gateway delivers callbacks as GET with query parameters; POST is
	// accepted too for the other notification mode.
	r.Get("/callback", callbackHandler.Handle)
	r.Post("/callback", callbackHandler.Handle)
	r.Post("/sweep", sweepHandler.Handle)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("🔥 amo-sbp-bridge listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
