package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightbooks/backend/docs"
	"github.com/brightbooks/backend/internal/config"
	"github.com/brightbooks/backend/internal/database"
	"github.com/brightbooks/backend/internal/handlers"
	mW "github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/services"
	"github.com/brightbooks/backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title BrightBooks API
// @version 1.0
// @description Invoicing and payment tracking API for small businesses
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("scheduler.secret", "SCHEDULER_SECRET")
	viper.BindEnv("webhooks.secret", "WEBHOOK_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using environment: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appCfg := config.LoadAppConfig()

	docs.SwaggerInfo.Title = "BrightBooks API"
	docs.SwaggerInfo.Description = "Invoicing and payment tracking API for small businesses"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(logger); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	redisClient := database.InitRedis(logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	st := store.NewPostgres(db)

	authService := services.NewAuthService(st, redisClient, logger)
	clientService := services.NewClientService(st, logger)
	invoiceService := services.NewInvoiceService(st, logger, appCfg.BaseURL)
	paymentService := services.NewPaymentService(st, logger)
	templateService := services.NewTemplateService(st, logger)
	scheduleService := services.NewScheduleService(st, logger)
	reconcileJob := services.NewReconcileJob(st, scheduleService, logger)
	reportService := services.NewReportService(st, logger)
	portalService := services.NewPortalService(st, logger, appCfg.UploadDir)

	webhookHandler := handlers.NewWebhookHandler(paymentService, st, redisClient, logger)
	portalHandler := handlers.NewPortalHandler(portalService, logger)

	mW.InitAuthMiddleware(redisClient)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Uploaded client documents, served behind auth-agnostic static handler
	// with no-store headers.
	r.Handle("/static/uploads/*", http.StripPrefix("/static/uploads/",
		mW.StaticFileServer(appCfg.UploadDir)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Called by the external scheduler with a shared secret, not a
		// user session.
		r.Group(func(r chi.Router) {
			r.Use(mW.SchedulerSecretMiddleware)
			r.Post("/reconcile", reconcileJob.HandleRun)
		})

		// Payment processor callbacks.
		r.Post("/webhooks/payments", webhookHandler.HandleEvent)

		// Client portal, authenticated by portal token rather than JWT.
		r.Post("/portal/uploads", portalHandler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/clients", clientService.ListClients)
			r.Post("/clients", clientService.CreateClient)
			r.Get("/clients/{id}", clientService.GetClient)

			r.Get("/invoices", invoiceService.ListInvoices)
			r.Post("/invoices", invoiceService.CreateInvoice)
			r.Get("/invoices/{id}", invoiceService.GetInvoice)
			r.Post("/invoices/{id}/send", invoiceService.SendInvoice)
			r.Post("/invoices/{id}/void", invoiceService.VoidInvoice)
			r.Get("/invoices/{id}/qr", invoiceService.InvoiceQR)
			r.Post("/invoices/{id}/payments", paymentService.CreatePayment)

			r.Get("/payments", paymentService.ListPayments)
			r.Post("/sync-payments", paymentService.SyncPayments)
			r.Post("/payments/backfill-fees", paymentService.BackfillFees)

			r.Get("/templates", templateService.ListTemplates)
			r.Post("/templates", templateService.CreateTemplate)
			r.Get("/templates/{id}", templateService.GetTemplate)
			r.Post("/templates/{id}/pause", templateService.PauseTemplate)
			r.Post("/templates/{id}/resume", templateService.ResumeTemplate)
			r.Post("/templates/{id}/cancel", templateService.CancelTemplate)

			r.Get("/reports/summary", reportService.Summary)
			r.Get("/reports/invoices.xlsx", reportService.ExportInvoices)

			r.Post("/portal/tokens", portalHandler.IssueToken)
			r.Get("/portal/uploads", portalHandler.ListUploads)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
