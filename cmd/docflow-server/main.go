package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authhandler "github.com/docflow/docflow-backend/internal/auth/handler"
	"github.com/docflow/docflow-backend/internal/auth/jwt"
	authrepo "github.com/docflow/docflow-backend/internal/auth/repository"
	authservice "github.com/docflow/docflow-backend/internal/auth/service"
	dashhandler "github.com/docflow/docflow-backend/internal/dashboard/handler"
	dashservice "github.com/docflow/docflow-backend/internal/dashboard/service"
	"github.com/docflow/docflow-backend/internal/document/events"
	dochandler "github.com/docflow/docflow-backend/internal/document/handler"
	"github.com/docflow/docflow-backend/internal/document/llm"
	"github.com/docflow/docflow-backend/internal/document/normalize"
	"github.com/docflow/docflow-backend/internal/document/ocr"
	"github.com/docflow/docflow-backend/internal/document/repository"
	"github.com/docflow/docflow-backend/internal/document/schema"
	docservice "github.com/docflow/docflow-backend/internal/document/service"
	"github.com/docflow/docflow-backend/pkg/config"
	"github.com/docflow/docflow-backend/pkg/database"
	"github.com/docflow/docflow-backend/pkg/httputil"
	"github.com/docflow/docflow-backend/pkg/logger"
	"github.com/docflow/docflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("docflow-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("docflow-server", cfg.Server.Environment)
	log.Info().Msg("starting DocFlow server")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ when enabled. Processing works without it.
	var rmq *messaging.RabbitMQ
	var docEvents *events.Publisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDocumentEvents, "docflow-server", log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		docEvents = events.NewPublisher(publisher, log)
	} else {
		log.Info().Msg("rabbitmq disabled, processed events will not be published")
		docEvents = events.NewPublisher(nil, log)
	}

	// Initialize repositories
	cinRepo := repository.NewCINRepository(db)
	permisRepo := repository.NewPermisRepository(db)
	grisRepo := repository.NewGrisRepository(db)
	userRepo := authrepo.NewUserRepository(db)

	// Initialize extraction collaborators
	ocrClient := ocr.NewClient(cfg.OCR)
	extractor := llm.NewExtractor(cfg.Model)
	validator := schema.NewValidator(schema.DefaultTables())
	normalizer := normalize.New(normalize.DefaultTables())

	// Initialize services
	documentService := docservice.New(
		ocrClient, extractor, validator, normalizer,
		cinRepo, permisRepo, grisRepo, docEvents,
		docservice.DefaultTimeouts(), log,
	)
	dashboardService := dashservice.New(cinRepo, permisRepo, grisRepo, log)
	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(userRepo, jwtManager, log)

	// Initialize handlers
	documentHandler := dochandler.New(documentService, log)
	dashboardHandler := dashhandler.New(dashboardService, log)
	authHandler := authhandler.NewAuthHandler(authService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "docflow-server",
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authhandler.RequireAuth(jwtManager))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authhandler.RequireAuth(jwtManager))

			r.Route("/cin", func(r chi.Router) {
				r.Post("/process", documentHandler.ProcessCIN)
				r.Get("/all", documentHandler.ListCIN)
			})

			r.Route("/permis", func(r chi.Router) {
				r.Post("/process", documentHandler.ProcessPermis)
				r.Get("/all", documentHandler.ListPermis)
			})

			r.Route("/gris", func(r chi.Router) {
				r.Post("/process", documentHandler.ProcessGris)
				r.Get("/all", documentHandler.ListGris)
				r.Get("/evolution-mensuel", documentHandler.MonthlyEvolution)
			})

			r.Route("/charts", func(r chi.Router) {
				r.Get("/overview", dashboardHandler.Overview)
				r.Get("/gender-distribution", dashboardHandler.GenderDistribution)
				r.Get("/cities-distribution", dashboardHandler.CitiesDistribution)
				r.Get("/license-categories", dashboardHandler.LicenseCategories)
				r.Get("/car-usage-types", dashboardHandler.CarUsageTypes)
				r.Get("/monthly-stats", dashboardHandler.MonthlyStats)
				r.Get("/daily-stats", dashboardHandler.DailyStats)
				r.Get("/essential", dashboardHandler.Essential)
				r.Get("/dashboard", dashboardHandler.Dashboard)
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
