package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"testimonials/internal/api/handlers"
	"testimonials/internal/api/middleware"
	"testimonials/internal/app"
	"testimonials/internal/config"
	"testimonials/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Server struct {
	config  *config.Config
	logger  *logger.Logger
	handler http.Handler
	server  *http.Server
}

func New(a *app.App) *Server {
	cfg := a.Config
	log := a.Logger

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Preflight())

	// Optional parts must reach the handlers as untyped nil.
	var service handlers.TestimonialService
	if a.Service != nil {
		service = a.Service
	}
	var publisher handlers.EventPublisher
	if a.Publisher != nil {
		publisher = a.Publisher
	}
	var journal handlers.HistoryLister
	if a.Journal != nil {
		journal = a.Journal
	}

	// Initialize handlers
	testimonialHandler := handlers.NewTestimonialHandler(service, log)
	webhookHandler := handlers.NewWebhookHandler(service, publisher, log)
	modelsHandler := handlers.NewModelsHandler(a.Catalog)
	debugHandler := handlers.NewDebugHandler(cfg)
	historyHandler := handlers.NewHistoryHandler(journal)

	requireConfig := middleware.RequireConfig(cfg, http.StatusInternalServerError)

	// Routes
	router.GET("/", handlers.Index)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	{
		v1.GET("", handlers.Index)

		v1.GET("/generate", requireConfig, testimonialHandler.Generate)
		v1.POST("/generate", requireConfig, testimonialHandler.Generate)
		v1.POST("/generate-all", requireConfig, testimonialHandler.GenerateAll)

		v1.POST("/webhook", middleware.RequireConfig(cfg, http.StatusOK), webhookHandler.Handle)

		v1.GET("/models", modelsHandler.List)
		v1.GET("/debug", debugHandler.Show)
		v1.GET("/history", historyHandler.List)
	}

	router.NoMethod(func(c *gin.Context) {
		msg := "Method not allowed"
		if c.Request.URL.Path == "/api/webhook" || c.Request.URL.Path == "/api/generate-all" {
			msg = "Method not allowed. Use POST."
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": msg})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		config:  cfg,
		logger:  log,
		handler: corsHandler.Handler(router),
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	// A bulk run holds its request open for minutes.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the CORS-wrapped router. The Vercel entry serves it directly.
func (s *Server) Handler() http.Handler {
	return s.handler
}
