// Package api exposes the reconciliation review surface over HTTP: roster
// management, statement import, candidate confirm/reject and reminders.
package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/klab-verein/kassenwart/internal/application/reminder"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
	"github.com/klab-verein/kassenwart/internal/infrastructure/config"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	repo      storage.Repository
	engine    *recon.Engine
	reminders *reminder.Service
	logger    *slog.Logger
	router    *gin.Engine
}

// NewServer creates the API server. reminders may be nil when no Telegram
// bot is configured; the reminder endpoint then responds 503.
func NewServer(cfg config.APIConfig, repo storage.Repository, engine *recon.Engine, reminders *reminder.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		cfg:       cfg,
		repo:      repo,
		engine:    engine,
		reminders: reminders,
		logger:    logger,
		router:    router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.GET("/members", s.listMembers)
		api.POST("/members", s.createMember)
		api.PUT("/members/:id", s.updateMember)
		api.DELETE("/members/:id", s.deactivateMember)
		api.GET("/members/:id/payments", s.listPayments)

		api.POST("/import", s.importStatement)
		api.GET("/batches", s.listBatches)
		api.GET("/batches/:id/candidates", s.listCandidates)
		api.POST("/candidates/:id/confirm", s.confirmCandidate)
		api.POST("/candidates/:id/reject", s.rejectCandidate)

		api.POST("/reminders/send", s.sendReminders)
		api.GET("/stats", s.stats)
	}
}

// Run starts the HTTP server on the configured port and blocks.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("api server listening", "addr", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}
