package ui

import (
	"context"
	"net/http"
	"time"

	"gobogey/adapters/postgres"
	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal"

	"github.com/gin-gonic/gin"
)

// ResultStore is the read side of stored batch runs.
type ResultStore interface {
	ListRuns(ctx context.Context, limit int) ([]postgres.RunRow, error)
	GetRun(ctx context.Context, id core.RunID) (*postgres.RunRow, error)
	GetRecords(ctx context.Context, id core.RunID, significantOnly bool) ([]*bogey.Record, error)
	GetPair(ctx context.Context, id core.RunID, pair match.Pair) (*bogey.Record, error)
}

// Server serves stored bogey results over a read-only JSON API.
type Server struct {
	router *gin.Engine
	store  ResultStore
	logger *internal.Logger
	http   *http.Server
}

// NewServer wires the routes. mode is a gin mode (release, debug, test).
func NewServer(store ResultStore, mode string, logger *internal.Logger) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{
		router: gin.New(),
		store:  store,
		logger: logger.With("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	runs := s.router.Group("/runs")
	runs.GET("", s.handleListRuns)
	runs.GET("/:id", s.handleGetRun)
	runs.GET("/:id/results", s.handleResults)
	runs.GET("/:id/pairs/:p1/:p2", s.handlePair)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("serving results on http://%s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
