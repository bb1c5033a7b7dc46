package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthgrid/govai/internal/config"
	"github.com/healthgrid/govai/internal/core"
	"github.com/healthgrid/govai/internal/llm"
	"github.com/healthgrid/govai/internal/store"
)

type Server struct {
	Pipeline *core.Pipeline
	cfg      *config.Config
	log      *zap.Logger
}

// NewServer assembles the service: LLM client via the provider factory,
// sqlite insight store, and the pipeline on top.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open insight store: %w", err)
		}
	}

	return &Server{
		Pipeline: core.NewPipeline(cfg, client, st, log),
		cfg:      cfg,
		log:      log,
	}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/sessions", s.CreateSession)
	r.POST("/sessions/:id/datasets", s.UploadDataset)
	r.GET("/sessions/:id/summary", s.Summary)
	r.POST("/sessions/:id/analyze", s.Analyze)
	r.GET("/sessions/:id/insights", s.History)

	return r
}
