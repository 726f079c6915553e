package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/hocduong/assistant/internal/api"
	"github.com/hocduong/assistant/internal/config"
	"github.com/hocduong/assistant/internal/llm"
	"github.com/hocduong/assistant/internal/logger"
	"github.com/hocduong/assistant/internal/orchestrator"
	"github.com/hocduong/assistant/internal/risk"
	"github.com/hocduong/assistant/internal/session"
	"github.com/hocduong/assistant/internal/store"
)

func main() {
	// Load configuration. Missing LLM credentials or database location
	// halts startup; everything downstream assumes they exist.
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Persistence service
	gateway, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.L.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	// Language model service
	model := llm.NewService(llm.NewClient(cfg.LLM), cfg.LLM)

	// Risk table: config categories when present, defaults otherwise.
	categories := make([]risk.Category, 0, len(cfg.Risk.Categories))
	for _, c := range cfg.Risk.Categories {
		categories = append(categories, risk.Category{Name: c.Name, Keywords: c.Keywords})
	}
	detector := risk.New(categories)

	sessions := session.NewManager()
	orch := orchestrator.New(model, gateway, detector)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(sessions, orch, gateway, cfg.Admin)
	handler.RegisterRoutes(router)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr, "admin_api", cfg.Admin.Password != "")
	if err := router.Run(serverAddr); err != nil {
		logger.L.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
