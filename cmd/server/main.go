package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rohittcodes/flashio-sub001/internal/api"
	"github.com/rohittcodes/flashio-sub001/internal/api/handlers"
	"github.com/rohittcodes/flashio-sub001/internal/config"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/metrics"
	"github.com/rohittcodes/flashio-sub001/internal/mirror"
	"github.com/rohittcodes/flashio-sub001/internal/repositories"
	"github.com/rohittcodes/flashio-sub001/internal/sandbox"
	"github.com/rohittcodes/flashio-sub001/internal/storage"
	"github.com/rohittcodes/flashio-sub001/internal/terminal"
	"go.uber.org/zap"
)

// @title FlashIO API
// @version 1.0
// @description Storage, sandbox and terminal backend for the FlashIO web IDE.
// @BasePath /api/v1
func main() {
	cfg := config.Envs

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer func() { _ = logging.Sync() }()

	repositories.ConnectDatabase()

	if err := repositories.InitBlobStore(
		cfg.Blob.AccessKeyID,
		cfg.Blob.SecretAccessKey,
		cfg.Blob.AccountID,
		cfg.Blob.BucketName,
		cfg.Blob.Region,
	); err != nil {
		logging.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	var remoteMirror storage.Mirror
	if cfg.GitHub.Token != "" && cfg.GitHub.Owner != "" {
		remoteMirror = mirror.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Owner, cfg.GitHub.Token)
	} else {
		logging.Warn("GitHub mirror not configured; sync-project will be unavailable")
	}

	storageManager := storage.NewManager(
		repositories.NewFileRepository(repositories.DB),
		repositories.NewBlobStore(),
		remoteMirror,
		storage.NewPolicy(cfg.Storage.InlineThreshold),
	)

	runtime := sandbox.NewLocalRuntime(cfg.Sandbox.WorkdirRoot, cfg.Sandbox.Shell, cfg.Sandbox.PortBase)
	registry := sandbox.NewRegistry(runtime, repositories.NewSandboxRepository(repositories.DB), cfg.Sandbox.BootBackoff)
	terminals := terminal.NewManager(runtime, repositories.NewSessionRepository(repositories.DB))

	handlers.Init(storageManager, registry, runtime, terminals, repositories.NewSandboxRepository(repositories.DB))

	// Metrics on a separate listener so the main port stays app-only.
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		logging.Info("Metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil && err != http.ErrServerClosed {
			logging.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	mux := api.SetupRouter()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: mux,
		// Timeouts prevent resource exhaustion from slow clients. No
		// WriteTimeout: terminal output streams are long-lived.
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	logging.Info("Starting FlashIO server", zap.String("port", cfg.Port))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Fatal("Could not listen", zap.String("port", cfg.Port), zap.Error(err))
	}
}
