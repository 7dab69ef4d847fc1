// Command migrate-guard is the migration-assurance control-plane entry
// point: it wires storage, the browser driver, every pipeline stage, the
// REST boundary, and the secondary event log together, then serves HTTP
// until an interrupt or SIGTERM signal arrives. Adapted from
// cmd/chrc/main.go's wiring and graceful-shutdown pattern, trimmed of
// the auth/multi-tenancy/MCP/QUIC machinery that doesn't apply to this
// single-tenant control plane.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/capture"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/config"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/crawl"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/dataintegrity"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/eventlog"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/functional"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/httpapi"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/jobservice"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/pipeline"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/report"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/visualdiff"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevelValue()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	newID := idgen.Default

	store, err := storage.Open(cfg.DataDir, newID, logger)
	if err != nil {
		logger.Error("open storage", "error", err)
		os.Exit(1)
	}

	events, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		logger.Error("open event log", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	driver := browser.NewDriver(browser.Config{
		RecycleInterval:  4 * time.Hour,
		ResourceBlocking: []string{"font", "media"},
		Logger:           logger,
	})
	if err := driver.Start(ctx); err != nil {
		logger.Error("start browser driver", "error", err)
		os.Exit(1)
	}
	defer driver.Stop()

	jobs := jobservice.New(store, newID, logger)
	runs := pipeline.NewRunService(store, newID)

	stages := pipeline.Stages{
		Crawl:      crawl.NewEngine(2.0),
		Capture:    capture.New(store, browser.DefaultViewports(), logger),
		Visual:     visualdiff.New(store, visualdiff.DefaultOptions()),
		Functional: functional.New(store),
		Data:       dataintegrity.New(store),
		Reasoner:   buildReasoner(cfg, logger),
		Report:     report.New(store),
	}

	orch := pipeline.New(store, runs, stages, driver, events, cfg.GlobalConcurrency, logger)
	if err := orch.RecoverOnStartup(); err != nil {
		logger.Error("recover runs on startup", "error", err)
		os.Exit(1)
	}

	server := httpapi.New(ctx, jobs, runs, orch, store)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("migrate-guard listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "error", err)
	}
}

// buildReasoner selects the Reasoning stage implementation per spec.md
// §4.9: "llm" mode always wraps the Anthropic-backed reasoner with a
// rule-based fallback, since reasoning failure must fall back to the
// deterministic analyzer rather than fail the run.
func buildReasoner(cfg config.Config, logger *slog.Logger) reasoning.Reasoner {
	ruleBased := reasoning.NewRuleBased()
	if cfg.Reasoner.Mode != "llm" || cfg.Reasoner.AnthropicKey == "" {
		if cfg.Reasoner.Mode == "llm" {
			logger.Warn("reasoner mode llm requested but ANTHROPIC_API_KEY is unset, using rule-based only")
		}
		return ruleBased
	}
	client := reasoning.NewClient(cfg.Reasoner.AnthropicKey, cfg.Reasoner.Model)
	llm := reasoning.NewLLM(client, logger)
	return reasoning.NewWithFallback(llm, ruleBased, logger)
}
