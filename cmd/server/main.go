package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/slog"

	"github.com/simone-trubian/baldr/gatekeeper/internal/adapters"
	"github.com/simone-trubian/baldr/gatekeeper/internal/admission"
	"github.com/simone-trubian/baldr/gatekeeper/internal/config"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/ports"
	"github.com/simone-trubian/baldr/gatekeeper/internal/handlers"
	"github.com/simone-trubian/baldr/gatekeeper/internal/httpclient"
	"github.com/simone-trubian/baldr/gatekeeper/internal/obs"
)

var version = "dev"

func main() {
	// 1. Configuration (Env Vars)
	cfg, err := config.Load()
	if err != nil {
		slog.Fatalf("Invalid configuration: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObs, err := obs.Init(ctx, obs.Options{Version: version, Exporter: cfg.OTelExporter})
	if err != nil {
		slog.Fatalf("Observability setup failed: %v", err)
	}

	rules, err := admission.Load(cfg.RulesetPreset, cfg.RulesetFile)
	if err != nil {
		slog.Fatalf("Ruleset failed to load: %v", err)
	}
	phrases, keywords, patterns := rules.Size()
	slog.Infof("Ruleset %q loaded: %d phrases, %d keywords, %d patterns", rules.Name(), phrases, keywords, patterns)

	// 2. Dependency Injection (Wiring)
	var llm ports.LLMPort
	switch cfg.Provider {
	case config.ProviderMock:
		llm = &adapters.MockLLM{Delay: 50 * time.Millisecond}
	default:
		llm = adapters.NewLLM(adapters.LLMConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			StallTimeout: cfg.StallTimeout,
			Client: httpclient.New(
				httpclient.WithConnectTimeout(cfg.ConnectTimeout),
				httpclient.WithResponseHeaderTimeout(cfg.HeaderTimeout),
			),
		})
	}
	guardrail := adapters.NewLexicalGuardrail(rules)

	// 3. Service Initialization
	svc := core.NewGateService(guardrail, llm, core.CompletionSettings{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Params: domain.GenerationParams{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	})
	handler := handlers.NewHTTPHandler(svc)

	// 4. Router Setup
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Start Server
	go func() {
		slog.Infof("🛡️ Baldr Gatekeeper running on port %s (provider %s, model %s)", cfg.Port, cfg.Provider, cfg.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Errorf("Server shutdown: %v", err)
	}
	if err := shutdownObs(shutdownCtx); err != nil {
		slog.Errorf("Observability shutdown: %v", err)
	}
	slog.Flush()
}

func setupLogging(cfg config.Config) {
	slog.SetLogLevel(slog.LevelByName(cfg.LogLevel))
	if cfg.LogFormat == "json" {
		slog.SetFormatter(slog.NewJSONFormatter())
	}
}
