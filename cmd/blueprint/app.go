package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kalambet/blueprint/internal/config"
	"github.com/kalambet/blueprint/internal/engine"
	"github.com/kalambet/blueprint/internal/generate"
	"github.com/kalambet/blueprint/internal/storage"
)

// loadConfig reads configuration and applies log.level unless --log-level
// was given.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})))
	}
	return cfg, nil
}

// chatEngine is the local engine used for elicitation and normalization.
func chatEngine(ctx context.Context, cfg config.Config) (engine.Engine, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Backend:       engine.BackendOllama,
		OllamaBaseURL: cfg.Ollama.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting inference engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, messages, cfg.Ollama.ChatModel); err != nil {
		return nil, err
	}
	return eng, nil
}

// synthesizer builds the code synthesizer for the configured backend.
func synthesizer(ctx context.Context, cfg config.Config) (generate.Synthesizer, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Backend:          cfg.Synth.Backend,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OpenRouterAPIKey: cfg.Proxy.OpenRouterAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting synthesis engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, messages, cfg.SynthModel()); err != nil {
		return nil, err
	}
	return generate.NewModelSynthesizer(eng, cfg.SynthModel(), cfg.Generate.ContextTokens), nil
}

func openStore(cfg config.Config) (*storage.Store, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}
