package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/filiksyos/linkedin-search-app/internal/completion"
	"github.com/filiksyos/linkedin-search-app/internal/config"
	"github.com/filiksyos/linkedin-search-app/internal/search"
	"github.com/filiksyos/linkedin-search-app/internal/server"
	"github.com/filiksyos/linkedin-search-app/internal/tools"
)

var errNotConfigured = errors.New("no model API key configured: run `linkedin-search profile add` or set OPENROUTER_API_KEY")

// newCompletionService wires the model, the search tool and the registry.
func newCompletionService(cfg *config.Config, logger *slog.Logger) (*completion.Service, error) {
	if !cfg.IsValid() {
		return nil, errNotConfigured
	}

	searcher := search.NewClient(cfg.GetSearchAPIKey(), search.WithBaseURL(cfg.Search.BaseURL))
	if cfg.GetSearchAPIKey() == "" {
		logger.Warn("EXA_API_KEY is not set; LinkedIn searches will fail")
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewLinkedInSearchTool(searcher,
		tools.WithSearchTimeout(cfg.Timeouts.Search()),
		tools.WithLogger(logger),
	))

	model := completion.NewOpenAIModel(cfg.GetAPIKey(), cfg.GetBaseURL())
	return completion.New(model, cfg.GetModel(), registry,
		completion.WithLogger(logger),
		completion.WithModelTimeout(cfg.Timeouts.Model()),
	), nil
}

func serverConfig(cfg *config.Config, addr string) server.Config {
	return server.Config{
		Addr:            addr,
		RateLimitPerMin: cfg.RateLimit.RequestsPerMinute,
		RateLimitBurst:  cfg.RateLimit.Burst,
		Status: server.StatusInfo{
			Model:            cfg.GetModel(),
			SearchConfigured: cfg.GetSearchAPIKey() != "",
		},
	}
}

// startEmbedded runs the chat endpoint on a loopback port for the lifetime of
// the returned stop function and reports its URL.
func startEmbedded(cfg *config.Config, logger *slog.Logger) (string, func(), error) {
	svc, err := newCompletionService(cfg, logger)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen for embedded server: %w", err)
	}
	srv, err := server.New(serverConfig(cfg, listener.Addr().String()), svc, logger)
	if err != nil {
		listener.Close()
		return "", nil, err
	}

	go func() {
		if err := srv.Serve(listener); err != nil {
			logger.Error("embedded server stopped", slog.Any("error", err))
		}
	}()

	stop := func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Warn("embedded server shutdown", slog.Any("error", err))
		}
	}
	return "http://" + listener.Addr().String() + "/api/chat", stop, nil
}

// resolveEndpoint picks the endpoint the client talks to: the flag, then a
// remote endpoint from config, then an embedded server.
func resolveEndpoint(cfg *config.Config, flagEndpoint string, logger *slog.Logger) (string, func(), error) {
	if flagEndpoint != "" {
		return flagEndpoint, func() {}, nil
	}
	if cfg.Client.Remote {
		return cfg.Client.Endpoint, func() {}, nil
	}
	return startEmbedded(cfg, logger)
}
