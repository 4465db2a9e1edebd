package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/fantasy-tales/internal/config"
	"github.com/kitbuilder587/fantasy-tales/internal/httpapi"
	"github.com/kitbuilder587/fantasy-tales/internal/llm"
	llmMock "github.com/kitbuilder587/fantasy-tales/internal/llm/mock"
	"github.com/kitbuilder587/fantasy-tales/internal/llm/openai"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/ratelimit"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg.Log.Service = "story-server"
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	client := newLLMClient(cfg.LLM, logger)

	var m *metrics.Metrics
	if cfg.HTTP.MetricsEnabled {
		m = metrics.New()
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
		defer limiter.Stop()
	}

	completion := service.NewCompletionService(service.CompletionDeps{
		LLM:            client,
		Provider:       cfg.LLM.Provider,
		Logger:         logger,
		Metrics:        m,
		MaxConcurrency: int64(cfg.LLM.MaxConcurrency),
	})

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handler:        httpapi.NewHandler(completion, logger),
		Logger:         logger,
		Metrics:        m,
		Limiter:        limiter,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("story server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
			zap.Bool("metrics", m != nil),
			zap.Int("rate_limit_per_minute", cfg.RateLimit.RequestsPerMinute),
			zap.Int("max_concurrency", cfg.LLM.MaxConcurrency),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down, draining in-flight requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLLMClient(cfg config.LLMConfig, logger *zap.Logger) llm.Client {
	switch cfg.Provider {
	case config.ProviderMock:
		logger.Warn("using mock llm provider")
		return llmMock.New()
	default:
		return openai.New(openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, logger)
	}
}
