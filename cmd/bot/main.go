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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/fantasy-tales/internal/config"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
	"github.com/kitbuilder587/fantasy-tales/internal/proxyclient"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
	"github.com/kitbuilder587/fantasy-tales/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	cfg.Log.Service = "story-bot"
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", zap.String("type", cfg.Store.Type), zap.Error(err))
		return err
	}
	defer store.Close()

	m := metrics.New()

	bot, err := telegram.New(telegram.BotConfig{
		Token:                   cfg.Telegram.Token,
		Debug:                   cfg.Telegram.Debug,
		RequestsPerMinute:       cfg.RateLimit.RequestsPerMinute,
		SurfaceGenerationErrors: true,
	},
		proxyclient.New(proxyclient.Config{ServerURL: cfg.ServerURL}, logger),
		store,
		logger,
		m,
	)
	if err != nil {
		logger.Error("failed to start bot", zap.Error(err))
		return err
	}

	logger.Info("story bot running",
		zap.String("server_url", cfg.ServerURL),
		zap.String("store", cfg.Store.Type),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
