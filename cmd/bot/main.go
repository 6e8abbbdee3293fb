package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"viral-strategy-ai/internal/analyzer"
	"viral-strategy-ai/internal/config"
	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/handlers"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/httpclient"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/mediagroup"
	"viral-strategy-ai/internal/storage"
	"viral-strategy-ai/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadBot()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}
	if err := tg.SetCommands(handlers.Commands()); err != nil {
		logger.Warn("set commands failed", "err", err)
	}

	gem := gemini.New(gemini.Options{
		APIKey:            cfg.GeminiAPIKey,
		BaseURL:           cfg.GeminiBaseURL,
		APIVersion:        cfg.GeminiAPIVersion,
		HTTPClient:        httpClient,
		Logger:            logger,
		RequestsPerMinute: cfg.GeminiRPM,
	})

	backend, closeBackend, err := storage.Open(ctx, cfg.StorageDriver, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer closeBackend()

	store := history.NewStore(history.Options{
		Backend:  backend,
		MaxItems: cfg.HistoryLimit,
		Logger:   logger,
	})

	an := analyzer.New(analyzer.Options{
		Model: gem,
		Preparer: media.NewPreparer(media.Options{
			Policy:   cfg.MediaPolicy(),
			Uploader: gem,
			Sampler:  media.FFmpegSampler{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath},
			Logger:   logger,
		}),
		History: store,
		Models:  cfg.Models(),
		Logger:  logger,
	})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Analyzer: an,
		History:  store,
		Policy:   cfg.MediaPolicy(),
		Logger:   logger,
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "storage", cfg.StorageDriver)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
