package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"viral-strategy-ai/internal/analyzer"
	"viral-strategy-ai/internal/config"
	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/httpclient"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/metrics"
	"viral-strategy-ai/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
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

	m := metrics.New()

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
		Metrics: m,
		Logger:  logger,
	})

	s := newServer(serverOptions{
		Analyzer:       an,
		History:        store,
		Policy:         cfg.MediaPolicy(),
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        m.Handler(),
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down")
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
