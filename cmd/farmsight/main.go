package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/farmsight/farmsight/internal/advisory"
	"github.com/farmsight/farmsight/internal/advisory/providers"
	httpapi "github.com/farmsight/farmsight/internal/api/http"
	"github.com/farmsight/farmsight/internal/config"
	"github.com/farmsight/farmsight/internal/scheduler"
	"github.com/farmsight/farmsight/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting farmsight advisory API", zap.String("port", cfg.Port))

	// Persisted state: the durable profile and the snapshot timeline.
	profiles, err := store.NewProfileStore(cfg.ProfilePath, logger)
	if err != nil {
		logger.Fatal("failed to open profile store", zap.Error(err))
	}
	snapshots, err := store.NewSnapshotStore(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	bright := providers.NewBrightDataClient(httpClient, cfg.BrightDataAPIKey, cfg.SerpZone, cfg.UnlockerZone, logger)
	weather := providers.NewOpenMeteoClient(httpClient)
	chat := providers.NewChatClient(httpClient, cfg.ChatAgentURL, cfg.ChatAgentAPIKey, logger)

	// Verify the chat agent is reachable before serving; a failure is logged
	// and chat degrades rather than blocking startup.
	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	if err := chat.Verify(verifyCtx); err != nil {
		logger.Warn("chat agent verification failed, continuing with degraded chat", zap.Error(err))
	}
	cancelVerify()

	service := advisory.NewService(bright, weather, snapshots, logger)
	deriver := advisory.NewDeriver()

	sched := scheduler.New(service, profiles, cfg.RefreshInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "farmsight",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			// Stack traces stay in the server logs; callers get a JSON
			// body with an error key only.
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	handler := httpapi.NewHandler(profiles, snapshots, service, deriver, chat, bright, cfg.GeocoderAPIKey, logger)
	httpapi.RegisterRoutes(app, handler, cfg.AuthToken, cfg.CORSOrigin)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
