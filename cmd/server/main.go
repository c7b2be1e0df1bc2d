package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/config"
	"github.com/garyjia/groupware-approval/internal/container"
	apphttp "github.com/garyjia/groupware-approval/internal/interfaces/http"
	"github.com/garyjia/groupware-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting approval workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("lark_enabled", cfg.Lark.Enabled))

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty; callers are identified by the X-User-ID header")
	}

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	services := c.Services()
	server := apphttp.NewServer(cfg.ToServerConfig(), cfg.ToAuthConfig(), apphttp.Services{
		Documents: services.Documents,
		Engine:    services.Engine,
		Leave:     services.Leave,
		Health:    c.Ping,
	}, c.HTTPLogger())

	// blocks until a signal arrives or the listener fails
	return server.Start(ctx)
}
