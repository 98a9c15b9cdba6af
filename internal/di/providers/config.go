// Package providers contains dependency injection providers for the diary server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/diary-server/internal/config"
	"github.com/listenupapp/diary-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// LoggerHandle closes the rotating log file on shutdown.
type LoggerHandle struct {
	*logger.Logger
}

// Shutdown implements do.Shutdownable.
func (h *LoggerHandle) Shutdown() error {
	return h.Close()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*LoggerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		FilePath:    cfg.Logger.FilePath,
	})

	log.Info("Starting diary server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"log_file", cfg.Logger.FilePath,
		"data_path", cfg.Storage.DataPath,
	)

	return &LoggerHandle{Logger: log}, nil
}
