package config

import (
	"github.com/garyjia/groupware-approval/internal/container"
	apphttp "github.com/garyjia/groupware-approval/internal/interfaces/http"
)

// ToContainerConfig converts the file-based Config into the container's configuration.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			BaseURL:       c.Lark.BaseURL,
			ReceiveIDType: c.Lark.ReceiveIDType,
		},
		Notification: container.NotificationConfig{
			MaxAttempts:   c.Notification.MaxAttempts,
			TemplatesPath: c.Notification.TemplatesPath,
			PendingGrace:  c.Notification.PendingGrace,
		},
		Leave: container.LeaveConfig{
			DefaultAnnualHours: c.Leave.DefaultAnnualHours,
		},
		Dispatcher: container.DispatcherConfig{
			MaxConcurrency: c.Notification.MaxConcurrency,
			AsyncTimeout:   c.Notification.DeliverTimeout,
		},
		Worker: container.WorkerConfig{
			RetryInterval:  c.Worker.RetryInterval,
			RetryBatchSize: c.Worker.RetryBatchSize,
		},
	}
}

// ToServerConfig converts the server section into the HTTP adapter's configuration.
func (c *Config) ToServerConfig() apphttp.ServerConfig {
	return apphttp.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		Mode:            c.Server.Mode,
	}
}

// ToAuthConfig converts the auth section into the HTTP adapter's configuration.
func (c *Config) ToAuthConfig() apphttp.AuthConfig {
	return apphttp.AuthConfig{
		Secret:    c.Auth.JWTSecret,
		Issuer:    c.Auth.Issuer,
		AdminRole: c.Auth.AdminRole,
	}
}
