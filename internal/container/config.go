// Package container provides dependency injection and lifecycle management
// for the approval workflow service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database     DatabaseConfig
	Lark         LarkConfig
	Notification NotificationConfig
	Leave        LeaveConfig
	Dispatcher   DispatcherConfig
	Worker       WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// LarkConfig holds Lark IM settings used for notification delivery.
type LarkConfig struct {
	// Enabled switches delivery from the log sender to Lark IM
	Enabled       bool
	AppID         string
	AppSecret     string
	BaseURL       string
	ReceiveIDType string
}

// NotificationConfig controls the notification outbox.
type NotificationConfig struct {
	// MaxAttempts is how many deliveries a notification gets before it is left FAILED
	MaxAttempts int

	// TemplatesPath overrides the built-in message templates when set
	TemplatesPath string

	// PendingGrace is how long a PENDING row may wait for its queued delivery
	// before the retry worker picks it up
	PendingGrace time.Duration
}

// LeaveConfig holds leave ledger settings.
type LeaveConfig struct {
	// DefaultAnnualHours applies to grants that leave the total unset
	DefaultAnnualHours float64
}

// DispatcherConfig bounds asynchronous event handling.
type DispatcherConfig struct {
	MaxConcurrency int
	AsyncTimeout   time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	RetryInterval  time.Duration
	RetryBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/approval.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
		},
		Notification: NotificationConfig{
			MaxAttempts:  3,
			PendingGrace: 5 * time.Minute,
		},
		Leave: LeaveConfig{
			DefaultAnnualHours: 120,
		},
		Dispatcher: DispatcherConfig{
			MaxConcurrency: 16,
			AsyncTimeout:   30 * time.Second,
		},
		Worker: WorkerConfig{
			RetryInterval:  time.Minute,
			RetryBatchSize: 50,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
	}

	if c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("notification.max_attempts must be positive")
	}
	if c.Leave.DefaultAnnualHours < 0 {
		return fmt.Errorf("leave.default_annual_hours cannot be negative")
	}

	return nil
}
