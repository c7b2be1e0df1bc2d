package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Lark         LarkConfig         `mapstructure:"lark"`
	Notification NotificationConfig `mapstructure:"notification"`
	Leave        LeaveConfig        `mapstructure:"leave"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	// JWTSecret signs bearer tokens; empty trusts the X-User-ID header (local use only)
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	AdminRole string `mapstructure:"admin_role"`
}

// LarkConfig holds Lark IM configuration
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	BaseURL       string `mapstructure:"base_url"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// NotificationConfig holds notification outbox configuration
type NotificationConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	TemplatesPath  string        `mapstructure:"templates_path"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	DeliverTimeout time.Duration `mapstructure:"deliver_timeout"`
	PendingGrace   time.Duration `mapstructure:"pending_grace"`
}

// LeaveConfig holds annual leave configuration
type LeaveConfig struct {
	DefaultAnnualHours float64 `mapstructure:"default_annual_hours"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	RetryBatchSize int           `mapstructure:"retry_batch_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configPath, then a .env file next to the working directory if
// present, then the environment. Later sources win.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already set
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "data/approval.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("auth.admin_role", "admin")

	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "user_id")

	v.SetDefault("notification.max_attempts", 3)
	v.SetDefault("notification.max_concurrency", 16)
	v.SetDefault("notification.deliver_timeout", 30*time.Second)
	v.SetDefault("notification.pending_grace", 5*time.Minute)

	v.SetDefault("leave.default_annual_hours", 120)

	v.SetDefault("worker.retry_interval", time.Minute)
	v.SetDefault("worker.retry_batch_size", 50)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the secrets that are usually injected by the environment
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.jwt_secret": "APPROVAL_JWT_SECRET",
		"lark.app_id":     "LARK_APP_ID",
		"lark.app_secret": "LARK_APP_SECRET",
		"database.path":   "APPROVAL_DB_PATH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark.enabled is set")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark.enabled is set")
		}
	}

	if c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("notification.max_attempts must be positive")
	}
	if c.Worker.RetryInterval <= 0 {
		return fmt.Errorf("worker.retry_interval must be positive")
	}

	return nil
}
