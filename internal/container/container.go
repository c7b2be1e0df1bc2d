package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/dispatcher"
	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/application/service"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	"github.com/garyjia/groupware-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/groupware-approval/internal/infrastructure/worker"
	"github.com/garyjia/groupware-approval/pkg/database"
)

// Container owns every long-lived component. Start builds them in dependency
// order and Close tears them down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	conn         *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	sender     port.MessageSender
	exporter   port.DocumentExporter
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	workers    *worker.Manager

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Documents     port.DocumentRepository
	Lines         port.LineRepository
	LeaveRequests port.LeaveRequestRepository
	AnnualLeaves  port.AnnualLeaveRepository
	LedgerEntries port.LedgerEntryRepository
	History       port.HistoryRepository
	Notifications port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Notification service.NotificationService
	Ledger       port.LeaveLedger
	Engine       workflow.ApprovalEngine
	Documents    service.DocumentService
	Leave        service.LeaveService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates cfg. Call Start to build the components.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
//  1. database, migrations and repositories
//  2. message sender and exporter
//  3. dispatcher and application services
//  4. background workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	var workerCtx context.Context
	workerCtx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initAdapters(); err != nil {
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(workerCtx); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close shuts components down in reverse order. In-flight notification
// deliveries are drained before the database closes.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	var errs []error
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Ping reports whether the database answers.
func (c *Container) Ping(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.conn.PingContext(ctx)
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	if err := c.Ping(ctx); err != nil {
		set("database", false, err.Error())
	} else {
		set("database", true, "")
	}

	if c.workers == nil {
		set("workers", false, "not initialized")
	} else {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	}

	if c.dispatcher == nil {
		set("dispatcher", false, "not initialized")
	} else {
		set("dispatcher", true, "")
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = bundle.Conn
	c.db = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.conn.DB, c.logger)
	if err != nil {
		c.conn.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initAdapters() error {
	sender, err := ProvideMessageSender(&c.config.Lark, &c.config.Notification, c.logger)
	if err != nil {
		return err
	}
	c.sender = sender
	c.exporter = ProvideExporter(c.logger)
	return nil
}

func (c *Container) initServices() error {
	c.dispatcher = ProvideDispatcher(&c.config.Dispatcher, c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Sender:     c.sender,
		Exporter:   c.exporter,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Notification: c.services.Notification,
		WorkerCfg:    &c.config.Worker,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers
	return c.workers.StartAll(ctx)
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Logger is the key-value logger accepted by the application and HTTP packages.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HTTPLogger returns the key-value logger used by the HTTP adapter.
func (c *Container) HTTPLogger() Logger {
	return &zapLoggerAdapter{logger: c.logger.Named("http")}
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the application packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields. Errors become zap.Error.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
