package container

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/dispatcher"
	"github.com/garyjia/groupware-approval/internal/application/ledger"
	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/application/service"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	"github.com/garyjia/groupware-approval/internal/domain/event"
	"github.com/garyjia/groupware-approval/internal/infrastructure/export"
	infraLark "github.com/garyjia/groupware-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/groupware-approval/internal/infrastructure/notify"
	"github.com/garyjia/groupware-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/groupware-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/groupware-approval/internal/infrastructure/worker"
	"github.com/garyjia/groupware-approval/migrations"
	"github.com/garyjia/groupware-approval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ServiceDeps are the inputs of ProvideServices.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Sender     port.MessageSender
	Exporter   port.DocumentExporter
	Config     *Config
	Logger     *zap.Logger
}

// WorkerDeps are the inputs of ProvideWorkers.
type WorkerDeps struct {
	Notification service.NotificationService
	WorkerCfg    *WorkerConfig
	Logger       *zap.Logger
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).RunMigrations(migrations.FS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Documents:     repository.NewDocumentRepository(sqlDB, logger),
		Lines:         repository.NewLineRepository(sqlDB, logger),
		LeaveRequests: repository.NewLeaveRequestRepository(sqlDB, logger),
		AnnualLeaves:  repository.NewAnnualLeaveRepository(sqlDB, logger),
		LedgerEntries: repository.NewLedgerEntryRepository(sqlDB, logger),
		History:       repository.NewHistoryRepository(sqlDB, logger),
		Notifications: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideMessageSender returns the Lark messenger when Lark is enabled and the
// log sender otherwise. Both render through the same templates.
func ProvideMessageSender(larkCfg *LarkConfig, notifCfg *NotificationConfig, logger *zap.Logger) (port.MessageSender, error) {
	templates, err := notify.LoadTemplates(notifCfg.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}

	if !larkCfg.Enabled {
		logger.Info("Lark disabled, notifications go to the log")
		return notify.NewLogSender(templates, logger), nil
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     larkCfg.AppID,
		AppSecret: larkCfg.AppSecret,
		BaseURL:   larkCfg.BaseURL,
	}, logger)
	return infraLark.NewMessenger(client, templates, larkCfg.ReceiveIDType, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *DispatcherConfig, logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
		dispatcher.WithMaxConcurrency(cfg.MaxConcurrency),
		dispatcher.WithAsyncTimeout(cfg.AsyncTimeout),
	)
}

// ProvideServices builds the application layer and subscribes notification
// delivery to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	repos := deps.Repos
	log := &zapLoggerAdapter{logger: deps.Logger}

	notifications := service.NewNotificationService(
		repos.Notifications,
		deps.Sender,
		deps.Dispatcher,
		deps.Config.Notification.MaxAttempts,
		deps.Config.Notification.PendingGrace,
		log,
	)
	deps.Dispatcher.Subscribe(event.TypeNotificationQueued, "notification-delivery", notifications.HandleQueued)

	leaveLedger := ledger.NewAnnualLeaveLedger(repos.AnnualLeaves, repos.LedgerEntries, deps.TxManager, log)

	engine := workflow.NewEngine(
		repos.Documents,
		repos.Lines,
		repos.LeaveRequests,
		repos.History,
		leaveLedger,
		notifications,
		deps.TxManager,
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger.Named("engine")}),
	)

	documents := service.NewDocumentService(
		repos.Documents,
		repos.Lines,
		repos.LeaveRequests,
		repos.History,
		engine,
		notifications,
		deps.Exporter,
		deps.TxManager,
		log,
	)

	leave := service.NewLeaveService(
		leaveLedger,
		repos.AnnualLeaves,
		repos.LedgerEntries,
		deps.Exporter,
		decimal.NewFromFloat(deps.Config.Leave.DefaultAnnualHours),
		log,
	)

	return &ServiceBundle{
		Notification: notifications,
		Ledger:       leaveLedger,
		Engine:       engine,
		Documents:    documents,
		Leave:        leave,
	}, nil
}

// ProvideExporter creates the spreadsheet exporter.
func ProvideExporter(logger *zap.Logger) port.DocumentExporter {
	return export.NewExcelExporter(logger)
}

// ProvideWorkers registers the background workers. They are started by the caller.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.Notification == nil {
		return nil, fmt.Errorf("notification service is required")
	}

	manager := worker.NewManager(deps.Logger)
	manager.Register(worker.NewNotificationRetryWorker(
		deps.Notification,
		deps.WorkerCfg.RetryInterval,
		deps.WorkerCfg.RetryBatchSize,
		deps.Logger,
	))
	return manager, nil
}
