package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/queuectl/internal/config"
	"github.com/cuongbtq/queuectl/internal/queue"
	"github.com/cuongbtq/queuectl/internal/runner"
	"github.com/cuongbtq/queuectl/internal/storage"
	"github.com/cuongbtq/queuectl/internal/worker"
	"github.com/cuongbtq/queuectl/shared/database"
	"github.com/cuongbtq/queuectl/shared/logger"
	"github.com/cuongbtq/queuectl/shared/rabbitmq"
)

// app holds the process-wide resources a command may open; each is created lazily
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logger.Logger
	db     *database.Client
	store  *storage.Storage
	rabbit *rabbitmq.Client
}

// load reads configuration and builds the logger
func (a *app) load() error {
	cfg, err := config.LoadOrDefault(config.ResolvePath(a.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = appLogger
	return nil
}

// openStore connects to the database and initializes the schema
func (a *app) openStore(ctx context.Context) (*storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}

	dbClient, err := initDatabase(&a.cfg.Database, a.logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := storage.NewStorage(dbClient, a.logger.WithComponent("storage"))
	if err := store.Init(ctx); err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}

	a.db = dbClient
	a.store = store
	return store, nil
}

// openRabbit connects to the event broker; callers check RabbitMQ.Enabled first
func (a *app) openRabbit() (*rabbitmq.Client, error) {
	if a.rabbit != nil {
		return a.rabbit, nil
	}

	client, err := initRabbitMQ(&a.cfg.RabbitMQ, a.logger.WithComponent("rabbitmq"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	a.rabbit = client
	return client, nil
}

// notifier publishes lifecycle events when the broker is enabled and reachable
func (a *app) notifier() worker.Notifier {
	if !a.cfg.RabbitMQ.Enabled {
		return worker.NoopNotifier{}
	}

	client, err := a.openRabbit()
	if err != nil {
		a.logger.Warn("Lifecycle events disabled, broker unavailable",
			slog.Any("error", err),
		)
		return worker.NoopNotifier{}
	}
	return worker.NewEventNotifier(client, a.logger.WithComponent("events"))
}

// newPool builds a worker pool over the opened store
func (a *app) newPool(store *storage.Storage, notifier worker.Notifier) *worker.Pool {
	return worker.NewPool(&worker.Config{
		Logger: a.logger.WithComponent("worker"),
		Store:  store,
		Executor: runner.New(runner.Config{
			Shell:   a.cfg.Worker.Shell,
			Timeout: a.cfg.Worker.JobTimeout,
		}),
		Notifier:       notifier,
		StopGrace:      a.cfg.Worker.StopGrace,
		ErrorIdle:      a.cfg.Worker.ErrorIdle,
		RecoverOnStart: a.cfg.Worker.RecoverOnStart,
	})
}

// newService opens the store and returns a queue service; pool may be nil
func (a *app) newService(ctx context.Context, pool *worker.Pool) (*queue.Service, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &queue.Config{
		Store:    store,
		Logger:   a.logger.WithComponent("queue"),
		Notifier: a.notifier(),
	}
	// A nil *worker.Pool must stay a nil interface
	if pool != nil {
		cfg.Pool = pool
	}
	return queue.NewService(cfg), nil
}

// close releases everything that was opened
func (a *app) close() {
	if a.rabbit != nil {
		a.rabbit.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initDatabase initializes the job store database client
func initDatabase(cfg *config.DatabaseConfig, logger *slog.Logger) (*database.Client, error) {
	return database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}
