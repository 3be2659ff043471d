package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eaglebank/bank-account-service/internal/app"
	"github.com/eaglebank/bank-account-service/internal/command"
	"github.com/eaglebank/bank-account-service/internal/config"
	"github.com/eaglebank/bank-account-service/internal/events"
	"github.com/eaglebank/bank-account-service/internal/handler"
	"github.com/eaglebank/bank-account-service/internal/lock"
	"github.com/eaglebank/bank-account-service/internal/metrics"
	"github.com/eaglebank/bank-account-service/internal/middleware"
	"github.com/eaglebank/bank-account-service/internal/peer"
	"github.com/eaglebank/bank-account-service/internal/query"
	redisClient "github.com/eaglebank/bank-account-service/internal/redis"
	"github.com/eaglebank/bank-account-service/internal/repository"
	"github.com/eaglebank/bank-account-service/internal/worker"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

const serviceName = "bank-account-service"

// accountStore is everything the command and query sides need from a backend.
type accountStore interface {
	command.AccountStore
	repository.AccountReader
}

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis connection (read model cache, event stream, account locks)
	redis, err := redisClient.NewClient(redisClient.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer redis.Close()

	store, types, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.LockProvider == "redis" {
		locker = redis.Locker(cfg.LockTTL)
	}

	var (
		recorder       command.Recorder
		metricsHandler http.Handler
		opMetrics      *metrics.Metrics
	)
	if cfg.MetricsEnabled {
		provider, h, err := metrics.Setup(serviceName)
		if err != nil {
			return err
		}
		defer func() { _ = metrics.Shutdown(context.Background(), provider) }()
		if opMetrics, err = metrics.New(provider); err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		recorder, metricsHandler = opMetrics, h
	}

	// --- CQRS wiring ---
	readRepo := repository.NewAccountReadRepository(store, redis.Client, cfg.CacheTTL)
	customers := peer.NewCustomerClient(cfg.CustomerServiceURL, cfg.PeerTimeout)

	commandSvc := command.NewAccountCommandService(command.Dependencies{
		Store:     store,
		Types:     types,
		Customers: customers,
		Debts:     peer.NewDebtClient(cfg.DebtServiceURL, cfg.PeerTimeout),
		Credits:   peer.NewCreditClient(cfg.CreditServiceURL, cfg.PeerTimeout),
		Ledger:    peer.NewLedgerClient(cfg.TransactionServiceURL, cfg.PeerTimeout),
		Locker:    locker,
		Publisher: events.NewPublisher(redis.Client),
		Cache:     readRepo,
		Metrics:   recorder,
	})
	querySvc := query.NewAccountQueryService(readRepo, customers)

	router := newRouter(cfg, handler.NewAccountHandler(commandSvc, querySvc), redis, opMetrics, metricsHandler)

	updater := worker.NewPrimaryAccountUpdater(commandSvc)
	var consumer app.Server
	switch cfg.BusProvider {
	case "redis":
		consumer = events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    cfg.PrimaryAccountGroup,
			Consumer: consumerName(),
			Stream:   cfg.PrimaryAccountTopic,
			Field:    "accountId",
			Handler:  updater.HandleMessage,
		})
	default:
		consumer, err = events.NewKafkaConsumer(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.PrimaryAccountGroup,
			Topic:   cfg.PrimaryAccountTopic,
		}, updater.HandleMessage)
		if err != nil {
			return err
		}
	}

	slog.Info("bank account service starting",
		"port", cfg.Port, "store", cfg.StoreDriver, "bus", cfg.BusProvider, "lock", cfg.LockProvider)
	return app.New(15*time.Second,
		app.NewHTTPServer(":"+cfg.Port, router),
		consumer,
	).Run(ctx)
}

func newRouter(cfg *config.Config, accountHandler *handler.AccountHandler, redis *redisClient.Client, m *metrics.Metrics, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())
	if m != nil {
		router.Use(m.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		if err := redis.Check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/v1/bankAccounts")
	if cfg.JWTSecret != "" {
		v1.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	} else {
		slog.Warn("JWT_SECRET not set, /v1 endpoints are unauthenticated")
	}
	accountHandler.RegisterRoutes(v1)
	return router
}

// openStore connects the configured account backend and returns a func that
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (accountStore, command.AccountTypeStore, func(), error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		accounts := repository.NewMongoAccountRepository(db)
		types := repository.NewMongoAccountTypeRepository(db)
		if err := accounts.EnsureIndexes(ctx); err != nil {
			return nil, nil, nil, err
		}
		if err := types.Seed(ctx, repository.DefaultAccountTypes); err != nil {
			return nil, nil, nil, err
		}
		return accounts, types, func() { _ = client.Disconnect(context.Background()) }, nil

	case "memory":
		return repository.NewMemoryAccountRepository(), repository.NewMemoryAccountTypeRepository(), func() {}, nil

	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := repository.RunMigrations(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return repository.NewAccountRepository(db), repository.NewAccountTypeRepository(db), func() { _ = db.Close() }, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).With("service", serviceName)
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return serviceName
	}
	return serviceName + "-" + host
}
