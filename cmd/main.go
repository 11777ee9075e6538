package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/adapter/memory"
	"github.com/YelzhanWeb/fieldops/internal/adapter/postgres"
	"github.com/YelzhanWeb/fieldops/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/fieldops/internal/adapter/redis"
	"github.com/YelzhanWeb/fieldops/internal/app/notification"
	"github.com/YelzhanWeb/fieldops/internal/app/tracking"
	"github.com/YelzhanWeb/fieldops/internal/app/workorder"
	"github.com/YelzhanWeb/fieldops/internal/config"
	"github.com/YelzhanWeb/fieldops/internal/domain"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"

	amqpAdapter "github.com/YelzhanWeb/fieldops/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/fieldops/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: api, notification-subscriber, migrate, token")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	storage := flag.String("storage", "postgres", "Storage backend for api mode: postgres, memory")
	seed := flag.Bool("seed", false, "Seed demo users and a contract (memory storage only)")
	userID := flag.String("user-id", "", "Token subject (for token mode)")
	role := flag.String("role", "", "Token role (for token mode)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime (for token mode)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	lgr, err := logger.New("fieldops-"+*mode, cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lgr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "api":
		err = runAPI(ctx, cfg, lgr, *storage, *seed)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr)
	case "migrate":
		err = runMigrate(ctx, cfg, lgr)
	case "token":
		err = runToken(cfg, *userID, *role, *ttl)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil {
		lgr.Error("fatal", "Service stopped with error", "runtime", nil, err)
		lgr.Sync()
		os.Exit(1)
	}
}

// backend groups the collaborators the services are built from.
type backend struct {
	orders     interfaces.WorkOrderRepository
	contracts  interfaces.ContractRepository
	users      interfaces.UserRepository
	counters   interfaces.CounterStore
	dispatcher interfaces.Dispatcher
	closers    []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newMemoryBackend() *backend {
	return &backend{
		orders:     memory.NewWorkOrderRepository(),
		contracts:  memory.NewContractRepository(),
		users:      memory.NewUserRepository(),
		counters:   memory.NewCounterStore(),
		dispatcher: memory.NewOutbox(),
	}
}

func newPostgresBackend(ctx context.Context, cfg *config.Config, lgr logger.Logger) (*backend, error) {
	b := &backend{}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, db.Close)
	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	if err := postgres.Migrate(ctx, db); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	b.orders = postgres.NewWorkOrderRepository(db)
	b.contracts = postgres.NewContractRepository(db)
	b.users = postgres.NewUserRepository(db)

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { mqConn.Close() })
	b.dispatcher = rabbitmq.NewDispatcher(mqConn)
	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	if cfg.Redis.Addr == "" {
		lgr.Warn("redis_disabled", "No redis.addr configured, unread counters are process-local", "startup", nil)
		b.counters = memory.NewCounterStore()
		return b, nil
	}
	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { rdb.Close() })
	b.counters = redis.NewCounterStore(rdb)
	lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{
		"addr": cfg.Redis.Addr,
	})

	return b, nil
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger, storage string, seed bool) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	var (
		b   *backend
		err error
	)
	switch storage {
	case "memory":
		b = newMemoryBackend()
	case "postgres":
		b, err = newPostgresBackend(ctx, cfg, lgr)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage: %s", storage)
	}
	defer b.Close()

	if seed {
		if storage != "memory" {
			return errors.New("--seed is only supported with --storage=memory")
		}
		if err := seedDemo(ctx, b, []byte(cfg.Auth.JWTSecret), lgr); err != nil {
			return err
		}
	}

	notificationService := notification.NewService(b.dispatcher, b.users, b.counters, lgr)
	workOrderService := workorder.NewService(b.orders, b.contracts, b.users, notificationService, lgr,
		workorder.WithNotifyTimeout(time.Duration(cfg.Server.NotificationTimeoutSec)*time.Second))
	trackingService := tracking.NewService(b.orders, lgr, nil)

	handler := httpAdapter.NewRouter(
		httpAdapter.NewWorkOrderHandler(workOrderService, lgr),
		httpAdapter.NewTrackingHandler(trackingService, lgr),
		httpAdapter.NewNotificationHandler(notificationService, lgr),
		[]byte(cfg.Auth.JWTSecret),
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Work order API started on port %d", cfg.Server.Port), "startup", map[string]interface{}{
		"port":    cfg.Server.Port,
		"storage": storage,
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	lgr.Info("shutdown_initiated", "Shutting down work order API", "shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
	}
	// let in-flight notifications finish before the broker connection closes
	workOrderService.Wait()
	return nil
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, lgr)
	handler := amqpAdapter.NewNotificationHandler(lgr, os.Stdout)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	err = consumer.ConsumeNotifications(ctx, handler.HandleNotification)
	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runMigrate(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	lgr.Info("migrated", "Database schema is up to date", "startup", map[string]interface{}{
		"db": cfg.Database.Database,
	})
	return nil
}

func runToken(cfg *config.Config, rawUserID, rawRole string, ttl time.Duration) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	id, err := uuid.Parse(rawUserID)
	if err != nil {
		return fmt.Errorf("invalid --user-id: %w", err)
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return err
	}

	token, err := httpAdapter.SignToken([]byte(cfg.Auth.JWTSecret), domain.Actor{UserID: id, Role: role}, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// seedDemo registers one user per operational role and a contract with
// an SLA row for every priority, then logs a token for each user.
func seedDemo(ctx context.Context, b *backend, secret []byte, lgr logger.Logger) error {
	now := time.Now().UTC()
	users := []*domain.User{
		{ID: uuid.New(), Name: "Admin Demo", Role: domain.RoleAdmin, Active: true, CreatedAt: now},
		{ID: uuid.New(), Name: "Manager Demo", Role: domain.RoleManager, Active: true, CreatedAt: now},
		{ID: uuid.New(), Name: "Technician Demo", Role: domain.RoleTechnician, Active: true, CreatedAt: now},
		{ID: uuid.New(), Name: "Client Demo", Role: domain.RoleClient, Active: true, CreatedAt: now},
		{ID: uuid.New(), Name: "Finance Demo", Role: domain.RoleFinance, Active: true, CreatedAt: now},
	}
	for _, u := range users {
		if err := b.users.Create(ctx, u); err != nil {
			return err
		}
		token, err := httpAdapter.SignToken(secret, domain.Actor{UserID: u.ID, Role: u.Role}, 24*time.Hour)
		if err != nil {
			return err
		}
		lgr.Info("demo_user", "Seeded demo user", "startup", map[string]interface{}{
			"user_id": u.ID,
			"role":    u.Role,
			"token":   token,
		})
	}

	contract := &domain.Contract{
		ID:         uuid.New(),
		ClientID:   users[3].ID,
		Name:       "Contrato de mantenimiento",
		HourlyRate: 45,
		Active:     true,
		CreatedAt:  now,
		Policies: []domain.SLAPolicy{
			{Priority: domain.PriorityNormal, FirstResponseMinutes: 240, OnSiteMinutes: 1440, ResolutionMinutes: 4320},
			{Priority: domain.PriorityUrgent, FirstResponseMinutes: 60, OnSiteMinutes: 240, ResolutionMinutes: 1440},
			{Priority: domain.PriorityEmergency, FirstResponseMinutes: 15, OnSiteMinutes: 60, ResolutionMinutes: 240, PenaltyPercent: 10},
		},
	}
	if err := b.contracts.Create(ctx, contract); err != nil {
		return err
	}
	lgr.Info("demo_contract", "Seeded demo contract", "startup", map[string]interface{}{
		"contract_id": contract.ID,
		"client_id":   contract.ClientID,
	})
	return nil
}
