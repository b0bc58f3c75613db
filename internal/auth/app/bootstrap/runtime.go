package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/leocisternasa/mediprotek-test/internal/auth/adapters/cache"
	eventadapter "github.com/leocisternasa/mediprotek-test/internal/auth/adapters/events"
	grpcadapter "github.com/leocisternasa/mediprotek-test/internal/auth/adapters/grpc"
	httpadapter "github.com/leocisternasa/mediprotek-test/internal/auth/adapters/http"
	"github.com/leocisternasa/mediprotek-test/internal/auth/adapters/postgres"
	"github.com/leocisternasa/mediprotek-test/internal/auth/adapters/security"
	"github.com/leocisternasa/mediprotek-test/internal/auth/application"
	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

// permissionTable resolves the role grants once at startup; configured roles
// replace their built-in grant sets.
func permissionTable(overrides map[string][]string) domain.PermissionTable {
	if len(overrides) == 0 {
		return domain.DefaultPermissions()
	}
	converted := make(map[domain.Role][]domain.Permission, len(overrides))
	for role, perms := range overrides {
		grants := make([]domain.Permission, 0, len(perms))
		for _, p := range perms {
			grants = append(grants, domain.Permission(p))
		}
		converted[domain.Role(role)] = grants
	}
	return domain.PermissionsWithOverrides(converted)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	signer, err := security.NewJWTSigner(cfg.JWTSecret)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	directory, err := grpcadapter.NewDirectoryClient(cfg.DirectoryGRPCURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	repos := postgres.NewRepositories(db)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			DefaultRole:          domain.Role(cfg.DefaultRole),
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			FailedLoginThreshold: cfg.FailedLoginThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			DirectoryTimeout:     cfg.DirectoryTimeout,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			EventDedupTTL:        cfg.EventDedupTTL,
		},
		Permissions: permissionTable(cfg.RolePermissions),
		Credentials: repos.Credentials,
		EventDedup:  repos.EventDedup,
		Idempotency: repos.Idempotency,
		Directory:   directory,
		Lockouts:    cacheadapter.NewRedisLockoutStore(redisClient),
		Denylist:    cacheadapter.NewRedisTokenDenylist(redisClient),
		Hasher:      security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner: signer,
	})

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	consumerSrc := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConsumer, consErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.KafkaUserTopic})
		if consErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", consErr)
		} else {
			consumerSrc = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	consumer := eventadapter.NewConsumerWorker(logger, consumerSrc, service, cfg.ConsumerInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		consumer:   consumer,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = directory.Close()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)

	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
