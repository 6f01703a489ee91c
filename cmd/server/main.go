package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"mis-dashboard/backend/internal/config"
	"mis-dashboard/backend/internal/dashboard"
	"mis-dashboard/backend/internal/db"
	"mis-dashboard/backend/internal/db/migrate"
	"mis-dashboard/backend/internal/health"
	"mis-dashboard/backend/internal/logger"
	"mis-dashboard/backend/internal/policy/engine"
	policyrepo "mis-dashboard/backend/internal/policy/repository"
	"mis-dashboard/backend/internal/server"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/session/repository"
	"mis-dashboard/backend/internal/telemetry"
	telemetryotel "mis-dashboard/backend/internal/telemetry/otel"
	"mis-dashboard/backend/internal/upstream"
)

const (
	serviceName     = "mis-dashboard-bff"
	sweepInterval   = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		zl.Fatal("otel", zap.Error(err))
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	checker := health.NewChecker(zl)
	store, closeStore, err := openTokenStore(ctx, cfg, checker, zl)
	if err != nil {
		zl.Fatal("token store", zap.String("kind", cfg.TokenStore), zap.Error(err))
	}
	defer closeStore()

	evaluator, err := newEvaluator(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("route policy", zap.Error(err))
	}
	if opa, ok := evaluator.(*engine.OPAEvaluator); ok {
		checker.Add("route_policy", health.PolicyCheck(opa))
	}

	opts := session.Options{Secure: cfg.Secure(), Emitter: emitter, Logger: zl}
	if cfg.SerializeSessionWrites {
		opts.Locks = session.NewLocks()
	}

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeoutDuration())
	checker.Add("upstream", func(ctx context.Context) error {
		_, err := client.ListCounties(ctx)
		return err
	})

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHTTPHandler(server.Deps{
			Upstream:        client,
			UpstreamBaseURL: cfg.UpstreamBaseURL,
			UpstreamTimeout: cfg.UpstreamTimeoutDuration(),
			Binder:          session.NewBinder(store, opts),
			Evaluator:       evaluator,
			Loader:          dashboard.NewLoader(0),
			Health:          checker,
			Logger:          zl,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go checker.Run(ctx, health.DefaultInterval)

	var grpcSrv *grpc.Server
	if cfg.HealthGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthGRPCAddr)
		if err != nil {
			zl.Fatal("listen", zap.String("addr", cfg.HealthGRPCAddr), zap.Error(err))
		}
		grpcSrv = server.NewGRPCServer(checker, zl)
		go func() {
			zl.Info("gRPC health server listening", zap.String("addr", cfg.HealthGRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				zl.Error("grpc serve", zap.Error(err))
			}
		}()
	}

	go func() {
		zl.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr), zap.String("upstream", cfg.UpstreamBaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	// Let in-flight async session events finish before the log exporter goes away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		zl.Warn("otel shutdown", zap.Error(err))
	}
	zl.Info("stopped")
}

// openTokenStore builds the durable token store selected by TOKEN_STORE and registers its health check.
func openTokenStore(ctx context.Context, cfg *config.Config, checker *health.Checker, zl *zap.Logger) (repository.Repository, func(), error) {
	ttl := cfg.TokenStoreTTLDuration()
	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		rdb := repository.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := repository.NewRedisRepository(rdb, ttl)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		checker.Add("token_store", store.Ping)
		return store, func() { _ = rdb.Close() }, nil

	case config.TokenStorePostgres:
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresRepository(sqlDB, ttl)
		checker.Add("token_store", health.PingCheck(sqlDB))
		go sweepExpired(ctx, store, zl)
		return store, func() { _ = sqlDB.Close() }, nil

	case config.TokenStoreSQLite:
		store, err := repository.OpenSQLite(cfg.SQLitePath, ttl)
		if err != nil {
			return nil, nil, err
		}
		checker.Add("token_store", store.Ping)
		return store, func() { _ = store.Close() }, nil

	default:
		zl.Warn("using in-memory token store; sessions are lost on restart")
		return repository.NewMemoryRepository(ttl), func() {}, nil
	}
}

func sweepExpired(ctx context.Context, store *repository.PostgresRepository, zl *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				zl.Warn("token store: sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zl.Info("token store: expired tokens removed", zap.Int64("count", n))
			}
		}
	}
}

func newEvaluator(ctx context.Context, cfg *config.Config, zl *zap.Logger) (engine.Evaluator, error) {
	if cfg.RoutePolicy != config.RoutePolicyOPA {
		return engine.NewBuiltinEvaluator(engine.DefaultRules), nil
	}
	var repo policyrepo.Repository
	if cfg.RoutePolicyFile != "" {
		repo = policyrepo.NewFileRepository(cfg.RoutePolicyFile)
	}
	return engine.NewOPAEvaluator(ctx, repo, engine.DefaultRules, zl)
}
