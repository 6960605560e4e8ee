package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"payeveryone/internal/auth"
	"payeveryone/internal/blob"
	"payeveryone/internal/config"
	"payeveryone/internal/events"
	handler "payeveryone/internal/handler/http"
	"payeveryone/internal/logger"
	"payeveryone/internal/port"
	"payeveryone/internal/repository/memory"
	"payeveryone/internal/repository/migration"
	"payeveryone/internal/repository/postgresql"
	"payeveryone/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	logg, err := logger.New(cfg.Logger.LoggerLevel, cfg.Logger.Development)
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
	logg.Info("server stopped")
}

func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Source != "" {
		logg.Info("using config file", zap.String("path", cfg.Source))
	}

	repos, closeDB, err := openRepositories(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeDB()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		logg.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var (
		bus     port.EventBus
		revoker port.SessionRevoker
	)
	if rdb != nil {
		bus = events.NewRedisBus(rdb, cfg.Redis.Prefix, cfg.Events.Buffer, logg)
		revoker = auth.NewRedisRevoker(rdb, cfg.Redis.Prefix)
	} else {
		bus = events.NewHub(cfg.Events.Buffer, logg)
		revoker = auth.NewMemoryRevoker()
	}

	blobs, filesDir, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	ledger := service.DefaultLedgerConfig()
	ledger.MinDeposit = cfg.Ledger.MinDeposit
	ledger.MinExchange = cfg.Ledger.MinExchange
	ledger.ReferralBonus = cfg.Ledger.ReferralBonus

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	router := handler.NewRouter(handler.Services{
		Auth:        service.NewAuthService(repos, tokens, revoker, ledger, cfg.Auth.AdminEmails, bus, logg),
		Users:       service.NewUserService(repos, ledger, bus, logg),
		History:     service.NewHistoryService(repos),
		Deposits:    service.NewDepositService(repos, ledger, bus, logg),
		Withdrawals: service.NewWithdrawalService(repos, bus, logg),
		Exchanges:   service.NewExchangeService(repos, ledger, bus, logg),
		Market:      service.NewMarketService(repos, blobs, bus, logg),
		Events:      bus,
	}, handler.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins, FilesDir: filesDir}, logg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("HTTP server listening", zap.String("addr", srv.Addr),
			zap.String("db", cfg.DB.Driver), zap.String("blob", cfg.Blob.Driver), zap.Bool("redis", rdb != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, logg *zap.Logger) (port.Repositories, func(), error) {
	if cfg.DB.Driver == "memory" {
		repos, _ := memory.NewRepositories(cfg.Ledger.TxMaxAttempts)
		logg.Warn("using in-memory store; data is lost on restart")
		return repos, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DB.DatabaseURL)
	if err != nil {
		return port.Repositories{}, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConnection)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConnection)
	db.SetConnMaxLifetime(cfg.DB.ConnectionLifetime)

	closeDB := func() {
		if err := db.Close(); err != nil {
			logg.Error("db close failed", zap.Error(err))
			return
		}
		logg.Info("db closed")
	}

	if err := db.PingContext(ctx); err != nil {
		closeDB()
		return port.Repositories{}, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migration.RunMigrations(ctx, db, logg); err != nil {
		closeDB()
		return port.Repositories{}, nil, err
	}

	return postgresql.NewRepositories(db, cfg.Ledger.TxMaxAttempts), closeDB, nil
}

// openBlobStore also returns the directory to serve under /files, empty for S3.
func openBlobStore(ctx context.Context, cfg *config.Config) (port.BlobStore, string, error) {
	if cfg.Blob.Driver == "local" {
		if err := os.MkdirAll(cfg.Blob.Dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create upload dir: %w", err)
		}
		store := blob.NewLocalStore(cfg.Blob.Dir, cfg.Blob.BaseURL)
		return store, store.Dir(), nil
	}

	client, err := blob.NewS3Client(ctx, blob.S3Config{
		Bucket:    cfg.Blob.Bucket,
		Region:    cfg.Blob.Region,
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		PublicURL: cfg.Blob.PublicURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("s3 client: %w", err)
	}
	return blob.NewS3Store(client, cfg.Blob.Bucket, cfg.Blob.PublicURL), "", nil
}
