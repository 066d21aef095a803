package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"taskhub.org/internal/auth"
	"taskhub.org/internal/config"
	"taskhub.org/internal/httpapi"
	"taskhub.org/internal/migrate"
	"taskhub.org/internal/obs"
	"taskhub.org/internal/store/sqlstore"
	"taskhub.org/internal/tenancy"
	"taskhub.org/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("TASKHUB_CONFIG"), "path to YAML config file")
	autoMigrate := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	if err := run(*configPath, *autoMigrate); err != nil {
		obs.Logger().Error("taskhub-api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, autoMigrate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := obs.NewLogger(cfg.Logging, version)
	obs.SetLogger(logger)
	obs.Init()
	obs.SetBuildInfo(version, commit)

	store, err := sqlstore.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	if autoMigrate {
		files, err := migrations.For(cfg.Database.Driver)
		if err != nil {
			return err
		}
		if _, err := migrate.NewManager(store.DB(), files, migrate.WithLogger(logger)).Up(ctx); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokenService(store, cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL.Std()),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL.Std()),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	accounts, err := auth.NewService(store, tokens, auth.WithServiceLogger(logger))
	if err != nil {
		return err
	}
	gate := auth.NewGate(tokens, auth.NewResolver(store, logger), logger)
	ten := tenancy.NewService(store, tenancy.WithLogger(logger))

	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	api := httpapi.New(accounts, gate, ten, store, httpapi.Options{
		Version:        version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimit:      httpapi.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		Logger:         logger,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
	}

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer()
		health := httpapi.NewGRPCHealth(store, 10*time.Second, logger)
		health.Register(grpcServer)
		go health.Run(ctx)
		go func() {
			logger.Info("grpc listening", slog.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	go func() {
		logger.Info("http listening", slog.String("addr", srv.Addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	serveErr := awaitStop(ctx, errCh, logger)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, err)
	}
	logger.Info("stopped")
	return serveErr
}

// awaitStop blocks until ctx is cancelled or a listener fails, and returns the
// listener error so the process exits non-zero.
func awaitStop(ctx context.Context, errCh <-chan error, logger *slog.Logger) error {
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		logger.Error("server failed", slog.String("error", err.Error()))
		return err
	}
}
