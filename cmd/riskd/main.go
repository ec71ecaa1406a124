package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"riskgate/config"
	"riskgate/observability/logging"
	telemetry "riskgate/observability/otel"
	daemonconfig "riskgate/services/riskd/config"
	"riskgate/services/riskd/middleware"
	"riskgate/services/riskd/server"
	"riskgate/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "riskd.yaml", "path to riskd config")
	flag.Parse()

	cfg, err := daemonconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("RISK_ENV"))
	logger := logging.Setup("riskd", env, logging.Options{Level: cfg.LogLevel})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("riskd", env))
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	genesis, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		log.Fatalf("load genesis: %v", err)
	}

	db, err := openDatabase(cfg.Storage)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	node, err := server.Bootstrap(db, genesis, server.NodeOptions{
		OracleMaxAge:  cfg.Oracle.MaxAge,
		PausedModules: cfg.PausedModules,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	handler := server.New(node, server.Config{
		Auth: middleware.AuthConfig{
			HMACSecret: cfg.Auth.Secret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew,
		},
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Fatalf("listen on %s: %v", cfg.ListenAddress, err)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("riskd listening", slog.String("addr", listener.Addr().String()))
		serverErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forcing server stop", slog.String("error", err.Error()))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve http: %v", err)
		}
	}
}

func openDatabase(cfg daemonconfig.StorageConfig) (storage.Database, error) {
	if cfg.InMemory() {
		return storage.NewMemDB(), nil
	}
	db, err := storage.NewLevelDB(cfg.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
