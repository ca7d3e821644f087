package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/pkg/config"
	"github.com/FACorreiaa/loci-visits/internal/server"
	"github.com/FACorreiaa/loci-visits/pkg/logger"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.JSON,
		zap.String("service", cfg.Server.ServiceName),
		zap.String("version", version),
	); err != nil {
		return err
	}
	l := logger.Log
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)

	otelShutdown, err := server.InitObservability(cfg.Server, version, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			l.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(context.Background(), cfg, l)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Not exposed publicly.
	server.StartPprofServer(cfg.Server.PprofAddr, l)

	httpServer := srv.HTTPServer()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// A second signal kills the process instead of waiting for the drain.
	context.AfterFunc(sigCtx, stop)

	done := make(chan bool, 1)
	go server.GracefulShutdown(sigCtx, httpServer, server.ShutdownTimeout(cfg.Verification.OracleTimeout), l, done)

	l.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("Server error", zap.Error(err))
		return err
	}

	<-done
	l.Info("Graceful shutdown complete")

	return nil
}
