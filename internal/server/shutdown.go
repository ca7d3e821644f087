package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const minShutdownTimeout = 10 * time.Second

// ShutdownTimeout leaves in-flight scans time to finish their oracle call.
func ShutdownTimeout(oracleTimeout time.Duration) time.Duration {
	return max(oracleTimeout+5*time.Second, minShutdownTimeout)
}

// GracefulShutdown waits for ctx to end, then drains srv within timeout and signals done.
func GracefulShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger, done chan<- bool) {
	<-ctx.Done()
	logger.Info("Shutting down gracefully", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}
