// Package bootstrap holds the startup/shutdown scaffolding shared by the
// four service binaries.
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nodesandbox/event-bus-sample/internal/logging"
)

// Serve runs the HTTP surface until SIGINT/SIGTERM, then shuts the server down
// gracefully and invokes cleanup (bus connections, redis clients).
func Serve(service, addr string, router *gin.Engine, cleanup func()) error {
	l := logging.New(service)

	server := &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if cleanup != nil {
			cleanup()
		}
		return err
	case sig := <-quit:
		l.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		l.Error("server shutdown", "err", err)
	}
	if cleanup != nil {
		cleanup()
	}
	l.Info("stopped")
	return nil
}
