package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/api"
	"github.com/yourusername/ytdesk/api/handlers"
	"github.com/yourusername/ytdesk/internal/app"
	"github.com/yourusername/ytdesk/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.ytdesk, /etc/ytdesk)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	rt, err := app.NewRuntime(config, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer rt.Close()

	log.Info("Starting ytdesk server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("yt_dlp", rt.Binary))

	router := api.SetupRouter(rt.Manager, config.Server.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop the running download so its history record is final
	if err := rt.Manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Active download did not stop in time", zap.Error(err))
	}

	log.Info("Server exited")
}
