package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hourlysheet/internal/api"
	"hourlysheet/internal/config"
	"hourlysheet/internal/container"
	"hourlysheet/internal/logging"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Init(appConfig.Logging.AppEnv, appConfig.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()
	logger := logging.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logging.GetLogger())
	if err != nil {
		logger.Fatalw("failed to create application container", "error", err)
	}
	defer appContainer.Shutdown(context.Background())

	hub := api.NewActivityHub(ctx, logging.Named("events"))
	appContainer.Service.WithPublisher(hub)

	server := api.NewServer(appContainer.Service, hub, api.Options{
		ImportFile: appConfig.Data.ImportFile,
		GinMode:    appConfig.Server.GinMode,
		Metrics:    appContainer.Metrics,
	}, logging.Named("api"))

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("starting hourly sheet server", "port", appConfig.Server.Port, "data_file", appConfig.Data.DataFile)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
}
