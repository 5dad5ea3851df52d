package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"plantmart/internal/app"
	"plantmart/internal/config"
	"plantmart/internal/logging"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel)

	// --- Wire the application ---
	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}
	if err := application.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to start application")
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.AppPort).Info("starting server")
		if err := application.Fiber.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Info("shutting down server")

	if err := application.Fiber.Shutdown(); err != nil {
		log.WithError(err).Error("error during Fiber shutdown")
	}
	if err := application.Close(); err != nil {
		log.WithError(err).Error("error releasing resources")
	}
	log.Info("server gracefully stopped")
}
