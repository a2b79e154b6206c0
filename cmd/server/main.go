package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"plate-reader/internal/api"
	"plate-reader/internal/config"
	"plate-reader/internal/logging"
	"plate-reader/internal/service"
	"plate-reader/internal/storage"
	"plate-reader/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		logrus.Fatalf("setup logging: %v", err)
	}

	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		logrus.Fatalf("init store: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	analysisSvc := service.NewAnalysisService(hub)
	calibrationSvc := service.NewCalibrationService(store)

	router := api.NewRouter(cfg, hub, analysisSvc, calibrationSvc)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSec) * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logrus.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown error: %v", err)
	}
}
