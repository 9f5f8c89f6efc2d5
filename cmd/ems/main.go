package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/ems/internal/api"
	"github.com/dukerupert/ems/internal/config"
	"github.com/dukerupert/ems/internal/controller"
	"github.com/dukerupert/ems/internal/logging"
	"github.com/dukerupert/ems/internal/server"
	"github.com/dukerupert/ems/internal/ui"
	ws "github.com/dukerupert/ems/internal/websocket"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	client := api.NewClient(cfg.APIURL, logger.With("component", "api"))
	bus := ui.NewBus(logger.With("component", "bus"))
	ctrl := controller.New(client, controller.Options{
		Debounce: cfg.Debounce,
		Modals:   bus,
		Logger:   logger.With("component", "controller"),
	})

	hub := ws.NewHub(logger.With("component", "websocket"))
	ctrl.OnChange(hub.Publish)
	ctrl.Start()
	defer ctrl.Close()

	srv := server.NewDesk(ctrl, bus, hub, cfg.CORSOrigin, logger)

	port := strconv.Itoa(cfg.Port)
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("events desk running", "addr", "http://localhost:"+port, "api", client.BaseURL())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
