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

	"github.com/dukerupert/ems/internal/backup"
	"github.com/dukerupert/ems/internal/config"
	"github.com/dukerupert/ems/internal/database"
	"github.com/dukerupert/ems/internal/logging"
	"github.com/dukerupert/ems/internal/server"
	"github.com/dukerupert/ems/internal/store"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.EventsDBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	srv := server.NewEventsAPI(store.NewEventStore(db), backupMgr, logger)

	port := strconv.Itoa(cfg.EventsPort)
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("events API running", "addr", "http://localhost:"+port, "db", cfg.EventsDBPath, "backups", backupMgr.Status().State)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
