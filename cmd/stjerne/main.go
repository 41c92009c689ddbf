package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kallevik/stjerne/internal/backup"
	"github.com/kallevik/stjerne/internal/config"
	"github.com/kallevik/stjerne/internal/database"
	"github.com/kallevik/stjerne/internal/logging"
	"github.com/kallevik/stjerne/internal/server"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFmt)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  cfg.BackupEndpoint,
				Bucket:    cfg.BackupBucket,
				Region:    cfg.BackupRegion,
				AccessKey: cfg.BackupAccessKey,
				SecretKey: cfg.BackupSecretKey,
			},
			DBPath:     cfg.DBPath,
			Passphrase: cfg.BackupPassphrase,
		},
		SweepInterval: cfg.SweepInterval,
		ReminderAge:   cfg.ApprovalReminderAge,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := srv.Scheduler()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
