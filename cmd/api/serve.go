package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clientportal/internal/config"
	"clientportal/internal/database"
	"clientportal/internal/logger"
	"clientportal/internal/realtime"
	"clientportal/internal/server"
	"clientportal/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		return serve(cfg, logger.Get())
	},
}

func serve(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DBString); err != nil {
		return err
	}

	db, err := database.New(cfg.DBString)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := storage.NewS3Service(ctx, storage.Config{
		Bucket:      cfg.S3Bucket,
		Region:      cfg.AWSRegion,
		EndpointURL: cfg.AWSEndpointURL,
		PublicURL:   cfg.StoragePublicURL,
	})
	if err != nil {
		return err
	}

	broker := realtime.NewBroker(realtime.DefaultBuffer, log)
	if cfg.RedisAddr != "" {
		client, err := realtime.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("redis close error", "error", err)
			}
		}()
		relay := realtime.NewRedisRelay(client, broker)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("realtime relay stopped", "error", err)
			}
		}()
	}

	srv, err := server.New(server.Deps{
		Config: cfg,
		DB:     db,
		Files:  files,
		Broker: broker,
		Log:    log,
	})
	if err != nil {
		return err
	}
	if err := srv.GetAuth().BootstrapAdmins(ctx, cfg.AdminEmails); err != nil {
		log.Warn("admin bootstrap failed", "error", err)
	}

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Info("portal listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
