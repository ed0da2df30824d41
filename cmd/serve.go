package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/qmail/internal/db"
	httpSrv "github.com/jmehdipour/qmail/internal/http"
	"github.com/jmehdipour/qmail/internal/http/middleware"
	"github.com/jmehdipour/qmail/internal/logger"
	"github.com/jmehdipour/qmail/internal/repository"
	"github.com/jmehdipour/qmail/internal/service/provision"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var cl closers
		defer cl.closeAll()

		redisClient, err := db.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		cl.add(redisClient.Close)

		alloc, err := newAllocator(cfg, redisClient, &cl)
		if err != nil {
			return err
		}

		sink, err := newAuditSink(cfg, &cl)
		if err != nil {
			return fmt.Errorf("audit sink: %w", err)
		}

		svc := provision.New(newPoller(cfg.Locker), alloc, sink, provision.Options{
			DefaultDescription: cfg.Mailbox.DefaultDescription,
			DefaultInboxFee:    cfg.Mailbox.DefaultInboxFee,
			Logger:             logger.Log,
		})

		deps := httpSrv.Deps{
			Provisioner: svc,
			Limiter:     middleware.RedisCounter{Redis: redisClient},
			Log:         logger.Log,
		}

		// reports are optional; provisioning must not depend on the archive
		if chDB, err := db.NewClickHouseConnection(cfg.ClickHouse); err != nil {
			logger.Log.Warn("clickhouse unavailable, reports disabled", zap.Error(err))
		} else {
			cl.add(chDB.Close)
			deps.Registrations = repository.NewCHRegistrationsRepository(chDB)
		}

		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		// in-flight mints can take the full poll budget
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
