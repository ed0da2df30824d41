package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/qmail/internal/config"
	"github.com/jmehdipour/qmail/internal/db"
	"github.com/jmehdipour/qmail/internal/kafka"
	"github.com/jmehdipour/qmail/internal/logger"
	"github.com/jmehdipour/qmail/internal/metrics"
	"github.com/jmehdipour/qmail/internal/repository"
	"github.com/jmehdipour/qmail/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var metricsAddr string

var archiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Copy registration events from Kafka into ClickHouse",
	RunE:  runArchiver,
}

func init() {
	archiverCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "listen address for /metrics (empty disables)")
}

func runArchiver(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) ClickHouse
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	// 3) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "qmail-archiver"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewArchiver(consumer, repository.NewCHRegistrationsRepository(chDB), logger.Log)

	// tune knobs
	if cfg.Archiver.BatchSize > 0 {
		w.BatchSize = cfg.Archiver.BatchSize
	}
	if cfg.Archiver.BatchWait > 0 {
		w.BatchWait = cfg.Archiver.BatchWait
	}

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Warn("archiver: metrics server exited", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	logger.Log.Info("archiver started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", groupID),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}
