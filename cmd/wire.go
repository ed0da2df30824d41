package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/qmail/internal/audit"
	"github.com/jmehdipour/qmail/internal/config"
	"github.com/jmehdipour/qmail/internal/db"
	"github.com/jmehdipour/qmail/internal/kafka"
	"github.com/jmehdipour/qmail/internal/locker"
	"github.com/jmehdipour/qmail/internal/logger"
	"github.com/jmehdipour/qmail/internal/repository"
	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// closers collects resources to release on shutdown, last opened first.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

func newAllocator(cfg config.Config, rdb *redis.Client, cl *closers) (serial.Allocator, error) {
	switch strings.ToLower(cfg.Serial.Backend) {
	case "", "redis":
		return serial.NewRedisAllocator(rdb, cfg.Serial.RedisKey), nil
	case "mysql":
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		cl.add(sqlDB.Close)
		return serial.NewMySQLAllocator(repository.NewSerialsRepository(sqlDB)), nil
	case "static":
		logger.Log.Warn("serial: static backend, every token carries the same serial",
			zap.Uint64("serial", cfg.Serial.Static))
		return serial.StaticAllocator(cfg.Serial.Static), nil
	default:
		return nil, fmt.Errorf("unknown serial backend %q", cfg.Serial.Backend)
	}
}

func newPoller(cfg config.LockerConfig) *locker.Poller {
	var daemons []locker.Daemon
	for _, dc := range cfg.Daemons {
		if !dc.Enabled || strings.TrimSpace(dc.BaseURL) == "" {
			continue
		}
		daemons = append(daemons,
			locker.NewHTTPDaemon(
				dc.Name,
				strings.TrimRight(dc.BaseURL, "/"),
				cfg.CreateTimeoutMs,
				cfg.PollTimeoutMs,
				dc.Breaker.FailThreshold,
				dc.Breaker.OpenForMs,
			),
		)
	}
	if len(daemons) == 0 {
		logger.Log.Warn("locker: no daemons enabled, every token gets the fallback key")
	}

	return locker.NewPoller(locker.NewPool(daemons), locker.PollerConfig{
		MaxAttempts:  cfg.MaxPollAttempts,
		PollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		FallbackKey:  cfg.FallbackKey,
	}, logger.Log)
}

// newAuditSink returns nil when no sink is configured.
func newAuditSink(cfg config.Config, cl *closers) (audit.Sink, error) {
	var sinks []audit.Sink

	if cfg.Audit.FilePath != "" {
		fs, err := audit.NewFileSink(cfg.Audit.FilePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}

	if cfg.Audit.Kafka {
		p := kafka.NewProducerFromConfig(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		sinks = append(sinks, audit.NewKafkaSink(p))
	}

	if len(sinks) == 0 {
		logger.Log.Warn("audit: no sinks configured")
		return nil, nil
	}

	m := audit.NewMulti(logger.Log, sinks...)
	cl.add(m.Close)
	return m, nil
}
