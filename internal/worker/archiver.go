package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/qmail/internal/kafka"
	"github.com/jmehdipour/qmail/internal/metrics"
	"github.com/jmehdipour/qmail/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBatchSize  = 200
	defaultBatchWait  = 500 * time.Millisecond
	defaultRetryWait  = time.Second
	finalFlushTimeout = 5 * time.Second
)

var errPoison = errors.New("undecodable registration event")

// Source is the Kafka side of the archiver; *kafka.Consumer satisfies it.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Store is the ClickHouse side of the archiver.
type Store interface {
	InsertBatch(ctx context.Context, rows []model.RegistrationRow) error
}

// Archiver copies registration events from Kafka into ClickHouse.
// Offsets are committed only after the batch holding them is stored, so
// delivery is at-least-once; the table dedups on id.
type Archiver struct {
	Source Source
	Store  Store
	Log    *zap.Logger

	BatchSize int           // max messages per flush
	BatchWait time.Duration // max time a message waits before flush
	RetryWait time.Duration // pause between failed inserts
}

func NewArchiver(src Source, store Store, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		Source:    src,
		Store:     store,
		Log:       log,
		BatchSize: defaultBatchSize,
		BatchWait: defaultBatchWait,
		RetryWait: defaultRetryWait,
	}
}

// Run blocks until ctx is cancelled. Whatever is buffered at that point gets
// one last flush attempt; anything not stored is redelivered on restart.
func (a *Archiver) Run(ctx context.Context) error {
	if a.BatchSize <= 0 {
		a.BatchSize = defaultBatchSize
	}
	if a.BatchWait <= 0 {
		a.BatchWait = defaultBatchWait
	}
	if a.RetryWait <= 0 {
		a.RetryWait = defaultRetryWait
	}

	msgCh := make(chan kafka.Message, a.BatchSize)
	go a.fetch(ctx, msgCh)

	tick := time.NewTicker(a.BatchWait)
	defer tick.Stop()

	b := &batch{}

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
			if err := a.flushOnce(fctx, b); err != nil {
				a.Log.Warn("archiver: final flush failed; batch will be redelivered",
					zap.Int("messages", len(b.msgs)), zap.Error(err))
			}
			cancel()
			return nil

		case m := <-msgCh:
			b.add(m, a.decode(m))
			if len(b.msgs) >= a.BatchSize {
				_ = a.flush(ctx, b)
			}

		case <-tick.C:
			_ = a.flush(ctx, b)
		}
	}
}

func (a *Archiver) fetch(ctx context.Context, out chan<- kafka.Message) {
	for {
		m, err := a.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.Log.Warn("archiver: kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

// flush retries the insert until it succeeds or ctx ends.
func (a *Archiver) flush(ctx context.Context, b *batch) error {
	for {
		err := a.flushOnce(ctx, b)
		if err == nil {
			return nil
		}

		a.Log.Warn("archiver: flush failed; retrying",
			zap.Int("rows", len(b.rows)), zap.Duration("retry_in", a.RetryWait), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.RetryWait):
		}
	}
}

func (a *Archiver) flushOnce(ctx context.Context, b *batch) error {
	if len(b.msgs) == 0 {
		return nil
	}

	if len(b.rows) > 0 {
		if err := a.Store.InsertBatch(ctx, b.rows); err != nil {
			metrics.ArchivedTotal.WithLabelValues("failed").Add(float64(len(b.rows)))
			return fmt.Errorf("insert batch: %w", err)
		}
		metrics.ArchivedTotal.WithLabelValues("stored").Add(float64(len(b.rows)))
	}

	// A failed commit only means redelivery of rows already stored.
	if err := a.Source.Commit(ctx, b.msgs...); err != nil {
		a.Log.Warn("archiver: kafka commit failed", zap.Error(err))
	}

	a.Log.Debug("archiver: flushed", zap.Int("rows", len(b.rows)), zap.Int("messages", len(b.msgs)))
	b.reset()
	return nil
}

// decode returns nil for poison messages, which are committed with the
// batch but never stored.
func (a *Archiver) decode(m kafka.Message) *model.RegistrationRow {
	row, err := decodeEvent(m.Value)
	if err != nil {
		metrics.ArchivedTotal.WithLabelValues("skipped").Inc()
		a.Log.Warn("archiver: skipping message",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		return nil
	}
	return &row
}

func decodeEvent(value []byte) (model.RegistrationRow, error) {
	var ev model.AuditEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return model.RegistrationRow{}, fmt.Errorf("%w: %v", errPoison, err)
	}

	switch {
	case ev.ID == "":
		return model.RegistrationRow{}, fmt.Errorf("%w: missing id", errPoison)
	case !ev.Class.Valid():
		return model.RegistrationRow{}, fmt.Errorf("%w: class %q", errPoison, ev.Class)
	}

	if _, err := decimal.NewFromString(ev.AmountPaid); err != nil {
		return model.RegistrationRow{}, fmt.Errorf("%w: amount_paid %q", errPoison, ev.AmountPaid)
	}

	return model.RegistrationRow{
		ID:           ev.ID,
		FirstName:    ev.FirstName,
		LastName:     ev.LastName,
		SerialNumber: ev.SerialNumber,
		Class:        ev.Class.String(),
		AmountPaid:   ev.AmountPaid,
		LockerKey:    ev.LockerKey,
		Fallback:     ev.Fallback,
		CreatedAt:    ev.Timestamp.UTC(),
	}, nil
}

type batch struct {
	msgs []kafka.Message
	rows []model.RegistrationRow
}

func (b *batch) add(m kafka.Message, row *model.RegistrationRow) {
	b.msgs = append(b.msgs, m)
	if row != nil {
		b.rows = append(b.rows, *row)
	}
}

func (b *batch) reset() {
	b.msgs = b.msgs[:0]
	b.rows = b.rows[:0]
}
