// Package audit records one line per issued mailbox token.
//
// Sinks are best effort: a failed write is logged and counted, never
// turned into a failed registration.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/qmail/internal/metrics"
	"github.com/jmehdipour/qmail/internal/model"
	"go.uber.org/zap"
)

type Sink interface {
	Name() string
	Append(ctx context.Context, ev model.AuditEvent) error
	Close() error
}

// Multi writes every event to all sinks, even after one of them fails.
type Multi struct {
	sinks []Sink
	log   *zap.Logger
}

func NewMulti(log *zap.Logger, sinks ...Sink) *Multi {
	if log == nil {
		log = zap.NewNop()
	}
	return &Multi{sinks: sinks, log: log}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Append(ctx context.Context, ev model.AuditEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, ev); err != nil {
			metrics.AuditFailuresTotal.WithLabelValues(s.Name()).Inc()
			m.log.Error("audit: append failed",
				zap.String("sink", s.Name()),
				zap.String("registration_id", ev.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
