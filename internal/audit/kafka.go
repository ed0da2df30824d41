package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/qmail/internal/model"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// KafkaSink publishes the full event for the archiver worker.
type KafkaSink struct {
	pub Publisher
}

func NewKafkaSink(pub Publisher) *KafkaSink {
	return &KafkaSink{pub: pub}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Append(ctx context.Context, ev model.AuditEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.pub.Publish(ctx, []byte(ev.ID), payload)
}

func (s *KafkaSink) Close() error { return s.pub.Close() }
