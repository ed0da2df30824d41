package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 10ms
	WriteTimeout time.Duration // default 5s
}

// Producer is a thin wrapper around segmentio/kafka-go Writer.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c ProducerConfig) *Producer {
	topic := c.Topic
	if topic == "" {
		topic = RegistrationsTopic
	}

	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}

	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: bt,
		WriteTimeout: wt,
	}

	return &Producer{w: w}
}

// Publish writes one keyed message; keys pin a registration to a partition.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *Producer) Close() error { return p.w.Close() }
