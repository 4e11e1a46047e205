package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// ProducerConfig holds the broker connection settings
type ProducerConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
}

// Producer publishes institute request events to Kafka
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg ProducerConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // same request id -> same partition, keeps per-request ordering
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}

	// SASL only when credentials are given; local brokers usually run without it
	if cfg.Username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: cfg.Username,
				Password: cfg.Password,
			},
			TLS: &tls.Config{},
		}
	}

	return &Producer{writer: writer}
}

// Publish writes one event keyed by its request id
func (p *Producer) Publish(ctx context.Context, event InstituteRequestEvent) error {
	if p == nil || p.writer == nil {
		log.Warn("Kafka producer not ready - skip publish")
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.OccurredAt,
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
