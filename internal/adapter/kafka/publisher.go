package kafka

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/covid-dashboard-etl/internal/config"
	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

// Message header keys.
const (
	HeaderUpdatedOn = "updated_on"
	HeaderRunID     = "run_id"
)

// Publisher produces the finished report to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaReportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchBytes:             16 << 20,
		Compression:            kafkago.Gzip,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish sends one message carrying the serialized report. The constant key
// keeps every report on one partition, so consumers see them in order.
func (p *Publisher) Publish(ctx context.Context, a domain.Artifacts) error {
	if err := p.writer.WriteMessages(ctx, toMessage(a)); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	p.logger.Info("report published", "topic", p.writer.Topic, "run_id", a.RunID, "bytes", len(a.Report))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// toMessage wraps the report artifacts in a Kafka message.
func toMessage(a domain.Artifacts) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(domain.ReportFileName),
		Value: a.Report,
		Headers: []kafkago.Header{
			{Key: HeaderUpdatedOn, Value: []byte(a.UpdatedOn)},
			{Key: HeaderRunID, Value: []byte(a.RunID)},
		},
	}
}
