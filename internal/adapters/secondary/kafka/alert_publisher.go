package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertPublisher sends newly raised alerts to a Kafka topic, one message per
// alert keyed by alert ID.
type AlertPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

var _ ports.AlertPublisher = (*AlertPublisher)(nil)

// NewAlertPublisher creates a publisher writing to topic on the given brokers.
func NewAlertPublisher(brokers []string, topic string, writeTimeout time.Duration, logger *slog.Logger) ports.AlertPublisher {
	return newAlertPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newAlertPublisher(writer messageWriter, logger *slog.Logger) *AlertPublisher {
	return &AlertPublisher{
		writer: writer,
		logger: logger.With("component", "alert_publisher"),
	}
}

// PublishAlerts writes every alert in one batch.
func (p *AlertPublisher) PublishAlerts(ctx context.Context, alerts []domain.Alert, asOf time.Time) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(alerts))
	for _, alert := range alerts {
		data, err := json.Marshal(domain.NewAlertSnapshot(alert, asOf))
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(alert.ID),
			Value: data,
			Time:  asOf,
			Headers: []kafka.Header{
				{Key: "severity", Value: []byte(alert.Severity)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}

	p.logger.DebugContext(ctx, "alerts published", "count", len(msgs))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}
