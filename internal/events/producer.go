package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"go.uber.org/zap"
)

// AlertProducer publishes fraud alerts to the alert topic for downstream
// case-management systems.
type AlertProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewAlertProducer(cfg config.KafkaConfig, logger *zap.Logger) (*AlertProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = cfg.EnableIdempotent
	if cfg.EnableIdempotent {
		config.Net.MaxOpenRequests = 1
	}
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &AlertProducer{
		producer: producer,
		topic:    cfg.AlertTopic,
		logger:   logger,
	}, nil
}

// PublishAlert writes one alert, keyed by account so all alerts for an
// account land in the same partition.
func (p *AlertProducer) PublishAlert(_ context.Context, alert *domain.FraudAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(alert.AccountID.String()),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Debug("Fraud alert published",
		zap.String("alert_id", alert.ID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *AlertProducer) Close() error {
	return p.producer.Close()
}
