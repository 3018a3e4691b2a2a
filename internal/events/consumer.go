package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// submissionEvent is the wire format on the submission topic. Upstream
// channels (POS bridges, mobile backends) publish here instead of calling
// the HTTP API.
type submissionEvent struct {
	AccountID       string   `json:"account_id"`
	Amount          float64  `json:"amount"`
	Category        string   `json:"category"`
	MerchantName    string   `json:"merchant_name"`
	MerchantAddress string   `json:"merchant_address,omitempty"`
	Description     string   `json:"description,omitempty"`
	SubmitterLat    *float64 `json:"submitter_lat,omitempty"`
	SubmitterLon    *float64 `json:"submitter_lon,omitempty"`
	MerchantLat     *float64 `json:"merchant_lat,omitempty"`
	MerchantLon     *float64 `json:"merchant_lon,omitempty"`
}

// SubmissionConsumer drains the submission topic into the lifecycle
// service. Validation failures are terminal for a message; transient
// failures retry with backoff before the message is dropped.
type SubmissionConsumer struct {
	consumerGroup sarama.ConsumerGroup
	lifecycle     *service.LifecycleService
	topics        []string
	logger        *zap.Logger
}

func NewSubmissionConsumer(cfg config.KafkaConfig, lifecycle *service.LifecycleService, logger *zap.Logger) (*SubmissionConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &SubmissionConsumer{
		consumerGroup: consumerGroup,
		lifecycle:     lifecycle,
		topics:        []string{cfg.SubmissionTopic},
		logger:        logger,
	}, nil
}

func (c *SubmissionConsumer) Start(ctx context.Context) error {
	handler := &submissionHandler{
		lifecycle: c.lifecycle,
		logger:    c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil // Context canceled
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			time.Sleep(time.Second * 5) // Retry backoff
		}
	}
}

func (c *SubmissionConsumer) Close() error {
	return c.consumerGroup.Close()
}

type submissionHandler struct {
	lifecycle *service.LifecycleService
	logger    *zap.Logger
}

func (h *submissionHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *submissionHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *submissionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *submissionHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event submissionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal submission event", zap.Error(err))
		return // Skip malformed
	}

	req, err := mapToSubmitRequest(event)
	if err != nil {
		h.logger.Error("Invalid submission event",
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)
		return
	}

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		_, err := h.lifecycle.Submit(ctx, req)
		if err == nil {
			break
		}

		// Business rejections will not change on retry.
		if errors.Is(err, domain.ErrValidation) ||
			errors.Is(err, domain.ErrInsufficientCredit) ||
			errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("Submission event rejected",
				zap.String("account_id", event.AccountID),
				zap.Error(err),
			)
			return
		}

		h.logger.Error("Failed to process submission event",
			zap.String("account_id", event.AccountID),
			zap.Error(err),
			zap.Int("retry", i+1),
		)
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second) // Simple backoff
			continue
		}
		h.logger.Error("Dropping submission event after retries",
			zap.String("account_id", event.AccountID),
		)
	}
}

func mapToSubmitRequest(event submissionEvent) (service.SubmitRequest, error) {
	accountID, err := uuid.Parse(event.AccountID)
	if err != nil {
		return service.SubmitRequest{}, fmt.Errorf("bad account id %q: %w", event.AccountID, err)
	}

	req := service.SubmitRequest{
		AccountID:       accountID,
		Amount:          event.Amount,
		Category:        domain.Category(event.Category),
		MerchantName:    event.MerchantName,
		MerchantAddress: event.MerchantAddress,
		Description:     event.Description,
	}
	if event.SubmitterLat != nil && event.SubmitterLon != nil {
		req.SubmitterLocation = &domain.Coordinates{Lat: *event.SubmitterLat, Lon: *event.SubmitterLon}
	}
	if event.MerchantLat != nil && event.MerchantLon != nil {
		req.MerchantLocation = &domain.Coordinates{Lat: *event.MerchantLat, Lon: *event.MerchantLon}
	}
	return req, nil
}
