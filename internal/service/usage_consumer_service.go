package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/pkg/logger"
	pktNats "ai-agenthub-be/pkg/nats"

	"ai-agenthub-be/pkg/events"
)

const (
	UsageObservedSubject = "events.USAGE_OBSERVED"
	usageConsumerDurable = "credit-ledger-usage"
)

// IUsageConsumerService bridges the chat/streaming collaborator to the ledger:
// it consumes "usage observed" events from NATS and turns them into charges.
type IUsageConsumerService interface {
	Consume(ctx context.Context) error
}

type usageConsumerService struct {
	subscriber    *pktNats.Subscriber
	creditService ICreditService
	logger        logger.ILogger
}

func NewUsageConsumerService(
	subscriber *pktNats.Subscriber,
	creditService ICreditService,
	sysLogger logger.ILogger,
) IUsageConsumerService {
	return &usageConsumerService{
		subscriber:    subscriber,
		creditService: creditService,
		logger:        sysLogger,
	}
}

func (s *usageConsumerService) Consume(ctx context.Context) error {
	return s.subscriber.Subscribe(UsageObservedSubject, usageConsumerDurable, s.handleUsageEvent)
}

func (s *usageConsumerService) handleUsageEvent(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		s.logger.Error("usage-consumer", "Failed to re-marshal usage payload", map[string]interface{}{
			"error": err.Error(),
		})
		return nil // poison message, do not redeliver
	}

	var req dto.ReportUsageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("usage-consumer", "Malformed usage event dropped", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	result, err := s.creditService.ReportUsage(ctx, &req)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			// Bad events never become chargeable by retrying.
			s.logger.Error("usage-consumer", "Invalid usage event dropped", map[string]interface{}{
				"user_id": req.UserId,
				"error":   err.Error(),
			})
			return nil
		}
		// Ledger write failures are transient; redeliver. The whole charge is
		// retried, never the pricing computation with different inputs.
		s.logger.Warn("usage-consumer", "Usage charge failed, will retry", map[string]interface{}{
			"user_id": req.UserId,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Info("usage-consumer", "Usage charged", map[string]interface{}{
		"user_id":         req.UserId,
		"model_id":        req.ModelId,
		"transaction_ids": result.TransactionIds,
		"total_amount":    result.TotalAmount,
	})
	return nil
}
