package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/logger"
	"ai-agenthub-be/internal/pkg/mailer"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/pkg/events"
	pktNats "ai-agenthub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ILedgerEventConsumerService handles post-commit side effects of ledger
// writes: purchase receipt emails and audit event fan-out to NATS. The ledger
// is already durable before any of this runs, so failures here only log.
type ILedgerEventConsumerService interface {
	Consume(ctx context.Context) error
}

type ledgerEventConsumerService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	natsPub      *pktNats.Publisher
	logger       logger.ILogger
}

func NewLedgerEventConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	natsPub *pktNats.Publisher,
	sysLogger logger.ILogger,
) ILedgerEventConsumerService {
	return &ledgerEventConsumerService{
		pubSub:       pubSub,
		topicName:    topicName,
		uowFactory:   uowFactory,
		emailService: emailService,
		natsPub:      natsPub,
		logger:       sysLogger,
	}
}

func (s *ledgerEventConsumerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *ledgerEventConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event LedgerAppliedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("ledger-events", "Malformed ledger event dropped", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if s.natsPub != nil {
		auditEvent := events.BaseEvent{
			Type: "CREDIT_" + toAuditSuffix(event.TransactionType),
			Data: map[string]interface{}{
				"user_id":          event.UserId,
				"transaction_type": event.TransactionType,
				"transaction_ids":  event.TransactionIds,
				"amount":           event.Amount,
				"credit_balance":   event.CreditBalance,
				"occurred_at":      event.OccurredAt,
			},
			OccurredAt: time.Now(),
		}
		if err := s.natsPub.Publish(ctx, auditEvent); err != nil {
			s.logger.Warn("ledger-events", "Failed to publish audit event", map[string]interface{}{
				"user_id": event.UserId,
				"error":   err.Error(),
			})
		}
	}

	if event.TransactionType == string(entity.TransactionTypePurchase) {
		s.sendReceipt(ctx, &event)
	}

	msg.Ack()
}

func (s *ledgerEventConsumerService) sendReceipt(ctx context.Context, event *LedgerAppliedEvent) {
	if s.emailService == nil {
		return
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: event.UserId})
	if err != nil || user == nil {
		s.logger.Warn("ledger-events", "Receipt skipped, user lookup failed", map[string]interface{}{
			"user_id": event.UserId,
		})
		return
	}

	if err := s.emailService.SendPurchaseReceipt(user.Email, user.FullName, event.Amount, event.CreditBalance); err != nil {
		s.logger.Warn("ledger-events", "Receipt email failed", map[string]interface{}{
			"user_id": event.UserId,
			"error":   err.Error(),
		})
	}
}

func toAuditSuffix(transactionType string) string {
	switch transactionType {
	case string(entity.TransactionTypePurchase):
		return "PURCHASED"
	case string(entity.TransactionTypeUsage), string(entity.TransactionTypeSelfUsage):
		return "CHARGED"
	default:
		return "ADJUSTED"
	}
}
