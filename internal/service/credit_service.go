package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/logger"
	"ai-agenthub-be/internal/repository/cache"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/pkg/billing/pricing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountPattern is the strict decimal form accepted for explicit amounts:
// optional sign, up to 12 integer digits, up to 8 fractional digits.
var amountPattern = regexp.MustCompile(`^-?\d{1,12}(\.\d{1,8})?$`)

const messagePreviewLength = 120

type ICreditService interface {
	ReportUsage(ctx context.Context, req *dto.ReportUsageRequest) (*dto.ChargeResult, error)
	ReportPurchase(ctx context.Context, orderId uuid.UUID, rawPayload []byte) (*dto.ChargeResult, error)
	Adjust(ctx context.Context, req *dto.AdjustCreditRequest) (*dto.ChargeResult, error)
	GetBalance(ctx context.Context, userId uuid.UUID) (*dto.BalanceResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, page, limit int, filter *dto.HistoryFilter) (*dto.TransactionHistoryResponse, error)
}

// LedgerAppliedEvent is published on the in-process bus after a ledger write
// commits. Consumers handle side effects (receipt mail, audit fan-out); the
// ledger itself never blocks on them.
type LedgerAppliedEvent struct {
	UserId          uuid.UUID   `json:"user_id"`
	TransactionType string      `json:"transaction_type"`
	TransactionIds  []uuid.UUID `json:"transaction_ids"`
	Amount          string      `json:"amount"`
	CreditBalance   string      `json:"credit_balance"`
	OrderId         *uuid.UUID  `json:"order_id,omitempty"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

type creditService struct {
	uowFactory   unitofwork.RepositoryFactory
	calculator   *pricing.Calculator
	balanceCache cache.BalanceCache
	billing      config.BillingConfig
	logger       logger.ILogger
	pubSub       *gochannel.GoChannel
	ledgerTopic  string
}

func NewCreditService(
	uowFactory unitofwork.RepositoryFactory,
	calculator *pricing.Calculator,
	balanceCache cache.BalanceCache,
	billing config.BillingConfig,
	sysLogger logger.ILogger,
	pubSub *gochannel.GoChannel,
	ledgerTopic string,
) ICreditService {
	return &creditService{
		uowFactory:   uowFactory,
		calculator:   calculator,
		balanceCache: balanceCache,
		billing:      billing,
		logger:       sysLogger,
		pubSub:       pubSub,
		ledgerTopic:  ledgerTopic,
	}
}

// ReportUsage prices the observed token usage and appends one transaction per
// token type, adjusting the balance in the same database transaction. The
// ledger allows the balance to go negative: usage is charged after the fact,
// and refusing a chat turn is the caller's policy, not ours.
func (s *creditService) ReportUsage(ctx context.Context, req *dto.ReportUsageRequest) (*dto.ChargeResult, error) {
	if req.UserId == uuid.Nil {
		return nil, &ValidationError{Reason: "user_id is required"}
	}
	if req.ModelId == "" {
		return nil, &ValidationError{Reason: "model_id is required"}
	}

	class := pricing.TransactionClass(req.Class)
	if req.Class == "" {
		class = pricing.ClassUsage
	}
	txType := entity.TransactionType(string(class))
	if !txType.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown usage class %q", req.Class)}
	}

	rates, err := parseRates(req.CostPerMillionInput, req.CostPerMillionOutput)
	if err != nil {
		return nil, err
	}

	items, err := s.calculator.Calculate(pricing.TokenUsage{
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
	}, rates, class)
	if err != nil {
		return nil, &ValidationError{Reason: "unpriceable usage", Err: err}
	}
	if len(items) == 0 {
		// Zero tokens observed: nothing to record.
		return s.zeroChargeResult(ctx, req.UserId)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}
	defer uow.Rollback()

	total := decimal.Zero
	txIds := make([]uuid.UUID, 0, len(items))
	description := fmt.Sprintf("Model usage: %s", req.ModelId)

	for _, item := range items {
		item := item
		transaction := &entity.CreditTransaction{
			Id:              uuid.New(),
			UserId:          req.UserId,
			TransactionType: txType,
			Amount:          item.Amount,
			Description:     &description,
			MessageId:       req.MessageId,
			TokenAmount:     &item.TokenAmount,
			TokenType:       &item.TokenType,
			ModelId:         &req.ModelId,
		}
		if err := uow.CreditTransactionRepository().Create(ctx, transaction); err != nil {
			return nil, &LedgerWriteError{Err: err}
		}
		total = total.Add(item.Amount)
		txIds = append(txIds, transaction.Id)
	}

	// Usage never touches lifetime credits.
	credits, err := uow.UserCreditsRepository().ApplyDelta(ctx, req.UserId, total, decimal.Zero)
	if err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	if err := uow.Commit(); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	s.afterApply(ctx, credits, string(txType), total, txIds, nil)

	return chargeResult(txIds, total, credits), nil
}

// ReportPurchase credits a webhook-confirmed purchase. The purchase order id
// is the idempotency key: settling is guarded by a pending->settled transition
// inside the same database transaction as the ledger write, so a replayed
// webhook can never double-credit.
func (s *creditService) ReportPurchase(ctx context.Context, orderId uuid.UUID, rawPayload []byte) (*dto.ChargeResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}
	defer uow.Rollback()

	settled, err := uow.PurchaseOrderRepository().MarkSettled(ctx, orderId, rawPayload)
	if err != nil {
		return nil, &LedgerWriteError{Err: err}
	}
	if !settled {
		order, err := uow.PurchaseOrderRepository().FindOne(ctx, specification.ByID{ID: orderId})
		if err != nil {
			return nil, &LedgerWriteError{Err: err}
		}
		if order == nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("unknown purchase order %s", orderId)}
		}
		return nil, &DuplicateEventError{OrderId: orderId}
	}

	order, err := uow.PurchaseOrderRepository().FindOne(ctx, specification.ByID{ID: orderId})
	if err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	credited := order.CreditAmount.Sub(s.billing.ProcessingFee)
	if credited.IsNegative() {
		credited = decimal.Zero
	}

	description := fmt.Sprintf("Credit pack purchase, order %s", orderId)
	transaction := &entity.CreditTransaction{
		Id:              uuid.New(),
		UserId:          order.UserId,
		TransactionType: entity.TransactionTypePurchase,
		Amount:          credited,
		Description:     &description,
	}
	if err := uow.CreditTransactionRepository().Create(ctx, transaction); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	credits, err := uow.UserCreditsRepository().ApplyDelta(ctx, order.UserId, credited, credited)
	if err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	if err := uow.Commit(); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	txIds := []uuid.UUID{transaction.Id}
	s.afterApply(ctx, credits, string(entity.TransactionTypePurchase), credited, txIds, &orderId)

	return chargeResult(txIds, credited, credits), nil
}

// Adjust is the operator path for refund, promotional and manual adjustment
// entries. Amounts arrive as strict decimal strings and are rejected before
// any write when malformed.
func (s *creditService) Adjust(ctx context.Context, req *dto.AdjustCreditRequest) (*dto.ChargeResult, error) {
	if req.UserId == uuid.Nil {
		return nil, &ValidationError{Reason: "user_id is required"}
	}

	txType := entity.TransactionType(req.TransactionType)
	switch txType {
	case entity.TransactionTypeRefund, entity.TransactionTypePromotional, entity.TransactionTypeAdjustment:
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("transaction type %q is not adjustable", req.TransactionType)}
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if txType.AccruesLifetime() && !amount.IsPositive() {
		return nil, &ValidationError{Reason: "promotional credit must be positive"}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}
	defer uow.Rollback()

	var description *string
	if req.Description != "" {
		description = &req.Description
	}
	transaction := &entity.CreditTransaction{
		Id:              uuid.New(),
		UserId:          req.UserId,
		TransactionType: txType,
		Amount:          amount,
		Description:     description,
	}
	if err := uow.CreditTransactionRepository().Create(ctx, transaction); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	lifetimeDelta := decimal.Zero
	if txType.AccruesLifetime() {
		lifetimeDelta = amount
	}
	credits, err := uow.UserCreditsRepository().ApplyDelta(ctx, req.UserId, amount, lifetimeDelta)
	if err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	if err := uow.Commit(); err != nil {
		return nil, &LedgerWriteError{Err: err}
	}

	txIds := []uuid.UUID{transaction.Id}
	s.afterApply(ctx, credits, string(txType), amount, txIds, nil)

	return chargeResult(txIds, amount, credits), nil
}

// GetBalance serves from cache when possible; a miss falls through to the
// materialized row and repopulates the cache. Users without ledger activity
// get a zero balance, never an error.
func (s *creditService) GetBalance(ctx context.Context, userId uuid.UUID) (*dto.BalanceResponse, error) {
	if cached, found, err := s.balanceCache.Get(ctx, userId); err == nil && found {
		return balanceResponse(cached), nil
	} else if err != nil {
		s.logger.Warn("credit", "Balance cache read failed", map[string]interface{}{
			"user_id": userId, "error": err.Error(),
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	credits, err := uow.UserCreditsRepository().FindByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}
	if credits == nil {
		credits = entity.ZeroUserCredits(userId)
	}

	if err := s.balanceCache.Set(ctx, userId, credits); err != nil {
		s.logger.Warn("credit", "Balance cache refresh failed", map[string]interface{}{
			"user_id": userId, "error": err.Error(),
		})
	}

	return balanceResponse(credits), nil
}

func (s *creditService) GetHistory(ctx context.Context, userId uuid.UUID, page, limit int, filter *dto.HistoryFilter) (*dto.TransactionHistoryResponse, error) {
	if userId == uuid.Nil {
		return nil, &ValidationError{Reason: "user_id is required"}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filterSpecs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
	}
	if filter != nil {
		if filter.TransactionType != "" {
			if !entity.TransactionType(filter.TransactionType).Valid() {
				return nil, &ValidationError{Reason: fmt.Sprintf("unknown transaction type %q", filter.TransactionType)}
			}
			filterSpecs = append(filterSpecs, specification.ByTransactionType{Type: filter.TransactionType})
		}
		if filter.From != nil {
			filterSpecs = append(filterSpecs, specification.CreatedFrom{From: *filter.From})
		}
		if filter.To != nil {
			filterSpecs = append(filterSpecs, specification.CreatedTo{To: *filter.To})
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	txRepo := uow.CreditTransactionRepository()

	totalCount, err := txRepo.Count(ctx, filterSpecs...)
	if err != nil {
		return nil, err
	}

	pageSpecs := append(filterSpecs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	transactions, err := txRepo.FindAll(ctx, pageSpecs...)
	if err != nil {
		return nil, err
	}

	// Join linked chat messages for a human-readable preview.
	var messageIds []uuid.UUID
	for _, t := range transactions {
		if t.MessageId != nil {
			messageIds = append(messageIds, *t.MessageId)
		}
	}
	messages, err := uow.ChatMessageRepository().FindByIds(ctx, messageIds)
	if err != nil {
		s.logger.Warn("credit", "Failed to load linked messages for history", map[string]interface{}{
			"user_id": userId, "error": err.Error(),
		})
		messages = map[uuid.UUID]*entity.ChatMessage{}
	}

	items := make([]*dto.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		item := &dto.TransactionResponse{
			Id:              t.Id,
			TransactionType: string(t.TransactionType),
			Amount:          t.Amount.StringFixed(8),
			MessageId:       t.MessageId,
			TokenAmount:     t.TokenAmount,
			TokenType:       t.TokenType,
			ModelId:         t.ModelId,
			CreatedAt:       t.CreatedAt,
		}
		if t.Description != nil {
			item.Description = *t.Description
		}
		if t.MessageId != nil {
			if msg, ok := messages[*t.MessageId]; ok {
				item.MessagePreview = truncate(msg.Content, messagePreviewLength)
			}
		}
		items = append(items, item)
	}

	return &dto.TransactionHistoryResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		Limit:      limit,
	}, nil
}

// afterApply runs the post-commit side effects: cache refresh, audit log and
// event publication. A failure here never fails the charge; the ledger is
// already durable.
func (s *creditService) afterApply(ctx context.Context, credits *entity.UserCredits, txType string, amount decimal.Decimal, txIds []uuid.UUID, orderId *uuid.UUID) {
	if err := s.balanceCache.Set(ctx, credits.UserId, credits); err != nil {
		s.logger.Warn("credit", "Balance cache refresh failed after write", map[string]interface{}{
			"user_id": credits.UserId, "error": err.Error(),
		})
	}

	s.logger.Info("credit", "Ledger transaction applied", map[string]interface{}{
		"user_id":          credits.UserId,
		"transaction_type": txType,
		"transaction_ids":  txIds,
		"amount":           amount.StringFixed(8),
		"credit_balance":   credits.CreditBalance.StringFixed(8),
		"lifetime_credits": credits.LifetimeCredits.StringFixed(8),
	})

	if s.pubSub == nil {
		return
	}
	payload, err := json.Marshal(LedgerAppliedEvent{
		UserId:          credits.UserId,
		TransactionType: txType,
		TransactionIds:  txIds,
		Amount:          amount.StringFixed(8),
		CreditBalance:   credits.CreditBalance.StringFixed(8),
		OrderId:         orderId,
		OccurredAt:      time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.pubSub.Publish(s.ledgerTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Warn("credit", "Failed to publish ledger event", map[string]interface{}{
			"user_id": credits.UserId, "error": err.Error(),
		})
	}
}

func (s *creditService) zeroChargeResult(ctx context.Context, userId uuid.UUID) (*dto.ChargeResult, error) {
	balance, err := s.GetBalance(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.ChargeResult{
		TransactionIds:  []uuid.UUID{},
		TotalAmount:     decimal.Zero.StringFixed(8),
		CreditBalance:   balance.CreditBalance,
		LifetimeCredits: balance.LifetimeCredits,
	}, nil
}

func parseRates(input, output string) (pricing.ModelRates, error) {
	var rates pricing.ModelRates
	if input != "" {
		d, err := decimal.NewFromString(input)
		if err != nil {
			return rates, &ValidationError{Reason: "cost_per_million_input is not a valid decimal", Err: err}
		}
		rates.CostPerMillionInput = &d
	}
	if output != "" {
		d, err := decimal.NewFromString(output)
		if err != nil {
			return rates, &ValidationError{Reason: "cost_per_million_output is not a valid decimal", Err: err}
		}
		rates.CostPerMillionOutput = &d
	}
	return rates, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(raw) {
		return decimal.Zero, &ValidationError{Reason: fmt.Sprintf("amount %q does not match the expected decimal format", raw)}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ValidationError{Reason: "amount is not a valid decimal", Err: err}
	}
	return amount, nil
}

func chargeResult(txIds []uuid.UUID, total decimal.Decimal, credits *entity.UserCredits) *dto.ChargeResult {
	return &dto.ChargeResult{
		TransactionIds:  txIds,
		TotalAmount:     total.StringFixed(8),
		CreditBalance:   credits.CreditBalance.StringFixed(8),
		LifetimeCredits: credits.LifetimeCredits.StringFixed(8),
	}
}

func balanceResponse(credits *entity.UserCredits) *dto.BalanceResponse {
	return &dto.BalanceResponse{
		UserId:          credits.UserId,
		CreditBalance:   credits.CreditBalance.StringFixed(8),
		LifetimeCredits: credits.LifetimeCredits.StringFixed(8),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
