package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/repository/contract"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/pkg/billing/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeStore struct {
	transactions []*entity.CreditTransaction
	credits      map[uuid.UUID]*entity.UserCredits
	orders       map[uuid.UUID]*entity.CreditPurchaseOrder
	users        map[uuid.UUID]*entity.User
	messages     map[uuid.UUID]*entity.ChatMessage

	createErr     error
	applyDeltaErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		credits:  map[uuid.UUID]*entity.UserCredits{},
		orders:   map[uuid.UUID]*entity.CreditPurchaseOrder{},
		users:    map[uuid.UUID]*entity.User{},
		messages: map[uuid.UUID]*entity.ChatMessage{},
	}
}

type fakeUnitOfWork struct {
	store     *fakeStore
	committed bool
	undo      []func()
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { u.committed = true; return nil }
func (u *fakeUnitOfWork) Rollback() error {
	if !u.committed {
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
		u.undo = nil
	}
	return nil
}

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository { return &fakeUserRepo{u} }
func (u *fakeUnitOfWork) CreditTransactionRepository() contract.CreditTransactionRepository {
	return &fakeTxRepo{u}
}
func (u *fakeUnitOfWork) UserCreditsRepository() contract.UserCreditsRepository {
	return &fakeCreditsRepo{u}
}
func (u *fakeUnitOfWork) PurchaseOrderRepository() contract.PurchaseOrderRepository {
	return &fakeOrderRepo{u}
}
func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{u}
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{store: f.store}
}

type fakeTxRepo struct{ uow *fakeUnitOfWork }

func (r *fakeTxRepo) Create(ctx context.Context, tx *entity.CreditTransaction) error {
	if r.uow.store.createErr != nil {
		return r.uow.store.createErr
	}
	tx.CreatedAt = time.Now()
	r.uow.store.transactions = append(r.uow.store.transactions, tx)
	r.uow.undo = append(r.uow.undo, func() {
		r.uow.store.transactions = r.uow.store.transactions[:len(r.uow.store.transactions)-1]
	})
	return nil
}

func (r *fakeTxRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditTransaction, error) {
	if len(r.uow.store.transactions) == 0 {
		return nil, nil
	}
	return r.uow.store.transactions[0], nil
}

func (r *fakeTxRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	return r.uow.store.transactions, nil
}

func (r *fakeTxRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.uow.store.transactions)), nil
}

func (r *fakeTxRepo) SumAmountByUser(ctx context.Context, userId uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, tx := range r.uow.store.transactions {
		if tx.UserId == userId {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

type fakeCreditsRepo struct{ uow *fakeUnitOfWork }

func (r *fakeCreditsRepo) ApplyDelta(ctx context.Context, userId uuid.UUID, amount, lifetimeDelta decimal.Decimal) (*entity.UserCredits, error) {
	if r.uow.store.applyDeltaErr != nil {
		return nil, r.uow.store.applyDeltaErr
	}
	row, ok := r.uow.store.credits[userId]
	if !ok {
		row = entity.ZeroUserCredits(userId)
		r.uow.store.credits[userId] = row
		r.uow.undo = append(r.uow.undo, func() { delete(r.uow.store.credits, userId) })
	} else {
		prev := *row
		r.uow.undo = append(r.uow.undo, func() { r.uow.store.credits[userId] = &prev })
	}
	row.CreditBalance = row.CreditBalance.Add(amount)
	row.LifetimeCredits = row.LifetimeCredits.Add(lifetimeDelta)
	snapshot := *row
	return &snapshot, nil
}

func (r *fakeCreditsRepo) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, error) {
	row, ok := r.uow.store.credits[userId]
	if !ok {
		return nil, nil
	}
	snapshot := *row
	return &snapshot, nil
}

type fakeOrderRepo struct{ uow *fakeUnitOfWork }

func (r *fakeOrderRepo) Create(ctx context.Context, order *entity.CreditPurchaseOrder) error {
	r.uow.store.orders[order.Id] = order
	return nil
}

func (r *fakeOrderRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditPurchaseOrder, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if order, found := r.uow.store.orders[byId.ID]; found {
				snapshot := *order
				return &snapshot, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchaseOrder, error) {
	var all []*entity.CreditPurchaseOrder
	for _, o := range r.uow.store.orders {
		all = append(all, o)
	}
	return all, nil
}

func (r *fakeOrderRepo) MarkSettled(ctx context.Context, id uuid.UUID, rawPayload []byte) (bool, error) {
	order, ok := r.uow.store.orders[id]
	if !ok || order.Status != entity.PurchaseOrderStatusPending {
		return false, nil
	}
	prev := *order
	r.uow.undo = append(r.uow.undo, func() { r.uow.store.orders[id] = &prev })
	now := time.Now()
	order.Status = entity.PurchaseOrderStatusSettled
	order.SettledAt = &now
	order.RawPayload = rawPayload
	return true, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PurchaseOrderStatus, rawPayload []byte) error {
	if order, ok := r.uow.store.orders[id]; ok {
		order.Status = status
		order.RawPayload = rawPayload
	}
	return nil
}

type fakeUserRepo struct{ uow *fakeUnitOfWork }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.uow.store.users[user.Id] = user
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.uow.store.users[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.uow.store.users)), nil
}

type fakeMessageRepo struct{ uow *fakeUnitOfWork }

func (r *fakeMessageRepo) Create(ctx context.Context, msg *entity.ChatMessage) error {
	r.uow.store.messages[msg.Id] = msg
	return nil
}

func (r *fakeMessageRepo) FindByIds(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.ChatMessage, error) {
	found := map[uuid.UUID]*entity.ChatMessage{}
	for _, id := range ids {
		if msg, ok := r.uow.store.messages[id]; ok {
			found[id] = msg
		}
	}
	return found, nil
}

type fakeBalanceCache struct {
	entries    map[uuid.UUID]*entity.UserCredits
	setCalls   int
	getCalls   int
	forceError error
}

func newFakeBalanceCache() *fakeBalanceCache {
	return &fakeBalanceCache{entries: map[uuid.UUID]*entity.UserCredits{}}
}

func (c *fakeBalanceCache) Get(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, bool, error) {
	c.getCalls++
	if c.forceError != nil {
		return nil, false, c.forceError
	}
	credits, ok := c.entries[userId]
	return credits, ok, nil
}

func (c *fakeBalanceCache) Set(ctx context.Context, userId uuid.UUID, credits *entity.UserCredits) error {
	c.setCalls++
	if c.forceError != nil {
		return c.forceError
	}
	snapshot := *credits
	c.entries[userId] = &snapshot
	return nil
}

func (c *fakeBalanceCache) Invalidate(ctx context.Context, userId uuid.UUID) error {
	delete(c.entries, userId)
	return nil
}

// ---- helpers ----

func billingConfig() config.BillingConfig {
	return config.BillingConfig{
		UsageMarkup:     decimal.RequireFromString("1.18"),
		SelfUsageMarkup: decimal.RequireFromString("1.05"),
		ProcessingFee:   decimal.Zero,
		BalanceCacheTTL: time.Minute,
	}
}

func newTestService(store *fakeStore, balanceCache *fakeBalanceCache) ICreditService {
	calc := pricing.NewCalculator(pricing.DefaultPolicy())
	return NewCreditService(&fakeFactory{store: store}, calc, balanceCache, billingConfig(), nopLogger{}, nil, "ledger.applied")
}

// ---- tests ----

func TestReportUsageAppendsPerTokenType(t *testing.T) {
	store := newFakeStore()
	balanceCache := newFakeBalanceCache()
	svc := newTestService(store, balanceCache)
	userId := uuid.New()

	result, err := svc.ReportUsage(context.Background(), &dto.ReportUsageRequest{
		UserId:               userId,
		ModelId:              "gpt-4o-mini",
		PromptTokens:         1000,
		CompletionTokens:     500,
		CostPerMillionInput:  "2.00",
		CostPerMillionOutput: "6.00",
	})
	require.NoError(t, err)

	assert.Len(t, result.TransactionIds, 2)
	assert.Equal(t, "-0.00590000", result.TotalAmount)
	assert.Equal(t, "-0.00590000", result.CreditBalance)
	assert.Equal(t, "0.00000000", result.LifetimeCredits, "usage must not accrue lifetime credits")

	require.Len(t, store.transactions, 2)
	assert.Equal(t, "input", *store.transactions[0].TokenType)
	assert.Equal(t, "output", *store.transactions[1].TokenType)
	assert.Equal(t, entity.TransactionTypeUsage, store.transactions[0].TransactionType)

	// Post-commit refresh landed in the cache.
	assert.Equal(t, 1, balanceCache.setCalls)
	cached := balanceCache.entries[userId]
	require.NotNil(t, cached)
	assert.Equal(t, "-0.00590000", cached.CreditBalance.StringFixed(8))
}

func TestReportUsageSelfClassUsesLowerMarkup(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())

	result, err := svc.ReportUsage(context.Background(), &dto.ReportUsageRequest{
		UserId:              uuid.New(),
		ModelId:             "gpt-4o-mini",
		PromptTokens:        1000,
		CostPerMillionInput: "2.00",
		Class:               "self_usage",
	})
	require.NoError(t, err)

	assert.Equal(t, "-0.00210000", result.TotalAmount)
	require.Len(t, store.transactions, 1)
	assert.Equal(t, entity.TransactionTypeSelfUsage, store.transactions[0].TransactionType)
}

func TestReportUsageUnpricedModelRecordsZero(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())
	userId := uuid.New()

	result, err := svc.ReportUsage(context.Background(), &dto.ReportUsageRequest{
		UserId:           userId,
		ModelId:          "experimental-model",
		PromptTokens:     300,
		CompletionTokens: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, "0.00000000", result.TotalAmount)
	assert.Len(t, store.transactions, 2, "unpriced usage is still recorded")
	assert.True(t, store.credits[userId].CreditBalance.IsZero())
}

func TestReportUsageZeroTokensWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())

	result, err := svc.ReportUsage(context.Background(), &dto.ReportUsageRequest{
		UserId:  uuid.New(),
		ModelId: "gpt-4o-mini",
	})
	require.NoError(t, err)

	assert.Empty(t, result.TransactionIds)
	assert.Empty(t, store.transactions)
}

func TestReportUsageValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())

	tests := []struct {
		name string
		req  *dto.ReportUsageRequest
	}{
		{"missing user", &dto.ReportUsageRequest{ModelId: "m"}},
		{"missing model", &dto.ReportUsageRequest{UserId: uuid.New()}},
		{"bad class", &dto.ReportUsageRequest{UserId: uuid.New(), ModelId: "m", Class: "purchase"}},
		{"bad rate", &dto.ReportUsageRequest{UserId: uuid.New(), ModelId: "m", PromptTokens: 1, CostPerMillionInput: "two dollars"}},
		{"negative tokens", &dto.ReportUsageRequest{UserId: uuid.New(), ModelId: "m", PromptTokens: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReportUsage(context.Background(), tt.req)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Empty(t, store.transactions, "rejected requests must not write")
}

func TestReportUsageLedgerFailureLeavesNoPartialState(t *testing.T) {
	store := newFakeStore()
	store.applyDeltaErr = errors.New("connection reset")
	balanceCache := newFakeBalanceCache()
	svc := newTestService(store, balanceCache)

	_, err := svc.ReportUsage(context.Background(), &dto.ReportUsageRequest{
		UserId:              uuid.New(),
		ModelId:             "gpt-4o-mini",
		PromptTokens:        100,
		CostPerMillionInput: "2.00",
	})

	var ledgerErr *LedgerWriteError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Empty(t, store.transactions, "rolled back transaction must not persist")
	assert.Zero(t, balanceCache.setCalls, "cache must not be touched on failure")
}

func TestReportPurchaseCreditsOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())
	userId := uuid.New()
	orderId := uuid.New()
	store.orders[orderId] = &entity.CreditPurchaseOrder{
		Id:           orderId,
		UserId:       userId,
		CreditAmount: decimal.RequireFromString("10.00000000"),
		Price:        decimal.RequireFromString("10.00"),
		Status:       entity.PurchaseOrderStatusPending,
	}

	result, err := svc.ReportPurchase(context.Background(), orderId, []byte(`{"transaction_status":"settlement"}`))
	require.NoError(t, err)

	assert.Equal(t, "10.00000000", result.TotalAmount)
	assert.Equal(t, "10.00000000", result.CreditBalance)
	assert.Equal(t, "10.00000000", result.LifetimeCredits, "purchases accrue lifetime credits")
	assert.Equal(t, entity.PurchaseOrderStatusSettled, store.orders[orderId].Status)
	require.Len(t, store.transactions, 1)

	// Replay: same order id again.
	_, err = svc.ReportPurchase(context.Background(), orderId, []byte(`{}`))
	var dup *DuplicateEventError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, orderId, dup.OrderId)

	assert.Len(t, store.transactions, 1, "replay must not double-credit")
	assert.Equal(t, "10.00000000", store.credits[userId].CreditBalance.StringFixed(8))
}

func TestReportPurchaseDeductsProcessingFee(t *testing.T) {
	store := newFakeStore()
	cfg := billingConfig()
	cfg.ProcessingFee = decimal.RequireFromString("0.30000000")
	svc := NewCreditService(&fakeFactory{store: store}, pricing.NewCalculator(pricing.DefaultPolicy()), newFakeBalanceCache(), cfg, nopLogger{}, nil, "ledger.applied")

	userId := uuid.New()
	orderId := uuid.New()
	store.orders[orderId] = &entity.CreditPurchaseOrder{
		Id:           orderId,
		UserId:       userId,
		CreditAmount: decimal.RequireFromString("5.00000000"),
		Price:        decimal.RequireFromString("5.00"),
		Status:       entity.PurchaseOrderStatusPending,
	}

	result, err := svc.ReportPurchase(context.Background(), orderId, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "4.70000000", result.TotalAmount)

	// A fee larger than the pack clamps at zero instead of debiting.
	tiny := uuid.New()
	store.orders[tiny] = &entity.CreditPurchaseOrder{
		Id:           tiny,
		UserId:       userId,
		CreditAmount: decimal.RequireFromString("0.10000000"),
		Price:        decimal.RequireFromString("0.10"),
		Status:       entity.PurchaseOrderStatusPending,
	}
	result, err = svc.ReportPurchase(context.Background(), tiny, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "0.00000000", result.TotalAmount)
}

func TestReportPurchaseUnknownOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())

	_, err := svc.ReportPurchase(context.Background(), uuid.New(), []byte(`{}`))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAdjust(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())
	userId := uuid.New()

	promo, err := svc.Adjust(context.Background(), &dto.AdjustCreditRequest{
		UserId:          userId,
		TransactionType: "promotional",
		Amount:          "5.00000000",
		Description:     "welcome bonus",
	})
	require.NoError(t, err)
	assert.Equal(t, "5.00000000", promo.CreditBalance)
	assert.Equal(t, "5.00000000", promo.LifetimeCredits, "promotional grants accrue lifetime credits")

	refund, err := svc.Adjust(context.Background(), &dto.AdjustCreditRequest{
		UserId:          userId,
		TransactionType: "refund",
		Amount:          "-2.00000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "3.00000000", refund.CreditBalance)
	assert.Equal(t, "5.00000000", refund.LifetimeCredits, "refunds must not change lifetime credits")
}

func TestAdjustValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())
	userId := uuid.New()

	tests := []struct {
		name string
		req  *dto.AdjustCreditRequest
	}{
		{"missing user", &dto.AdjustCreditRequest{TransactionType: "refund", Amount: "1"}},
		{"usage is not adjustable", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "usage", Amount: "1"}},
		{"purchase is not adjustable", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "purchase", Amount: "1"}},
		{"non-numeric amount", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "refund", Amount: "ten"}},
		{"too many fraction digits", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "refund", Amount: "1.123456789"}},
		{"too many integer digits", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "refund", Amount: "1234567890123"}},
		{"negative promotional", &dto.AdjustCreditRequest{UserId: userId, TransactionType: "promotional", Amount: "-1.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Adjust(context.Background(), tt.req)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Empty(t, store.transactions)
}

func TestGetBalance(t *testing.T) {
	store := newFakeStore()
	balanceCache := newFakeBalanceCache()
	svc := newTestService(store, balanceCache)
	userId := uuid.New()

	t.Run("unknown user reads zero", func(t *testing.T) {
		res, err := svc.GetBalance(context.Background(), userId)
		require.NoError(t, err)
		assert.Equal(t, "0.00000000", res.CreditBalance)
		assert.Equal(t, "0.00000000", res.LifetimeCredits)
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		balanceCache.entries[userId] = &entity.UserCredits{
			UserId:          userId,
			CreditBalance:   decimal.RequireFromString("7.50000000"),
			LifetimeCredits: decimal.RequireFromString("10.00000000"),
		}

		res, err := svc.GetBalance(context.Background(), userId)
		require.NoError(t, err)
		assert.Equal(t, "7.50000000", res.CreditBalance)
	})

	t.Run("cache miss repopulates", func(t *testing.T) {
		delete(balanceCache.entries, userId)
		store.credits[userId] = &entity.UserCredits{
			UserId:        userId,
			CreditBalance: decimal.RequireFromString("1.25000000"),
		}

		res, err := svc.GetBalance(context.Background(), userId)
		require.NoError(t, err)
		assert.Equal(t, "1.25000000", res.CreditBalance)
		assert.NotNil(t, balanceCache.entries[userId])
	})
}

func TestGetHistoryJoinsMessagePreviews(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBalanceCache())
	userId := uuid.New()
	messageId := uuid.New()

	store.messages[messageId] = &entity.ChatMessage{
		Id:      messageId,
		Content: "Tell me about the quarterly revenue numbers and how they compare to the projections we made back in January of this year please",
	}
	tokenType := "input"
	tokenAmount := int64(1000)
	store.transactions = append(store.transactions, &entity.CreditTransaction{
		Id:              uuid.New(),
		UserId:          userId,
		TransactionType: entity.TransactionTypeUsage,
		Amount:          decimal.RequireFromString("-0.00236"),
		MessageId:       &messageId,
		TokenType:       &tokenType,
		TokenAmount:     &tokenAmount,
		CreatedAt:       time.Now(),
	})

	res, err := svc.GetHistory(context.Background(), userId, 1, 20, nil)
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, "-0.00236000", res.Items[0].Amount)
	assert.NotEmpty(t, res.Items[0].MessagePreview)
	assert.LessOrEqual(t, len([]rune(res.Items[0].MessagePreview)), 121)
}

func TestGetHistoryRejectsUnknownTypeFilter(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeBalanceCache())

	_, err := svc.GetHistory(context.Background(), uuid.New(), 1, 20, &dto.HistoryFilter{TransactionType: "spend"})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
