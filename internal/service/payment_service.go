package service

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/logger"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

// creditPacks is the static purchase catalog. The order row snapshots what was
// bought, so editing this list never rewrites history.
var creditPacks = []entity.CreditPack{
	{Slug: "starter", Name: "Starter Pack", CreditAmount: decimal.RequireFromString("5.00000000"), Price: decimal.RequireFromString("5.00")},
	{Slug: "standard", Name: "Standard Pack", CreditAmount: decimal.RequireFromString("10.00000000"), Price: decimal.RequireFromString("10.00")},
	{Slug: "pro", Name: "Pro Pack", CreditAmount: decimal.RequireFromString("50.00000000"), Price: decimal.RequireFromString("45.00")},
}

type IPaymentService interface {
	GetCreditPacks(ctx context.Context) []*dto.CreditPackResponse
	Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error
	GetOrders(ctx context.Context, userId uuid.UUID) ([]*dto.PurchaseOrderResponse, error)
}

type paymentService struct {
	uowFactory    unitofwork.RepositoryFactory
	creditService ICreditService
	cfg           *config.Config
	logger        logger.ILogger
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	creditService ICreditService,
	cfg *config.Config,
	sysLogger logger.ILogger,
) IPaymentService {
	return &paymentService{
		uowFactory:    uowFactory,
		creditService: creditService,
		cfg:           cfg,
		logger:        sysLogger,
	}
}

func (s *paymentService) GetCreditPacks(ctx context.Context) []*dto.CreditPackResponse {
	res := make([]*dto.CreditPackResponse, 0, len(creditPacks))
	for _, p := range creditPacks {
		res = append(res, &dto.CreditPackResponse{
			Slug:         p.Slug,
			Name:         p.Name,
			CreditAmount: p.CreditAmount.StringFixed(8),
			Price:        p.Price.StringFixed(2),
		})
	}
	return res
}

// Checkout creates a pending purchase order and a midtrans Snap transaction.
// The order id doubles as the midtrans order id, which is what makes webhook
// replays detectable later.
func (s *paymentService) Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	var pack *entity.CreditPack
	for i := range creditPacks {
		if creditPacks[i].Slug == req.PackSlug {
			pack = &creditPacks[i]
			break
		}
	}
	if pack == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown credit pack %q", req.PackSlug)}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &ValidationError{Reason: "user not found"}
	}

	order := &entity.CreditPurchaseOrder{
		Id:           uuid.New(),
		UserId:       userId,
		CreditAmount: pack.CreditAmount,
		Price:        pack.Price,
		Status:       entity.PurchaseOrderStatusPending,
	}
	if err := uow.PurchaseOrderRepository().Create(ctx, order); err != nil {
		return nil, err
	}

	// External call stays outside any DB transaction.
	var sClient snap.Client
	env := midtrans.Sandbox
	if s.cfg.Midtrans.IsProduction {
		env = midtrans.Production
	}
	sClient.New(s.cfg.Midtrans.ServerKey, env)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.Id.String(),
			GrossAmt: pack.Price.Round(0).IntPart(),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: fmt.Sprintf("%s/app/billing?payment=success", s.cfg.App.ClientURL),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.FullName,
			Email: user.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    pack.Slug,
				Price: pack.Price.Round(0).IntPart(),
				Qty:   1,
				Name:  pack.Name,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := sClient.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	s.logger.Info("payment", "Credit pack checkout created", map[string]interface{}{
		"user_id":  userId,
		"order_id": order.Id,
		"pack":     pack.Slug,
		"price":    pack.Price.StringFixed(2),
	})

	return &dto.CheckoutResponse{
		OrderId:         order.Id,
		CreditAmount:    pack.CreditAmount.StringFixed(8),
		Price:           pack.Price.StringFixed(2),
		SnapToken:       snapResp.Token,
		SnapRedirectUrl: snapResp.RedirectURL,
	}, nil
}

// HandleNotification is the payment webhook. Delivery is at-least-once, so the
// whole path must be safe to run twice for the same order: signature check,
// then settle-and-credit through the idempotent purchase path.
func (s *paymentService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error {
	if s.cfg.Midtrans.ServerKey == "" {
		return fmt.Errorf("server configuration error: midtrans server key missing")
	}
	if !VerifyMidtransSignature(req.OrderId, req.StatusCode, req.GrossAmount, s.cfg.Midtrans.ServerKey, req.SignatureKey) {
		s.logger.Warn("payment", "Webhook signature mismatch", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return fmt.Errorf("invalid signature")
	}

	orderId, err := uuid.Parse(req.OrderId)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("invalid order id %q", req.OrderId), Err: err}
	}

	rawPayload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	switch req.TransactionStatus {
	case "capture", "settlement":
		if req.TransactionStatus == "capture" && req.FraudStatus == "challenge" {
			s.logger.Warn("payment", "Capture flagged for fraud review, not crediting", map[string]interface{}{
				"order_id": orderId,
			})
			return nil
		}
		_, err := s.creditService.ReportPurchase(ctx, orderId, rawPayload)
		if IsDuplicateEvent(err) {
			// Replay: the credit already landed. Acknowledge so midtrans
			// stops retrying.
			s.logger.Info("payment", "Webhook replay ignored", map[string]interface{}{
				"order_id": orderId,
			})
			return nil
		}
		return err

	case "deny", "cancel", "failure":
		uow := s.uowFactory.NewUnitOfWork(ctx)
		return uow.PurchaseOrderRepository().UpdateStatus(ctx, orderId, entity.PurchaseOrderStatusFailed, rawPayload)

	case "expire":
		uow := s.uowFactory.NewUnitOfWork(ctx)
		return uow.PurchaseOrderRepository().UpdateStatus(ctx, orderId, entity.PurchaseOrderStatusExpired, rawPayload)

	default:
		// pending and other transitional states carry no ledger effect.
		return nil
	}
}

func (s *paymentService) GetOrders(ctx context.Context, userId uuid.UUID) ([]*dto.PurchaseOrderResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	orders, err := uow.PurchaseOrderRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PurchaseOrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, &dto.PurchaseOrderResponse{
			Id:           o.Id,
			CreditAmount: o.CreditAmount.StringFixed(8),
			Price:        o.Price.StringFixed(2),
			Status:       string(o.Status),
			SettledAt:    o.SettledAt,
			CreatedAt:    o.CreatedAt,
		})
	}
	return res, nil
}

// VerifyMidtransSignature checks the webhook signature:
// SHA512(order_id + status_code + gross_amount + server_key).
func VerifyMidtransSignature(orderId, statusCode, grossAmount, serverKey, signature string) bool {
	input := orderId + statusCode + grossAmount + serverKey
	expected := fmt.Sprintf("%x", sha512.Sum512([]byte(input)))
	return signature == expected
}
