package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/internal/gateway"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// OrderCreator 支付网关下单接口
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.Order, error)
}

// PurchaseOrder 返回给客户端用于唤起支付
type PurchaseOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Tokens   int    `json:"tokens"`
	KeyID    string `json:"key_id"`
}

// VerifyResult Credited 为 false 表示该订单此前已入账，本次为重放
type VerifyResult struct {
	Payment  *model.Payment `json:"payment"`
	Credited bool           `json:"credited"`
	Balance  model.Tokens   `json:"balance"`
}

// PaymentService 代币购买：下单、回调验签、幂等入账
type PaymentService interface {
	Packages() []config.TokenPackage
	Purchase(ctx context.Context, caller Caller, packageID string) (*PurchaseOrder, error)
	Verify(ctx context.Context, caller Caller, orderID, paymentID, signature string) (*VerifyResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	History(ctx context.Context, caller Caller, limit int) ([]*model.Payment, error)
}

type paymentService struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	ledger   *TokenLedger
	orders   OrderCreator
	cfg      config.PaymentConfig
}

func NewPaymentService(db *gorm.DB, payments repository.PaymentRepository, ledger *TokenLedger, orders OrderCreator, cfg config.PaymentConfig) PaymentService {
	return &paymentService{db: db, payments: payments, ledger: ledger, orders: orders, cfg: cfg}
}

func (s *paymentService) Packages() []config.TokenPackage { return s.cfg.Packages }

func (s *paymentService) Purchase(ctx context.Context, caller Caller, packageID string) (*PurchaseOrder, error) {
	pkg, ok := s.cfg.Package(packageID)
	if !ok {
		return nil, errcode.New(errcode.KindInvalidArgument, "unknown package %q", packageID)
	}
	currency := pkg.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	paymentID := uuid.New().String()
	order, err := s.orders.CreateOrder(ctx, pkg.Amount, currency, paymentID)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		ID:        paymentID,
		UserID:    caller.ID,
		OrderRef:  order.ID,
		Amount:    pkg.Amount,
		Currency:  currency,
		Status:    model.PaymentPending,
		Tokens:    pkg.Tokens,
		PackageID: pkg.ID,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return &PurchaseOrder{OrderID: order.ID, Amount: pkg.Amount, Currency: currency, Tokens: pkg.Tokens, KeyID: s.cfg.KeyID}, nil
}

func (s *paymentService) Verify(ctx context.Context, caller Caller, orderID, paymentID, signature string) (*VerifyResult, error) {
	// 验签失败不触碰任何记录
	if !gateway.VerifyPayment(s.cfg.KeySecret, orderID, paymentID, signature) {
		logger.Warn("payment signature mismatch", zap.String("order", orderID), zap.String("user", caller.ID))
		return nil, errcode.ErrPaymentVerificationFailed
	}
	p, err := s.payments.GetByOrderRef(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	if p.UserID != caller.ID {
		return nil, errcode.New(errcode.KindNotFound, "payment not found")
	}
	return s.complete(ctx, p, paymentID)
}

// complete pending -> completed 与入账同事务；已完成的记录再次回调是静默的 no-op
func (s *paymentService) complete(ctx context.Context, p *model.Payment, paymentRef string) (*VerifyResult, error) {
	var (
		credited bool
		balance  model.Tokens
	)
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).Complete(ctx, p.ID, paymentRef, now)
		if err != nil {
			return err
		}
		ledger := s.ledger.WithTx(tx)
		if !ok {
			balance, err = ledger.Balance(ctx, p.UserID)
			return err
		}
		balance, err = ledger.Credit(ctx, p.UserID, model.WholeTokens(p.Tokens), model.ReasonPurchase, p.ID)
		credited = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	current, err := s.payments.GetByOrderRef(ctx, p.OrderRef)
	if err != nil {
		return nil, err
	}
	if !credited && current.Status != model.PaymentCompleted {
		return nil, errcode.New(errcode.KindIllegalTransition, "payment is %s", current.Status)
	}
	if credited {
		logger.Info("tokens purchased",
			zap.String("user", p.UserID),
			zap.String("order", p.OrderRef),
			zap.Int("tokens", p.Tokens),
		)
	}
	return &VerifyResult{Payment: current, Credited: credited, Balance: balance}, nil
}

// webhookEvent 网关 webhook 中用到的字段
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifyWebhook(s.cfg.WebhookSecret, body, signature) {
		logger.Warn("webhook signature mismatch")
		return errcode.ErrPaymentVerificationFailed
	}
	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return errcode.New(errcode.KindInvalidArgument, "malformed webhook payload")
	}
	entity := evt.Payload.Payment.Entity

	switch evt.Event {
	case "payment.captured", "order.paid":
		p, err := s.payments.GetByOrderRef(ctx, entity.OrderID)
		if err != nil {
			return notFound(err, "payment")
		}
		_, err = s.complete(ctx, p, entity.ID)
		// 已失败的订单收到迟到的成功通知：记录后交由人工处理
		if errcode.KindOf(err) == errcode.KindIllegalTransition {
			logger.Error("captured payment for non-pending order", zap.String("order", entity.OrderID), zap.Error(err))
			return nil
		}
		return err
	case "payment.failed":
		p, err := s.payments.GetByOrderRef(ctx, entity.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		_, err = s.payments.MarkFailed(ctx, p.ID)
		return err
	default:
		logger.Debug("ignored webhook event", zap.String("event", evt.Event))
		return nil
	}
}

func (s *paymentService) History(ctx context.Context, caller Caller, limit int) ([]*model.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.payments.ListByUser(ctx, caller.ID, limit)
}
