package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

// PaymentRepository 代币购买记录仓储接口
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository

	// Create 创建购买记录
	Create(ctx context.Context, p *model.Payment) error

	// GetByOrderRef 根据网关订单号查询
	GetByOrderRef(ctx context.Context, orderRef string) (*model.Payment, error)

	// ListByUser 根据用户ID查询购买记录
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error)

	// Complete pending -> completed；返回是否由本次调用完成
	Complete(ctx context.Context, id, paymentRef string, at time.Time) (bool, error)

	// MarkFailed pending -> failed
	MarkFailed(ctx context.Context, id string) (bool, error)
}

type paymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepository{db: db} }

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository { return &paymentRepository{db: tx} }

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) GetByOrderRef(ctx context.Context, orderRef string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payment, error) {
	var res []*model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *paymentRepository) Complete(ctx context.Context, id, paymentRef string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentPending).
		Updates(map[string]any{"status": model.PaymentCompleted, "payment_ref": paymentRef, "completed_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentPending).
		Update("status", model.PaymentFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
