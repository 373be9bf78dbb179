package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

type BookingRepository interface {
	WithTx(tx *gorm.DB) BookingRepository
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)

	// Transition 仅当当前状态为 from 时更新为 to；返回是否由本次调用完成了迁移
	Transition(ctx context.Context, id string, from, to model.BookingStatus, extra map[string]any) (bool, error)

	// DeleteByBuyer 仅删除属于 buyer 且状态在 statuses 中的预约
	DeleteByBuyer(ctx context.Context, id, buyerID string, statuses []model.BookingStatus) (bool, error)

	ListByBuyer(ctx context.Context, buyerID string, offset, limit int) ([]*model.Booking, error)
	ListBySeller(ctx context.Context, sellerID string, offset, limit int) ([]*model.Booking, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
}

type bookingRepository struct{ db *gorm.DB }

func NewBookingRepository(db *gorm.DB) BookingRepository { return &bookingRepository{db: db} }

func (r *bookingRepository) WithTx(tx *gorm.DB) BookingRepository { return &bookingRepository{db: tx} }

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Transition(ctx context.Context, id string, from, to model.BookingStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	// 条件更新：并发的 accept/reject 只有一个能命中 status = from
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookingRepository) DeleteByBuyer(ctx context.Context, id, buyerID string, statuses []model.BookingStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND buyer_id = ? AND status IN ?", id, buyerID, statuses).
		Delete(&model.Booking{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookingRepository) ListByBuyer(ctx context.Context, buyerID string, offset, limit int) ([]*model.Booking, error) {
	var res []*model.Booking
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *bookingRepository) ListBySeller(ctx context.Context, sellerID string, offset, limit int) ([]*model.Booking, error) {
	var res []*model.Booking
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

// CountUnread 卖家侧：未读的待处理预约；买家侧：未读的已处理结果
func (r *bookingRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("is_read = ?", false).
		Where(r.db.
			Where("seller_id = ? AND status = ?", userID, model.BookingPending).
			Or("buyer_id = ? AND status IN ?", userID, []model.BookingStatus{model.BookingAccepted, model.BookingRejected})).
		Count(&cnt).Error
	return cnt, err
}

func (r *bookingRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}
