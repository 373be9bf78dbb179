package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

// ItemFilter 公开列表查询条件
type ItemFilter struct {
	Campus   string
	Category string
	Offset   int
	Limit    int
}

// ModerationUpdate 审核结果
type ModerationUpdate struct {
	Status      model.ModerationStatus
	Notes       string
	ModeratorID string
	At          time.Time
	ResolveAll  bool // keep 时清空举报
	From        []model.ModerationStatus
}

type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	ListPublic(ctx context.Context, f ItemFilter) ([]*model.Item, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Item, error)
	ListFlagged(ctx context.Context, campus string, offset, limit int) ([]*model.Item, error)

	// MarkUnavailable 将 available 置为 false
	MarkUnavailable(ctx context.Context, id string) error

	AddReport(ctx context.Context, report *model.Report) error
	FindRecentReport(ctx context.Context, itemID, reporterID, reason string, since time.Time) (*model.Report, error)
	OpenReports(ctx context.Context, itemID string) ([]model.Report, error)

	// ApplyModeration 仅当当前状态属于 u.From 时生效；返回是否命中
	ApplyModeration(ctx context.Context, id string, u ModerationUpdate) (bool, error)
}

type itemRepository struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepository{db: db} }

func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository { return &itemRepository{db: tx} }

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListPublic 只返回本校区 active/warned 的商品，removed 与待审核的永不出现
func (r *itemRepository) ListPublic(ctx context.Context, f ItemFilter) ([]*model.Item, error) {
	q := r.db.WithContext(ctx).
		Where("campus = ? AND status IN ?", f.Campus, []model.ModerationStatus{model.ModerationActive, model.ModerationWarned})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var res []*model.Item
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&res).Error
	return res, err
}

func (r *itemRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Item, error) {
	var res []*model.Item
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

// ListFlagged 管理员待处理队列：有未处理举报或处于待审核状态
func (r *itemRepository) ListFlagged(ctx context.Context, campus string, offset, limit int) ([]*model.Item, error) {
	var res []*model.Item
	err := r.db.WithContext(ctx).
		Where("campus = ? AND status <> ?", campus, model.ModerationRemoved).
		Where(r.db.Where("report_count > 0").Or("status = ?", model.ModerationPendingReview)).
		Order("report_count DESC, created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *itemRepository) MarkUnavailable(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		Update("available", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddReport 追加举报并递增计数
func (r *itemRepository) AddReport(ctx context.Context, report *model.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", report.ItemID).
		UpdateColumn("report_count", gorm.Expr("report_count + 1")).Error
}

func (r *itemRepository) FindRecentReport(ctx context.Context, itemID, reporterID, reason string, since time.Time) (*model.Report, error) {
	var rep model.Report
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND reporter_id = ? AND reason = ? AND resolved_at IS NULL AND created_at >= ?", itemID, reporterID, reason, since).
		Order("created_at DESC").
		First(&rep).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *itemRepository) OpenReports(ctx context.Context, itemID string) ([]model.Report, error) {
	var res []model.Report
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND resolved_at IS NULL", itemID).
		Order("created_at ASC").
		Find(&res).Error
	return res, err
}

func (r *itemRepository) ApplyModeration(ctx context.Context, id string, u ModerationUpdate) (bool, error) {
	updates := map[string]any{
		"status":           u.Status,
		"moderation_notes": u.Notes,
		"moderated_by":     u.ModeratorID,
		"moderated_at":     u.At,
	}
	if u.ResolveAll {
		updates["report_count"] = 0
	}
	q := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id)
	if len(u.From) > 0 {
		q = q.Where("status IN ?", u.From)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if !u.ResolveAll {
		return true, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Report{}).
		Where("item_id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", u.At).Error
	return err == nil, err
}
