package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

// OrphanDebit 已扣费但未完成解锁的流水
type OrphanDebit struct {
	LedgerID int64
	UserID   string
	ItemID   string
	At       time.Time
}

type UnlockRepository interface {
	WithTx(tx *gorm.DB) UnlockRepository

	// Claim 为 (user, item) 占位并置为已解锁。
	// 返回 false 表示该对已经处于解锁状态，调用方不得再次扣费。
	Claim(ctx context.Context, userID, itemID string) (bool, error)

	Get(ctx context.Context, userID, itemID string) (*model.Unlock, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Unlock, error)

	// FindOrphanDebits 找出 unlock 扣费流水中没有对应已解锁记录的条目
	FindOrphanDebits(ctx context.Context, olderThan time.Time, limit int) ([]OrphanDebit, error)
}

type unlockRepository struct{ db *gorm.DB }

func NewUnlockRepository(db *gorm.DB) UnlockRepository { return &unlockRepository{db: db} }

func (r *unlockRepository) WithTx(tx *gorm.DB) UnlockRepository { return &unlockRepository{db: tx} }

func (r *unlockRepository) Claim(ctx context.Context, userID, itemID string) (bool, error) {
	u := &model.Unlock{
		ID:       uuid.New().String(),
		UserID:   userID,
		ItemID:   itemID,
		Tier:     model.UnlockTierStandard,
		Unlocked: true,
	}
	// 幂等：复合唯一键冲突时什么都不做
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	// 已存在记录：只有 false -> true 的翻转算作本次占位
	flip := r.db.WithContext(ctx).
		Model(&model.Unlock{}).
		Where("user_id = ? AND item_id = ? AND unlocked = ?", userID, itemID, false).
		Update("unlocked", true)
	if flip.Error != nil {
		return false, flip.Error
	}
	return flip.RowsAffected == 1, nil
}

func (r *unlockRepository) Get(ctx context.Context, userID, itemID string) (*model.Unlock, error) {
	var u model.Unlock
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *unlockRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Unlock, error) {
	var res []*model.Unlock
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND unlocked = ?", userID, true).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *unlockRepository) FindOrphanDebits(ctx context.Context, olderThan time.Time, limit int) ([]OrphanDebit, error) {
	var rows []OrphanDebit
	err := r.db.WithContext(ctx).Raw(`
		SELECT l.id AS ledger_id, l.user_id AS user_id, l.ref_id AS item_id, l.created_at AS at
		FROM token_ledger l
		LEFT JOIN unlocks u
		  ON u.user_id = l.user_id AND u.item_id = l.ref_id AND u.unlocked = ?
		WHERE l.reason = ? AND l.delta_halves < 0 AND u.id IS NULL AND l.created_at < ?
		ORDER BY l.id
		LIMIT ?
	`, true, model.ReasonUnlock, olderThan, limit).Scan(&rows).Error
	return rows, err
}
