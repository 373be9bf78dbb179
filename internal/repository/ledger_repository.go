package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

// LedgerRepository 代币账本。余额只允许通过 Debit/Credit 修改，
// 调用方须在事务中使用（WithTx），保证余额与流水一起提交。
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository

	// Debit 原子扣减：余额不足时不修改任何数据并返回 ErrInsufficientBalance
	Debit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error)

	// Credit 原子增加
	Credit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error)

	Balance(ctx context.Context, userID string) (model.Tokens, error)
	HasEntry(ctx context.Context, userID string, reason model.LedgerReason, refID string) (bool, error)
	ListEntries(ctx context.Context, userID string, offset, limit int) ([]*model.LedgerEntry, error)
}

type ledgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepository{db: db} }

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository { return &ledgerRepository{db: tx} }

func (r *ledgerRepository) Debit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	// 单条带条件的 UPDATE 完成比较与扣减，不存在先读后写的竞态
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND token_halves >= ?", userID, amount).
		UpdateColumn("token_halves", gorm.Expr("token_halves - ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("debit %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Balance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}
	return r.record(ctx, userID, -amount, reason, refID)
}

func (r *ledgerRepository) Credit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_halves", gorm.Expr("token_halves + ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("credit %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.record(ctx, userID, amount, reason, refID)
}

// record 在同一事务内读取更新后的余额并写入流水
func (r *ledgerRepository) record(ctx context.Context, userID string, delta model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	balance, err := r.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	entry := &model.LedgerEntry{UserID: userID, Delta: delta, BalanceAfter: balance, Reason: reason, RefID: refID}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, fmt.Errorf("write ledger entry: %w", err)
	}
	return balance, nil
}

func (r *ledgerRepository) Balance(ctx context.Context, userID string) (model.Tokens, error) {
	var balances []model.Tokens
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("token_halves", &balances).Error
	if err != nil {
		return 0, err
	}
	if len(balances) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return balances[0], nil
}

func (r *ledgerRepository) HasEntry(ctx context.Context, userID string, reason model.LedgerReason, refID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("user_id = ? AND reason = ? AND ref_id = ?", userID, reason, refID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *ledgerRepository) ListEntries(ctx context.Context, userID string, offset, limit int) ([]*model.LedgerEntry, error) {
	var res []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}
