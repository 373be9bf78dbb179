package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
)

// TokenLedger 代币账本服务。所有余额变动都经过仓储层的原子原语，
// 需要与其他写操作一起提交时使用 WithTx 绑定到同一事务。
type TokenLedger struct {
	repo repository.LedgerRepository
}

func NewTokenLedger(repo repository.LedgerRepository) *TokenLedger {
	return &TokenLedger{repo: repo}
}

// WithTx 返回绑定到事务的账本
func (l *TokenLedger) WithTx(tx *gorm.DB) *TokenLedger {
	return &TokenLedger{repo: l.repo.WithTx(tx)}
}

// Debit 余额不足时返回 INSUFFICIENT_TOKENS，不产生任何变动
func (l *TokenLedger) Debit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	bal, err := l.repo.Debit(ctx, userID, amount, reason, refID)
	if err != nil {
		return 0, ledgerError(err)
	}
	return bal, nil
}

func (l *TokenLedger) Credit(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	bal, err := l.repo.Credit(ctx, userID, amount, reason, refID)
	if err != nil {
		return 0, ledgerError(err)
	}
	return bal, nil
}

// Refund 与 Credit 相同，单独保留以便审计区分
func (l *TokenLedger) Refund(ctx context.Context, userID string, amount model.Tokens, reason model.LedgerReason, refID string) (model.Tokens, error) {
	return l.Credit(ctx, userID, amount, reason, refID)
}

func (l *TokenLedger) Balance(ctx context.Context, userID string) (model.Tokens, error) {
	bal, err := l.repo.Balance(ctx, userID)
	if err != nil {
		return 0, ledgerError(err)
	}
	return bal, nil
}

func (l *TokenLedger) Entries(ctx context.Context, userID string, page, pageSize int) ([]*model.LedgerEntry, error) {
	offset, limit := pageOf(page, pageSize)
	return l.repo.ListEntries(ctx, userID, offset, limit)
}
