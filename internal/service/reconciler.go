package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// UnlockReconciler 周期扫描“已扣费但未解锁”的流水并补完解锁。
// 正常路径下扣费与解锁同事务提交，这里只处理异常中断留下的记录。
type UnlockReconciler struct {
	db           *gorm.DB
	unlocks      repository.UnlockRepository
	batchSize    int
	pollInterval time.Duration
	grace        time.Duration
}

func NewUnlockReconciler(db *gorm.DB, unlocks repository.UnlockRepository, batchSize int, pollInterval time.Duration) *UnlockReconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &UnlockReconciler{db: db, unlocks: unlocks, batchSize: batchSize, pollInterval: pollInterval, grace: 30 * time.Second}
}

// Start 启动轮询；返回停止函数。
func (w *UnlockReconciler) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.loop(stop)
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *UnlockReconciler) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				logger.Error("unlock reconcile failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 处理一批孤立扣费，返回补完的解锁数
func (w *UnlockReconciler) ProcessOnce(ctx context.Context) (int, error) {
	orphans, err := w.unlocks.FindOrphanDebits(ctx, time.Now().UTC().Add(-w.grace), w.batchSize)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, o := range orphans {
		var claimed bool
		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			claimed, err = w.unlocks.WithTx(tx).Claim(ctx, o.UserID, o.ItemID)
			return err
		})
		if err != nil {
			logger.Error("unlock reconcile claim failed",
				zap.Int64("ledger_id", o.LedgerID),
				zap.String("user", o.UserID),
				zap.String("item", o.ItemID),
				zap.Error(err),
			)
			continue
		}
		if claimed {
			fixed++
			logger.Warn("completed unlock for orphaned debit",
				zap.String("invariant", "unlock_debit_without_record"),
				zap.Int64("ledger_id", o.LedgerID),
				zap.String("user", o.UserID),
				zap.String("item", o.ItemID),
			)
		}
	}
	return fixed, nil
}
