package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// UnlockCost 每次首次解锁消耗的代币
const UnlockCost = model.OneToken

// UnlockResult 解锁结果；Charged 为 false 表示此前已解锁、本次未扣费
type UnlockResult struct {
	ItemID  string              `json:"item_id"`
	Charged bool                `json:"charged"`
	Balance model.Tokens        `json:"balance"`
	Seller  model.SellerContact `json:"seller"`
}

// UnlockStatus 只读查询结果
type UnlockStatus struct {
	ItemID           string       `json:"item_id"`
	Unlocked         bool         `json:"unlocked"`
	Balance          model.Tokens `json:"balance"`
	SkipConfirmation bool         `json:"skip_confirmation"`
}

// UnlockService 卖家联系方式解锁
type UnlockService interface {
	Unlock(ctx context.Context, caller Caller, itemID string) (*UnlockResult, error)
	CheckStatus(ctx context.Context, caller Caller, itemID string) (*UnlockStatus, error)
	ListMine(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Unlock, error)
}

type unlockService struct {
	db         *gorm.DB
	unlocks    repository.UnlockRepository
	items      repository.ItemRepository
	users      repository.UserRepository
	ledger     *TokenLedger
	dispatcher *Dispatcher
}

func NewUnlockService(db *gorm.DB, unlocks repository.UnlockRepository, items repository.ItemRepository, users repository.UserRepository, ledger *TokenLedger, dispatcher *Dispatcher) UnlockService {
	return &unlockService{db: db, unlocks: unlocks, items: items, users: users, ledger: ledger, dispatcher: dispatcher}
}

// visibleItem 同校区且公开展示的商品才可解锁；待审核和已下架的只对卖家本人可见
func (s *unlockService) visibleItem(ctx context.Context, caller Caller, itemID string) (*model.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "item")
	}
	if item.Campus != caller.Campus || (!item.Status.PubliclyListed() && item.OwnerID != caller.ID) {
		return nil, errcode.New(errcode.KindNotFound, "item not found")
	}
	return item, nil
}

func (s *unlockService) Unlock(ctx context.Context, caller Caller, itemID string) (*UnlockResult, error) {
	item, err := s.visibleItem(ctx, caller, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == caller.ID {
		return nil, errcode.ErrSelfUnlockNotAllowed
	}

	seller, err := s.users.GetByID(ctx, item.OwnerID)
	if err != nil {
		return nil, notFound(err, "seller")
	}

	// 已解锁：直接返回，不扣费
	if existing, err := s.unlocks.Get(ctx, caller.ID, itemID); err == nil && existing.Unlocked {
		bal, err := s.ledger.Balance(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		return &UnlockResult{ItemID: itemID, Balance: bal, Seller: seller.Contact()}, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 占位与扣费在同一事务：扣费失败时占位一起回滚；
	// 并发的重复请求在唯一键上串行化，后到者 Claim 返回 false，不会再次扣费
	var (
		charged bool
		balance model.Tokens
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.unlocks.WithTx(tx).Claim(ctx, caller.ID, itemID)
		if err != nil {
			return err
		}
		ledger := s.ledger.WithTx(tx)
		if !claimed {
			balance, err = ledger.Balance(ctx, caller.ID)
			return err
		}
		balance, err = ledger.Debit(ctx, caller.ID, UnlockCost, model.ReasonUnlock, itemID)
		if err != nil {
			return err
		}
		charged = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if charged {
		logger.Info("item unlocked",
			zap.String("user", caller.ID),
			zap.String("item", itemID),
			zap.String("balance", balance.String()),
		)
		s.dispatcher.Emit(Event{Type: EventItemUnlocked, Recipient: item.OwnerID, ActorID: caller.ID, ItemID: itemID})
	}
	return &UnlockResult{ItemID: itemID, Charged: charged, Balance: balance, Seller: seller.Contact()}, nil
}

func (s *unlockService) CheckStatus(ctx context.Context, caller Caller, itemID string) (*UnlockStatus, error) {
	if _, err := s.visibleItem(ctx, caller, itemID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	status := &UnlockStatus{ItemID: itemID, Balance: user.TokenBalance, SkipConfirmation: user.SkipUnlockConfirmation}

	u, err := s.unlocks.Get(ctx, caller.ID, itemID)
	switch {
	case err == nil:
		status.Unlocked = u.Unlocked
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return status, nil
}

func (s *unlockService) ListMine(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Unlock, error) {
	offset, limit := pageOf(page, pageSize)
	return s.unlocks.ListByUser(ctx, caller.ID, offset, limit)
}
