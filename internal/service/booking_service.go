package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/badge"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// RejectionRefund 预约被拒绝时退还给买家的代币
const RejectionRefund = model.HalfToken

// BookingRole 列表查询视角
type BookingRole string

const (
	RoleBuyer  BookingRole = "buyer"
	RoleSeller BookingRole = "seller"
)

// BookingService 预约状态机：pending -> accepted | rejected，买家可删除 pending/rejected
type BookingService interface {
	Create(ctx context.Context, caller Caller, itemID, message string) (*model.Booking, error)
	Accept(ctx context.Context, caller Caller, bookingID string) (*model.Booking, error)
	Reject(ctx context.Context, caller Caller, bookingID, note string) (*model.Booking, error)
	Delete(ctx context.Context, caller Caller, bookingID string) error
	ListMine(ctx context.Context, caller Caller, role BookingRole, page, pageSize int) ([]*model.Booking, error)
	UnreadCount(ctx context.Context, caller Caller) (int64, error)
	MarkRead(ctx context.Context, caller Caller, bookingID string) error
}

type bookingService struct {
	db         *gorm.DB
	bookings   repository.BookingRepository
	items      repository.ItemRepository
	ledger     *TokenLedger
	unread     *badge.UnreadCache
	dispatcher *Dispatcher
}

func NewBookingService(db *gorm.DB, bookings repository.BookingRepository, items repository.ItemRepository, ledger *TokenLedger, unread *badge.UnreadCache, dispatcher *Dispatcher) BookingService {
	if unread == nil {
		unread = badge.NewUnreadCache(nil, 0, bookings.CountUnread)
	}
	return &bookingService{db: db, bookings: bookings, items: items, ledger: ledger, unread: unread, dispatcher: dispatcher}
}

func (s *bookingService) Create(ctx context.Context, caller Caller, itemID, message string) (*model.Booking, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "item")
	}
	if item.Campus != caller.Campus || (!item.Status.PubliclyListed() && item.OwnerID != caller.ID) {
		return nil, errcode.New(errcode.KindNotFound, "item not found")
	}
	if item.OwnerID == caller.ID {
		return nil, errcode.New(errcode.KindIllegalTransition, "cannot book your own item")
	}
	if !item.Available || item.Status != model.ModerationActive {
		return nil, errcode.New(errcode.KindIllegalTransition, "item is not open for booking")
	}

	b := &model.Booking{
		ID:       uuid.New().String(),
		ItemID:   item.ID,
		BuyerID:  caller.ID,
		SellerID: item.OwnerID,
		Message:  strings.TrimSpace(message),
		Status:   model.BookingPending,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	s.unread.Invalidate(ctx, b.SellerID)
	s.dispatcher.Emit(Event{Type: EventBookingCreated, Recipient: b.SellerID, ActorID: caller.ID, ItemID: b.ItemID, BookingID: b.ID})
	return b, nil
}

// loadForSeller 只有商品所有者可以处理预约；其他人视为非法迁移
func (s *bookingService) loadForSeller(ctx context.Context, caller Caller, bookingID string) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "booking")
	}
	if b.SellerID != caller.ID {
		return nil, errcode.New(errcode.KindIllegalTransition, "only the seller can decide this booking")
	}
	return b, nil
}

func (s *bookingService) Accept(ctx context.Context, caller Caller, bookingID string) (*model.Booking, error) {
	b, err := s.loadForSeller(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.bookings.WithTx(tx).Transition(ctx, b.ID, model.BookingPending, model.BookingAccepted, map[string]any{"is_read": false})
		if err != nil {
			return err
		}
		if !ok {
			return errcode.New(errcode.KindIllegalTransition, "booking is no longer pending")
		}
		return s.items.WithTx(tx).MarkUnavailable(ctx, b.ItemID)
	})
	if err != nil {
		return nil, err
	}

	b.Status = model.BookingAccepted
	b.Read = false
	s.unread.Invalidate(ctx, b.BuyerID, b.SellerID)
	s.dispatcher.Emit(Event{Type: EventBookingAccepted, Recipient: b.BuyerID, ActorID: caller.ID, ItemID: b.ItemID, BookingID: b.ID})
	return b, nil
}

func (s *bookingService) Reject(ctx context.Context, caller Caller, bookingID, note string) (*model.Booking, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, errcode.New(errcode.KindInvalidArgument, "rejection note is required")
	}
	b, err := s.loadForSeller(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}

	// 拒绝与退款同事务提交：不会出现有拒绝无退款或重复退款
	var balance model.Tokens
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.bookings.WithTx(tx).Transition(ctx, b.ID, model.BookingPending, model.BookingRejected,
			map[string]any{"rejection_note": note, "is_read": false})
		if err != nil {
			return err
		}
		if !ok {
			return errcode.New(errcode.KindIllegalTransition, "booking is no longer pending")
		}
		balance, err = s.ledger.WithTx(tx).Refund(ctx, b.BuyerID, RejectionRefund, model.ReasonBookingRejected, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("booking rejected",
		zap.String("booking", b.ID),
		zap.String("buyer", b.BuyerID),
		zap.String("buyer_balance", balance.String()),
	)
	b.Status = model.BookingRejected
	b.RejectionNote = note
	b.Read = false
	s.unread.Invalidate(ctx, b.BuyerID, b.SellerID)
	s.dispatcher.Emit(Event{Type: EventBookingRejected, Recipient: b.BuyerID, ActorID: caller.ID, ItemID: b.ItemID, BookingID: b.ID})
	return b, nil
}

var deletableStatuses = []model.BookingStatus{model.BookingPending, model.BookingRejected}

// Delete 买家撤回：只允许 pending/rejected，记录直接删除，不退款
func (s *bookingService) Delete(ctx context.Context, caller Caller, bookingID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return notFound(err, "booking")
	}
	if b.BuyerID != caller.ID {
		return errcode.New(errcode.KindIllegalTransition, "only the buyer can delete this booking")
	}
	ok, err := s.bookings.DeleteByBuyer(ctx, b.ID, caller.ID, deletableStatuses)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.New(errcode.KindIllegalTransition, "booking can no longer be deleted")
	}
	s.unread.Invalidate(ctx, b.BuyerID, b.SellerID)
	return nil
}

func (s *bookingService) ListMine(ctx context.Context, caller Caller, role BookingRole, page, pageSize int) ([]*model.Booking, error) {
	offset, limit := pageOf(page, pageSize)
	if role == RoleSeller {
		return s.bookings.ListBySeller(ctx, caller.ID, offset, limit)
	}
	return s.bookings.ListByBuyer(ctx, caller.ID, offset, limit)
}

func (s *bookingService) UnreadCount(ctx context.Context, caller Caller) (int64, error) {
	return s.unread.Get(ctx, caller.ID)
}

// MarkRead 只有当前需要查看该预约的一方可以清除未读：pending 时是卖家，已处理后是买家
func (s *bookingService) MarkRead(ctx context.Context, caller Caller, bookingID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return notFound(err, "booking")
	}
	if b.BuyerID != caller.ID && b.SellerID != caller.ID {
		return errcode.New(errcode.KindNotFound, "booking not found")
	}
	recipient := b.BuyerID
	if b.Status == model.BookingPending {
		recipient = b.SellerID
	}
	if recipient != caller.ID || b.Read {
		return nil
	}
	if err := s.bookings.MarkRead(ctx, b.ID); err != nil {
		return err
	}
	s.unread.Invalidate(ctx, caller.ID)
	return nil
}
