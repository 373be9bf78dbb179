package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// ModerationAction 管理员审核动作
type ModerationAction string

const (
	ActionKeep   ModerationAction = "keep"
	ActionWarn   ModerationAction = "warn"
	ActionRemove ModerationAction = "remove"
)

// moderationRule 动作对应的目标状态与允许的源状态
type moderationRule struct {
	to   model.ModerationStatus
	from []model.ModerationStatus
}

var moderationRules = map[ModerationAction]moderationRule{
	ActionKeep: {to: model.ModerationActive, from: []model.ModerationStatus{
		model.ModerationPendingReview, model.ModerationActive, model.ModerationWarned, model.ModerationRemoved,
	}},
	ActionWarn: {to: model.ModerationWarned, from: []model.ModerationStatus{
		model.ModerationPendingReview, model.ModerationActive, model.ModerationWarned,
	}},
	ActionRemove: {to: model.ModerationRemoved, from: []model.ModerationStatus{
		model.ModerationPendingReview, model.ModerationActive, model.ModerationWarned,
	}},
}

// ReportResult Duplicate 为 true 时返回的是窗口期内已存在的举报
type ReportResult struct {
	Report    *model.Report `json:"report"`
	Duplicate bool          `json:"duplicate"`
}

// ModerationService 举报与管理员审核；举报只作为参考，从不自动改变商品状态
type ModerationService interface {
	Report(ctx context.Context, caller Caller, itemID, reason, description string) (*ReportResult, error)
	Moderate(ctx context.Context, caller Caller, itemID string, action ModerationAction, notes string) (*model.Item, error)
	ListFlagged(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Item, error)
}

type moderationService struct {
	db              *gorm.DB
	items           repository.ItemRepository
	duplicateWindow time.Duration
	dispatcher      *Dispatcher
	now             func() time.Time
}

func NewModerationService(db *gorm.DB, items repository.ItemRepository, duplicateWindow time.Duration, dispatcher *Dispatcher) ModerationService {
	return &moderationService{db: db, items: items, duplicateWindow: duplicateWindow, dispatcher: dispatcher, now: func() time.Time { return time.Now().UTC() }}
}

func (s *moderationService) Report(ctx context.Context, caller Caller, itemID, reason, description string) (*ReportResult, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "item")
	}
	if item.Campus != caller.Campus || item.Status == model.ModerationRemoved {
		return nil, errcode.New(errcode.KindNotFound, "item not found")
	}
	if item.OwnerID == caller.ID {
		return nil, errcode.New(errcode.KindForbidden, "cannot report your own item")
	}

	now := s.now()
	if s.duplicateWindow > 0 {
		existing, err := s.items.FindRecentReport(ctx, itemID, caller.ID, reason, now.Add(-s.duplicateWindow))
		if err == nil {
			return &ReportResult{Report: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	report := &model.Report{
		ID:          uuid.New().String(),
		ItemID:      itemID,
		ReporterID:  caller.ID,
		Reason:      reason,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.items.WithTx(tx).AddReport(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Emit(Event{Type: EventItemReported, Recipient: item.OwnerID, ActorID: caller.ID, ItemID: itemID})
	return &ReportResult{Report: report}, nil
}

func (s *moderationService) Moderate(ctx context.Context, caller Caller, itemID string, action ModerationAction, notes string) (*model.Item, error) {
	if !caller.IsAdmin {
		return nil, errcode.New(errcode.KindForbidden, "admin only")
	}
	rule, ok := moderationRules[action]
	if !ok {
		return nil, errcode.New(errcode.KindInvalidArgument, "unknown moderation action %q", action)
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "item")
	}
	// 跨校区审核在这里被结构性拒绝
	if caller.Campus == "" || item.Campus != caller.Campus {
		return nil, errcode.New(errcode.KindForbidden, "item is outside your campus")
	}

	update := repository.ModerationUpdate{
		Status:      rule.to,
		Notes:       strings.TrimSpace(notes),
		ModeratorID: caller.ID,
		At:          s.now(),
		ResolveAll:  action == ActionKeep,
		From:        rule.from,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := s.items.WithTx(tx).ApplyModeration(ctx, itemID, update)
		if err != nil {
			return err
		}
		if !applied {
			return errcode.New(errcode.KindIllegalTransition, "cannot %s an item in status %s", action, item.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("item moderated",
		zap.String("item", itemID),
		zap.String("admin", caller.ID),
		zap.String("action", string(action)),
		zap.String("from", string(item.Status)),
		zap.String("to", string(rule.to)),
	)
	return s.items.GetByID(ctx, itemID)
}

func (s *moderationService) ListFlagged(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Item, error) {
	if !caller.IsAdmin {
		return nil, errcode.New(errcode.KindForbidden, "admin only")
	}
	offset, limit := pageOf(page, pageSize)
	return s.items.ListFlagged(ctx, caller.Campus, offset, limit)
}
