package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/internal/gateway"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// ImageClassifier 外部图片审核
type ImageClassifier interface {
	Classify(ctx context.Context, imageURL string) (gateway.Verdict, error)
}

// CreateItemInput 发布商品参数
type CreateItemInput struct {
	Title       string
	Description string
	Category    string
	Price       int64
	ImageURLs   []string
}

type ItemService interface {
	Create(ctx context.Context, caller Caller, in CreateItemInput) (*model.Item, error)
	Get(ctx context.Context, caller Caller, itemID string) (*model.Item, error)
	ListPublic(ctx context.Context, caller Caller, category string, page, pageSize int) ([]*model.Item, error)
	ListMine(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Item, error)
}

type itemService struct {
	items      repository.ItemRepository
	classifier ImageClassifier
}

// NewItemService classifier 为 nil 时所有商品直接上架
func NewItemService(items repository.ItemRepository, classifier ImageClassifier) ItemService {
	return &itemService{items: items, classifier: classifier}
}

func (s *itemService) Create(ctx context.Context, caller Caller, in CreateItemInput) (*model.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errcode.New(errcode.KindInvalidArgument, "title is required")
	}
	if in.Price < 0 {
		return nil, errcode.New(errcode.KindInvalidArgument, "price must not be negative")
	}

	item := &model.Item{
		ID:          uuid.New().String(),
		OwnerID:     caller.ID,
		Campus:      caller.Campus,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Price:       in.Price,
		ImageURLs:   model.StringList(in.ImageURLs),
		Available:   true,
		Status:      s.initialStatus(ctx, in.ImageURLs),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// initialStatus 任一图片被标记或分类服务不可用时进入人工审核队列
func (s *itemService) initialStatus(ctx context.Context, images []string) model.ModerationStatus {
	if s.classifier == nil {
		return model.ModerationActive
	}
	for _, url := range images {
		v, err := s.classifier.Classify(ctx, url)
		if err != nil {
			logger.Warn("classifier unavailable, item queued for review", zap.String("image", url), zap.Error(err))
			return model.ModerationPendingReview
		}
		if v.Flagged {
			logger.Info("image flagged by classifier", zap.String("image", url), zap.String("label", v.Label))
			return model.ModerationPendingReview
		}
	}
	return model.ModerationActive
}

// Get 下架或待审核的商品只对所有者和本校区管理员可见
func (s *itemService) Get(ctx context.Context, caller Caller, itemID string) (*model.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "item")
	}
	if item.Campus != caller.Campus {
		return nil, errcode.New(errcode.KindNotFound, "item not found")
	}
	if !item.Status.PubliclyListed() && item.OwnerID != caller.ID && !caller.IsAdmin {
		return nil, errcode.New(errcode.KindNotFound, "item not found")
	}
	return item, nil
}

func (s *itemService) ListPublic(ctx context.Context, caller Caller, category string, page, pageSize int) ([]*model.Item, error) {
	offset, limit := pageOf(page, pageSize)
	return s.items.ListPublic(ctx, repository.ItemFilter{
		Campus:   caller.Campus,
		Category: strings.ToLower(strings.TrimSpace(category)),
		Offset:   offset,
		Limit:    limit,
	})
}

func (s *itemService) ListMine(ctx context.Context, caller Caller, page, pageSize int) ([]*model.Item, error) {
	offset, limit := pageOf(page, pageSize)
	return s.items.ListByOwner(ctx, caller.ID, offset, limit)
}
