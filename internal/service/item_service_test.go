package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubSh2004/CampusZon-sub000/internal/gateway"
	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
)

type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, imageURL string) (gateway.Verdict, error)
}

func (m *mockClassifier) Classify(ctx context.Context, imageURL string) (gateway.Verdict, error) {
	return m.ClassifyFunc(ctx, imageURL)
}

func TestItem_CreateUsesClassifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller@iitb.ac.in", 0)

	cls := &mockClassifier{ClassifyFunc: func(ctx context.Context, url string) (gateway.Verdict, error) {
		switch url {
		case "bad.jpg":
			return gateway.Verdict{Flagged: true, Label: "weapon"}, nil
		case "timeout.jpg":
			return gateway.Verdict{}, errors.New("classifier timeout")
		}
		return gateway.Verdict{}, nil
	}}
	svc := NewItemService(f.items, cls)

	cases := []struct {
		name   string
		images []string
		want   model.ModerationStatus
	}{
		{"no images", nil, model.ModerationActive},
		{"clean", []string{"ok.jpg"}, model.ModerationActive},
		{"flagged", []string{"ok.jpg", "bad.jpg"}, model.ModerationPendingReview},
		{"classifier down", []string{"timeout.jpg"}, model.ModerationPendingReview},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := svc.Create(ctx, seller, CreateItemInput{Title: "Desk lamp", Category: "Electronics", Price: 40000, ImageURLs: tc.images})
			require.NoError(t, err)
			assert.Equal(t, tc.want, item.Status)
			assert.Equal(t, "iitb.ac.in", item.Campus)
			assert.Equal(t, "electronics", item.Category)
			assert.True(t, item.Available)
		})
	}
}

func TestItem_CreateValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewItemService(f.items, nil)
	seller := f.user(t, "seller@iitb.ac.in", 0)

	_, err := svc.Create(context.Background(), seller, CreateItemInput{Title: "  "})
	assert.Equal(t, errcode.KindInvalidArgument, errcode.KindOf(err))
	_, err = svc.Create(context.Background(), seller, CreateItemInput{Title: "x", Price: -1})
	assert.Equal(t, errcode.KindInvalidArgument, errcode.KindOf(err))
}

func TestItem_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller := f.user(t, "seller@iitb.ac.in", 0)
	viewer := f.user(t, "viewer@iitb.ac.in", 0)
	admin := f.admin(t, "admin@iitb.ac.in")
	outsider := f.user(t, "o@iitd.ac.in", 0)
	svc := NewItemService(f.items, nil)

	item := f.item(t, seller)
	_, err := svc.Get(ctx, viewer, item.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, outsider, item.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)

	require.NoError(t, f.db.Model(&model.Item{}).Where("id = ?", item.ID).Update("status", model.ModerationRemoved).Error)
	_, err = svc.Get(ctx, viewer, item.ID)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
	_, err = svc.Get(ctx, seller, item.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, admin, item.ID)
	assert.NoError(t, err)

	list, err := svc.ListPublic(ctx, outsider, "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	mine, err := svc.ListMine(ctx, seller, 1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
