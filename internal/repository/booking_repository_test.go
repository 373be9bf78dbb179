package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

func seedItem(t *testing.T, repo ItemRepository, owner *model.User) *model.Item {
	t.Helper()
	item := &model.Item{ID: uuid.NewString(), OwnerID: owner.ID, Campus: owner.Campus, Title: "cycle", Available: true, Status: model.ModerationActive}
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestBooking_TransitionOnlyFromExpectedState(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seller := seedUser(t, db, "s@iitb.ac.in", 0)
	item := seedItem(t, NewItemRepository(db), seller)
	repo := NewBookingRepository(db)

	b := &model.Booking{ID: "b1", ItemID: item.ID, BuyerID: "buyer", SellerID: seller.ID, Status: model.BookingPending}
	require.NoError(t, repo.Create(ctx, b))

	ok, err := repo.Transition(ctx, "b1", model.BookingPending, model.BookingAccepted, map[string]any{"is_read": false})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transition(ctx, "b1", model.BookingPending, model.BookingRejected, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingAccepted, got.Status)
}

func TestBooking_DeleteByBuyerHonoursStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seller := seedUser(t, db, "s@iitb.ac.in", 0)
	item := seedItem(t, NewItemRepository(db), seller)
	repo := NewBookingRepository(db)
	deletable := []model.BookingStatus{model.BookingPending, model.BookingRejected}

	require.NoError(t, repo.Create(ctx, &model.Booking{ID: "acc", ItemID: item.ID, BuyerID: "buyer", SellerID: seller.ID, Status: model.BookingAccepted}))
	require.NoError(t, repo.Create(ctx, &model.Booking{ID: "rej", ItemID: item.ID, BuyerID: "buyer", SellerID: seller.ID, Status: model.BookingRejected}))

	ok, err := repo.DeleteByBuyer(ctx, "acc", "buyer", deletable)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteByBuyer(ctx, "rej", "someone-else", deletable)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteByBuyer(ctx, "rej", "buyer", deletable)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBooking_CountUnread(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seller := seedUser(t, db, "s@iitb.ac.in", 0)
	item := seedItem(t, NewItemRepository(db), seller)
	repo := NewBookingRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Booking{ID: "p1", ItemID: item.ID, BuyerID: "buyer", SellerID: seller.ID, Status: model.BookingPending}))
	require.NoError(t, repo.Create(ctx, &model.Booking{ID: "p2", ItemID: item.ID, BuyerID: "buyer2", SellerID: seller.ID, Status: model.BookingPending}))
	require.NoError(t, repo.Create(ctx, &model.Booking{ID: "r1", ItemID: item.ID, BuyerID: "buyer", SellerID: seller.ID, Status: model.BookingRejected}))

	n, err := repo.CountUnread(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountUnread(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.MarkRead(ctx, "p1"))
	n, err = repo.CountUnread(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
