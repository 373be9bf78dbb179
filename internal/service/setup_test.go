package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
	"github.com/SubSh2004/CampusZon-sub000/internal/repository"
)

type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	items    repository.ItemRepository
	unlocks  repository.UnlockRepository
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	ledger   *TokenLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite 内存库只能单连接，并发用例在这里是串行执行的；
	// 真正的并发竞争由 integration 构建标签下的 postgres 用例覆盖
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))
	return newFixtureOn(db)
}

func newFixtureOn(db *gorm.DB) *fixture {
	return &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		items:    repository.NewItemRepository(db),
		unlocks:  repository.NewUnlockRepository(db),
		bookings: repository.NewBookingRepository(db),
		payments: repository.NewPaymentRepository(db),
		ledger:   NewTokenLedger(repository.NewLedgerRepository(db)),
	}
}

// user 创建用户并直接设置初始余额
func (f *fixture) user(t *testing.T, email string, balance model.Tokens) Caller {
	t.Helper()
	u := &model.User{
		ID:       uuid.NewString(),
		Name:     email,
		Email:    email,
		Password: "x",
		Phone:    "98765" + email[:1],
		Hostel:   "H4",
		Campus:   model.CampusOf(email),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	if balance > 0 {
		require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", u.ID).Update("token_halves", balance).Error)
	}
	return Caller{ID: u.ID, Email: u.Email, Campus: u.Campus}
}

func (f *fixture) admin(t *testing.T, email string) Caller {
	t.Helper()
	c := f.user(t, email, 0)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", c.ID).Update("is_admin", true).Error)
	c.IsAdmin = true
	return c
}

func (f *fixture) item(t *testing.T, owner Caller) *model.Item {
	t.Helper()
	it := &model.Item{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Campus:    owner.Campus,
		Title:     "Hero cycle",
		Category:  "cycles",
		Price:     250000,
		Available: true,
		Status:    model.ModerationActive,
	}
	require.NoError(t, f.items.Create(context.Background(), it))
	return it
}

func (f *fixture) balance(t *testing.T, c Caller) model.Tokens {
	t.Helper()
	bal, err := f.ledger.Balance(context.Background(), c.ID)
	require.NoError(t, err)
	return bal
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if evt, ok := v.(Event); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]EventType, len(p.events))
	for i, e := range p.events {
		res[i] = e.Type
	}
	return res
}
