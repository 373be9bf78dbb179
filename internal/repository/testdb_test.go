package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

func openTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// 单连接：并发用例在 sqlite 上串行执行，真实竞争见 integration 用例
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(tb testing.TB, db *gorm.DB, email string, balance model.Tokens) *model.User {
	tb.Helper()
	u := &model.User{ID: uuid.NewString(), Name: email, Email: email, Password: "p", Campus: model.CampusOf(email)}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	if balance > 0 {
		if err := db.Model(&model.User{}).Where("id = ?", u.ID).Update("token_halves", balance).Error; err != nil {
			tb.Fatalf("seed balance: %v", err)
		}
		u.TokenBalance = balance
	}
	return u
}
