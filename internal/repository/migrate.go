package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

// Migrate 初始化数据库表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Item{},
		&model.Report{},
		&model.Unlock{},
		&model.Booking{},
		&model.Payment{},
		&model.LedgerEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}
