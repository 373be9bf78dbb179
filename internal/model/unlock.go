package model

import "time"

// UnlockTier 解锁档位，目前只有一个付费档
type UnlockTier string

const UnlockTierStandard UnlockTier = "standard"

// Unlock 用户对某商品的卖家联系方式解锁记录
// 复合唯一键 idx_unlock_pair = (user_id, item_id)，保证每对至多一条
type Unlock struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string     `json:"user_id" gorm:"type:varchar(36);not null;index:idx_unlock_pair,unique"`
	ItemID       string     `json:"item_id" gorm:"type:varchar(36);not null;index:idx_unlock_pair,unique;index"`
	Tier         UnlockTier `json:"tier" gorm:"type:varchar(20);not null;default:'standard'"`
	Unlocked     bool       `json:"unlocked" gorm:"not null;default:false"`
	MessageCount int        `json:"message_count" gorm:"not null;default:0"` // 预留给分档位的消息次数
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Unlock) TableName() string { return "unlocks" }
