package model

import "time"

// ModerationStatus 商品审核状态
type ModerationStatus string

const (
	ModerationPendingReview ModerationStatus = "pending_review"
	ModerationActive        ModerationStatus = "active"
	ModerationWarned        ModerationStatus = "warned"
	ModerationRemoved       ModerationStatus = "removed"
)

// PubliclyListed 是否出现在公开列表中
func (s ModerationStatus) PubliclyListed() bool {
	return s == ModerationActive || s == ModerationWarned
}

// Item 商品；available 由预约状态机修改，审核字段只由审核状态机修改
type Item struct {
	ID              string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID         string           `json:"owner_id" gorm:"type:varchar(36);index;not null"`
	Campus          string           `json:"campus" gorm:"type:varchar(255);index:idx_item_campus_status;not null"`
	Title           string           `json:"title" gorm:"type:varchar(200);not null"`
	Description     string           `json:"description" gorm:"type:text"`
	Category        string           `json:"category" gorm:"type:varchar(50);index"`
	Price           int64            `json:"price" gorm:"not null;default:0"` // 最小货币单位
	ImageURLs       StringList       `json:"image_urls" gorm:"type:text"`
	Available       bool             `json:"available" gorm:"not null;default:true"`
	Status          ModerationStatus `json:"status" gorm:"type:varchar(20);index:idx_item_campus_status;not null;default:'active'"`
	ReportCount     int              `json:"report_count" gorm:"not null;default:0"`
	ModerationNotes string           `json:"moderation_notes,omitempty" gorm:"type:text"`
	ModeratedBy     *string          `json:"moderated_by,omitempty" gorm:"type:varchar(36)"`
	ModeratedAt     *time.Time       `json:"moderated_at,omitempty"`
	Reports         []Report         `json:"reports,omitempty" gorm:"foreignKey:ItemID"`
	CreatedAt       time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (Item) TableName() string { return "items" }
