package model

import "time"

// Report 用户举报，只作为管理员审核的参考输入
type Report struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ItemID      string     `json:"item_id" gorm:"type:varchar(36);index:idx_report_item;index:idx_report_dup;not null"`
	ReporterID  string     `json:"reporter_id" gorm:"type:varchar(36);index:idx_report_dup;not null"`
	Reason      string     `json:"reason" gorm:"type:varchar(50);index:idx_report_dup;not null"`
	Description string     `json:"description" gorm:"type:text"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" gorm:"index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

func (Report) TableName() string { return "item_reports" }
