package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment 代币购买记录；completed 的记录恰好对应一次入账
type Payment struct {
	ID          string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string        `json:"user_id" gorm:"type:varchar(36);index;not null"`
	OrderRef    string        `json:"order_ref" gorm:"type:varchar(64);uniqueIndex;not null"` // 网关订单号
	PaymentRef  string        `json:"payment_ref,omitempty" gorm:"type:varchar(64)"`
	Amount      int64         `json:"amount" gorm:"not null"` // 最小货币单位
	Currency    string        `json:"currency" gorm:"type:varchar(8);not null"`
	Status      PaymentStatus `json:"status" gorm:"type:varchar(16);index;not null;default:'pending'"`
	Tokens      int           `json:"tokens" gorm:"not null"`
	PackageID   string        `json:"package_id" gorm:"type:varchar(32);not null"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
