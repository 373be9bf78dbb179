package model

import "time"

// LedgerReason 余额变动原因
type LedgerReason string

const (
	ReasonUnlock          LedgerReason = "unlock"
	ReasonPurchase        LedgerReason = "purchase"
	ReasonBookingRejected LedgerReason = "booking_rejected"
	ReasonReconcileRefund LedgerReason = "reconcile_refund"
	ReasonAdjustment      LedgerReason = "adjustment"
)

// LedgerEntry 账本流水，delta 为负表示扣减
type LedgerEntry struct {
	ID           int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string       `json:"user_id" gorm:"type:varchar(36);index:idx_ledger_user;not null"`
	Delta        Tokens       `json:"delta" gorm:"column:delta_halves;not null"`
	BalanceAfter Tokens       `json:"balance_after" gorm:"column:balance_after_halves;not null"`
	Reason       LedgerReason `json:"reason" gorm:"type:varchar(32);index:idx_ledger_reason_ref;not null"`
	RefID        string       `json:"ref_id,omitempty" gorm:"type:varchar(64);index:idx_ledger_reason_ref"`
	CreatedAt    time.Time    `json:"created_at" gorm:"index:idx_ledger_user"`
}

func (LedgerEntry) TableName() string { return "token_ledger" }
