package model

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking 买家对某商品的预约请求
type Booking struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ItemID        string        `json:"item_id" gorm:"type:varchar(36);index;not null"`
	BuyerID       string        `json:"buyer_id" gorm:"type:varchar(36);index:idx_booking_buyer;not null"`
	SellerID      string        `json:"seller_id" gorm:"type:varchar(36);index:idx_booking_seller;not null"`
	Message       string        `json:"message" gorm:"type:text"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);index:idx_booking_buyer;index:idx_booking_seller;not null;default:'pending'"`
	RejectionNote string        `json:"rejection_note,omitempty" gorm:"type:text"`
	Read          bool          `json:"read" gorm:"column:is_read;not null;default:false"`
	Item          *Item         `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }
