package model

import (
	"strings"
	"time"
)

// User 用户；余额只能通过账本原语修改
type User struct {
	ID                     string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name                   string    `json:"name" gorm:"type:varchar(100);not null"`
	Email                  string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password               string    `json:"-" gorm:"type:varchar(255);not null"`
	Phone                  string    `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Hostel                 string    `json:"hostel,omitempty" gorm:"type:varchar(100)"`
	Campus                 string    `json:"campus" gorm:"type:varchar(255);index;not null"`
	TokenBalance           Tokens    `json:"token_balance" gorm:"column:token_halves;not null;default:0;check:chk_users_token_halves,token_halves >= 0"`
	IsAdmin                bool      `json:"is_admin" gorm:"not null;default:false"`
	SkipUnlockConfirmation bool      `json:"skip_unlock_confirmation" gorm:"not null;default:false"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// CampusOf 取邮箱域名作为校园范围
func CampusOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// SellerContact 解锁后返回的卖家联系方式
type SellerContact struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Hostel string `json:"hostel"`
}

func (u *User) Contact() SellerContact {
	return SellerContact{Name: u.Name, Phone: u.Phone, Email: u.Email, Hostel: u.Hostel}
}
