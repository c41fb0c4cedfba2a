package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet 代表使用者的 Sokocoin 錢包
// Balance 是可動用餘額；被保留中的競標資金已自 Balance 扣除，
// 累計欄位只增不減，用於對帳時檢查與交易紀錄是否一致
type Wallet struct {
	gorm.Model

	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;<-:create"`

	Balance      float64 `gorm:"column:sokocoin_balance;not null;default:0"`
	TotalEarned  float64 `gorm:"not null;default:0"`
	TotalSpent   float64 `gorm:"not null;default:0"`
	TotalTopup   float64 `gorm:"not null;default:0"`
	TotalCashout float64 `gorm:"not null;default:0"`

	User *User `gorm:"foreignKey:UserID"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	return assignID(&w.ID)
}
