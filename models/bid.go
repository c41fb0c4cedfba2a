package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid 代表拍賣商品的出價紀錄
// 每個拍賣同一時間最多一筆 IsWinning 為真；被超越的紀錄標記 IsOutbid
type Bid struct {
	gorm.Model

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	BidderID  uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Amount    float64   `gorm:"not null;<-:create"`
	BidTime   time.Time `gorm:"not null;<-:create"`
	IsWinning bool      `gorm:"not null;default:false"`
	IsOutbid  bool      `gorm:"not null;default:false"`

	Product *Product `gorm:"foreignKey:ProductID"`
	Bidder  *User    `gorm:"foreignKey:BidderID"`
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	return assignID(&b.ID)
}
