package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuctionStatus 拍賣生命週期狀態
// 唯一的變動路徑: pending -> active -> ended，cancelled 只能由賣家在無人出價前觸發
type AuctionStatus string

const (
	AuctionPending   AuctionStatus = "pending"
	AuctionActive    AuctionStatus = "active"
	AuctionEnded     AuctionStatus = "ended"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Product 代表市集中的商品
// 一般商品以固定價格販售；拍賣商品另外帶有一組拍賣欄位，
// 起標價、出價增額與拍賣時間在建立後不再變動，狀態轉移是唯一的修改路徑
type Product struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SellerID    uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Category    string    `gorm:"type:varchar(64);index"`

	// Price 是以 Sokocoin 計價的售價，拍賣結束後會被更新成得標價
	Price             float64 `gorm:"not null"`
	LocalPrice        float64
	LocalCurrencyCode string `gorm:"type:varchar(8)"`

	ImageURL  string   `gorm:"type:text"`
	MediaKeys []string `gorm:"serializer:json"` // 物件儲存的鍵，purge 時需要一併刪除
	IsSold    bool     `gorm:"not null;default:false"`

	// 拍賣欄位，非拍賣商品一律為零值
	IsAuction              bool           `gorm:"not null;default:false;<-:create"`
	StartingPrice          *float64       `gorm:"<-:create"`
	BidIncrement           *float64       `gorm:"<-:create"`
	AuctionDurationMinutes *int           `gorm:"<-:create"`
	AuctionStartTime       *time.Time     `gorm:"<-:create"`
	AuctionEndTime         *time.Time     `gorm:"index"`
	AuctionStatus          *AuctionStatus `gorm:"type:varchar(16);index"`
	CurrentBid             *float64
	CurrentBidderID        *uuid.UUID `gorm:"type:uuid"`
	WinnerID               *uuid.UUID `gorm:"type:uuid"`
	WinnerPaid             bool       `gorm:"not null;default:false"`

	Seller        *User `gorm:"foreignKey:SellerID"`
	CurrentBidder *User `gorm:"foreignKey:CurrentBidderID"`
	Winner        *User `gorm:"foreignKey:WinnerID"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	return assignID(&p.ID)
}

// MinimumBid 回傳下一次出價可被接受的最低金額
// 尚無人出價時為起標價，否則為目前最高出價加上出價增額
func (p *Product) MinimumBid() float64 {
	if p.CurrentBid == nil {
		if p.StartingPrice == nil {
			return 0
		}
		return *p.StartingPrice
	}
	increment := 0.0
	if p.BidIncrement != nil {
		increment = *p.BidIncrement
	}
	return *p.CurrentBid + increment
}

// AuctionEndedAt 判斷拍賣在指定時間點是否已經截止
// 時間到和遲到的出價競爭時，一律以截止優先
func (p *Product) AuctionEndedAt(now time.Time) bool {
	if !p.IsAuction || p.AuctionEndTime == nil {
		return false
	}
	return !now.Before(*p.AuctionEndTime)
}

// TimeRemainingSeconds 回傳拍賣剩餘秒數，已截止時為 0
func (p *Product) TimeRemainingSeconds(now time.Time) int {
	if p.AuctionEndTime == nil {
		return 0
	}
	remaining := int(p.AuctionEndTime.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HoldReference 回傳目前最高出價者資金保留交易的冪等鍵
// 每個拍賣在任何時刻最多只有一筆未結的保留交易
func (p *Product) HoldReference() string {
	return fmt.Sprintf("AUCTION-%s-HOLD", p.ID)
}
