package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType 錢包交易類型
type TransactionType string

const (
	TransactionTopup    TransactionType = "topup"
	TransactionCashout  TransactionType = "cashout"
	TransactionPurchase TransactionType = "purchase"
	TransactionEarn     TransactionType = "earn"
	TransactionRefund   TransactionType = "refund"
)

// TransactionStatus 錢包交易狀態
// pending 代表資金已保留但尚未入帳（買家付款待確認、賣家收入待撥付）
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// TransactionExtra 交易的附加明細，以 JSON 形式存放
type TransactionExtra struct {
	OrderID            *uuid.UUID `json:"order_id,omitempty"`
	ProductID          *uuid.UUID `json:"product_id,omitempty"`
	Subtotal           *float64   `json:"subtotal,omitempty"`
	ProcessingFee      *float64   `json:"processing_fee,omitempty"`
	ShippingFee        *float64   `json:"shipping_fee,omitempty"`
	ShippingDistanceKm *float64   `json:"shipping_distance_km,omitempty"`
	Channel            string     `json:"channel,omitempty"`
	PhoneNumber        string     `json:"phone_number,omitempty"`
	// ReleaseOn 標記待撥付收入的撥付條件
	ReleaseOn string `json:"release_on,omitempty"`
}

// WalletTransaction 錢包帳本的一筆分錄
// Reference 是冪等鍵，同一筆業務事件不會產生兩筆分錄；
// Amount 在競標資金保留升級為實際付款時會被更新成總扣款額
type WalletTransaction struct {
	gorm.Model

	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	WalletID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`

	Type        TransactionType   `gorm:"type:varchar(16);not null;<-:create"`
	Status      TransactionStatus `gorm:"type:varchar(16);not null;index"`
	Amount      float64           `gorm:"not null"`
	Description string            `gorm:"type:text"`
	Reference   string            `gorm:"type:varchar(128);index"`
	Extra       *TransactionExtra `gorm:"serializer:json"`
	CompletedAt *time.Time

	Wallet *Wallet `gorm:"foreignKey:WalletID"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	return assignID(&t.ID)
}
