package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus 訂單出貨狀態
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus 訂單金流狀態
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentHeld     PaymentStatus = "held"
	PaymentPaid     PaymentStatus = "paid"
	PaymentReleased PaymentStatus = "released"
)

// SettlementPolicy 決定買家付款後賣家收入何時入帳
// immediate: 付款當下直接入帳，拍賣結帳採用
// held: 先保留成待撥付交易，買家確認收貨後才入帳，購物車結帳採用
type SettlementPolicy string

const (
	ImmediateSettlement SettlementPolicy = "immediate"
	HeldSettlement      SettlementPolicy = "held"
)

// Order 代表一筆買賣雙方之間的訂單
// 金額欄位在建立時定案：TotalAmount 是商品小計，
// 手續費與運費另計，買家實際支付 TotalCharge
type Order struct {
	gorm.Model

	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	BuyerID  uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	SellerID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`

	TotalAmount        float64  `gorm:"not null;<-:create"`
	ProcessingFee      float64  `gorm:"not null;<-:create"`
	ShippingFee        float64  `gorm:"not null;<-:create"`
	ShippingDistanceKm *float64 `gorm:"<-:create"`

	Status           OrderStatus      `gorm:"type:varchar(16);not null;index"`
	PaymentStatus    PaymentStatus    `gorm:"type:varchar(16);not null"`
	SettlementPolicy SettlementPolicy `gorm:"type:varchar(16);not null;<-:create"`
	ShippingAddress  string           `gorm:"type:text"`

	Items  []OrderItem `gorm:"foreignKey:OrderID"`
	Buyer  *User       `gorm:"foreignKey:BuyerID"`
	Seller *User       `gorm:"foreignKey:SellerID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	return assignID(&o.ID)
}

// TotalCharge 買家實際支付的總額
func (o *Order) TotalCharge() float64 {
	return o.TotalAmount + o.ProcessingFee + o.ShippingFee
}

// SellerProceeds 賣家最終入帳的金額，平台留存手續費與運費
func (o *Order) SellerProceeds() float64 {
	return o.TotalAmount
}

// ReleaseReference 賣家收入撥付交易的冪等鍵
func (o *Order) ReleaseReference() string {
	return fmt.Sprintf("ORDER-%s-RELEASE", o.ID)
}

// RefundReference 買家退款交易的冪等鍵
func (o *Order) RefundReference() string {
	return fmt.Sprintf("ORDER-%s-REFUND", o.ID)
}

// OrderItem 訂單內的一個商品項目，單價在成立時快照
type OrderItem struct {
	gorm.Model

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Quantity  int       `gorm:"not null;<-:create"`
	UnitPrice float64   `gorm:"not null;<-:create"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	return assignID(&i.ID)
}
