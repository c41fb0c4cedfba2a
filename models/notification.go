package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType 站內通知類型
type NotificationType string

const (
	NotificationAuction NotificationType = "auction"
	NotificationOrder   NotificationType = "order"
	NotificationWallet  NotificationType = "wallet"
)

// Notification 站內通知
// 通知寫入失敗不影響觸發它的交易，所以這張表沒有任何唯一性限制
type Notification struct {
	gorm.Model

	ID      uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index;<-:create"`
	Type    NotificationType `gorm:"type:varchar(32);not null;<-:create"`
	Title   string           `gorm:"type:varchar(255);not null;<-:create"`
	Message string           `gorm:"type:text;<-:create"`
	IsRead  bool             `gorm:"not null;default:false"`

	RelatedUserID    *uuid.UUID `gorm:"type:uuid;<-:create"`
	RelatedProductID *uuid.UUID `gorm:"type:uuid;<-:create"`
	RelatedOrderID   *uuid.UUID `gorm:"type:uuid;<-:create"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	return assignID(&n.ID)
}
