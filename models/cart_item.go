package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem 購物車項目，同一使用者對同一商品只會有一筆
type CartItem struct {
	gorm.Model

	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product;<-:create"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product;<-:create"`
	Quantity  int       `gorm:"not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	return assignID(&c.ID)
}
