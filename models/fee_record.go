package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeeKind 平台留存款項的種類
type FeeKind string

const (
	FeeProcessing FeeKind = "processing"
	FeeShipping   FeeKind = "shipping"
)

// FeeRecord 平台在每筆結帳中留存的手續費與運費
// 買家扣款、賣家入帳與這張表三者相加必須守恆
type FeeRecord struct {
	gorm.Model

	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Kind    FeeKind   `gorm:"type:varchar(16);not null;<-:create"`
	Amount  float64   `gorm:"not null;<-:create"`
}

func (f *FeeRecord) BeforeCreate(*gorm.DB) error {
	return assignID(&f.ID)
}
