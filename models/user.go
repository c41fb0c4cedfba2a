package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 代表市集中的使用者
// 包含登入憑證、個人資料，以及計算運費所需的收貨座標
type User struct {
	gorm.Model

	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	FullName     string    `gorm:"type:varchar(255)"`
	IsAdmin      bool      `gorm:"not null;default:false"`

	// 收貨座標，兩者缺一就無法計算運費
	Latitude        *float64 `gorm:"type:double precision"`
	Longitude       *float64 `gorm:"type:double precision"`
	LocationAddress string   `gorm:"type:text"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return assignID(&u.ID)
}

// HasLocation 判斷使用者是否已經登記收貨座標
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}
