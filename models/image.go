package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 上傳到物件儲存的媒體檔案紀錄
// 上傳頻率限制依 UploaderID 與建立時間計算，ObjectKey 是刪除檔案時的定位鍵
type Image struct {
	gorm.Model

	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	URL        string    `gorm:"type:text;not null;<-:create"`
	ObjectKey  string    `gorm:"type:text;not null;<-:create"`

	Uploader *User `gorm:"foreignKey:UploaderID"`
}

func (i *Image) BeforeCreate(*gorm.DB) error {
	return assignID(&i.ID)
}
