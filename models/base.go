package models

import (
	"fmt"

	"github.com/google/uuid"
)

// assignID 在建立紀錄前產生 UUIDv7 主鍵
// v7 帶有時間排序性，讓主鍵的排序與建立時間一致
func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v7, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("models: fail to generate uuid v7: %w", err)
	}
	*id = v7
	return nil
}
