//go:generate mockgen -package=notify -destination=mock.go -source=interfaces.go

package notify

import (
	"context"

	"sokoni/models"
)

// INotifier 定義了站內通知的操作介面
type INotifier interface {
	// Notify 寫入一筆站內通知
	// 通知是盡力而為的副作用，寫入失敗只記錄日誌，不回傳錯誤，
	// 呼叫端的交易不因通知失敗而中斷。
	Notify(ctx context.Context, notification *models.Notification)
}
