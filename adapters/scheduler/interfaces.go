//go:generate mockgen -package=scheduler -destination=mock.go -source=interfaces.go

package scheduler

import (
	"context"
	"time"
)

// JobFunc 是排程任務的執行體，回傳的錯誤由排程器記錄
type JobFunc func(ctx context.Context) error

// IScheduler 定義了固定間隔排程器的操作介面
type IScheduler interface {
	// Register 註冊一個任務，只能在 Start 之前呼叫
	Register(name string, every time.Duration, fn JobFunc) error
	// Start 啟動所有已註冊的任務，每個任務先立即執行一次再進入固定間隔
	Start()
	// Close 停止排程器並等待進行中的任務結束
	Close()
}
