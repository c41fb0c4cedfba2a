package notify

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"sokoni/models"
)

// NotifierOptions 定義了 Notifier 的配置選項
type NotifierOptions struct {
	Logger *slog.Logger
}

type NotifierOption func(*NotifierOptions)

// WithNotifierLogger 設置日誌記錄器
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(o *NotifierOptions) {
		o.Logger = logger
	}
}

// Notifier 實現了 INotifier 介面，把通知寫進資料庫的收件匣
// 通知用自己的連線寫入，不掛在呼叫端的交易裡，
// 交易回滾時通知可能已經送出，反過來通知失敗也不影響交易。
type Notifier struct {
	db      *gorm.DB
	options NotifierOptions
}

// NewNotifier 建立一個新的 Notifier 實例
func NewNotifier(db *gorm.DB, opts ...NotifierOption) INotifier {
	options := &NotifierOptions{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Notifier{
		db:      db,
		options: *options,
	}
}

// Notify 寫入一筆站內通知，失敗時只記錄日誌
func (n *Notifier) Notify(ctx context.Context, notification *models.Notification) {
	const op = "notify.Notifier.Notify"

	if notification == nil {
		return
	}
	if err := n.db.WithContext(ctx).Create(notification).Error; err != nil {
		n.options.Logger.Warn("failed to write notification",
			slog.String("caller", op),
			slog.String("userId", notification.UserID.String()),
			slog.String("type", string(notification.Type)),
			slog.Any("error", err))
	}
}
