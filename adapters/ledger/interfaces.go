//go:generate mockgen -package=ledger -destination=mock.go -source=interfaces.go

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sokoni/models"
)

// ILedger 定義了錢包帳本的操作介面
// 所有資金移動都以分錄為單位，餘額變動與分錄建立在同一筆資料庫交易內完成
type ILedger interface {
	// GetOrCreateWallet 取得使用者錢包，沒有時建立一個餘額為零的
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// Credit 立即入帳一筆金額
	Credit(ctx context.Context, params EntryParams) (*models.WalletTransaction, error)
	// Debit 立即扣款一筆金額，餘額不足時回傳錯誤
	Debit(ctx context.Context, params EntryParams) (*models.WalletTransaction, error)
	// Hold 自餘額中保留一筆資金，建立待結的扣款分錄
	Hold(ctx context.Context, params EntryParams) (*models.WalletTransaction, error)
	// ReleaseHold 將保留中的資金結算成實際扣款，不足的差額另行補扣
	ReleaseHold(ctx context.Context, reference string, params ReleaseParams) (*models.WalletTransaction, error)
	// CancelHold 取消保留並退還資金
	CancelHold(ctx context.Context, reference string) (*models.WalletTransaction, error)
	// RefundStuckCashouts 退還超過期限仍卡在保留狀態的提領
	RefundStuckCashouts(ctx context.Context, userID uuid.UUID, olderThan time.Time) ([]models.WalletTransaction, error)
	// RecordPendingEarn 登記一筆待撥付的賣家收入，不動餘額
	RecordPendingEarn(ctx context.Context, params EntryParams) (*models.WalletTransaction, error)
	// ReleasePendingEarn 將待撥付的收入入帳
	ReleasePendingEarn(ctx context.Context, reference string) (*models.WalletTransaction, error)
	// CancelPendingEarn 取消待撥付的收入，訂單取消時使用
	CancelPendingEarn(ctx context.Context, reference string) (*models.WalletTransaction, error)
	// FindByReference 以參考號查詢分錄
	FindByReference(ctx context.Context, reference string) (*models.WalletTransaction, error)
	// ListTransactions 依條件列出使用者的分錄
	ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.WalletTransaction, error)
	// Reconcile 依分錄重算餘額並與錢包對帳
	Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileReport, error)
	// WithTx 回傳綁定到指定資料庫交易的帳本，讓呼叫端把多筆分錄組成一個原子操作
	WithTx(tx *gorm.DB) ILedger
}

// EntryParams 建立一筆分錄所需的資料
type EntryParams struct {
	UserID      uuid.UUID
	Amount      float64
	Type        models.TransactionType
	Description string
	Reference   string
	Extra       *models.TransactionExtra
}

// ReleaseParams 結算保留資金時的最終金額與明細
type ReleaseParams struct {
	FinalAmount float64
	Description string
	Extra       *models.TransactionExtra
}

// TransactionFilter 分錄查詢條件
type TransactionFilter struct {
	Type   *models.TransactionType
	Status *models.TransactionStatus
	Limit  int
	Offset int
}

// ReconcileReport 錢包對帳結果
type ReconcileReport struct {
	UserID          uuid.UUID `json:"user_id"`
	Balance         float64   `json:"balance"`
	ExpectedBalance float64   `json:"expected_balance"`
	Drift           float64   `json:"drift"`
	PendingHolds    float64   `json:"pending_holds"`
	Consistent      bool      `json:"consistent"`
}
