package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sokoni/models"
)

// Ledger 實現了 ILedger 介面，提供以 GORM 為後端的錢包帳本
// 併發呼叫依賴條件式更新保證餘額不會被扣成負數，
// 需要跨多筆分錄的原子操作時由呼叫端以 WithTx 包進同一筆資料庫交易
type Ledger struct {
	db      *gorm.DB
	options LedgerOptions
}

// LedgerOptions 定義了 Ledger 的配置選項
type LedgerOptions struct {
	Logger *slog.Logger
}

type LedgerOption func(*LedgerOptions)

// WithLedgerLogger 設定 Ledger 使用的日誌記錄器
func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(o *LedgerOptions) {
		o.Logger = logger
	}
}

// NewLedger 建立一個新的 Ledger 實例
func NewLedger(db *gorm.DB, opts ...LedgerOption) ILedger {
	options := LedgerOptions{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Ledger{
		db:      db,
		options: options,
	}
}

// WithTx 回傳綁定到指定資料庫交易的帳本
func (l *Ledger) WithTx(tx *gorm.DB) ILedger {
	return &Ledger{db: tx, options: l.options}
}

// GetOrCreateWallet 取得使用者錢包，沒有時建立一個餘額為零的
func (l *Ledger) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	const op = "ledger.Ledger.GetOrCreateWallet"

	wallet := models.Wallet{}
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: failed to query wallet: %w", op, err)
	}

	wallet = models.Wallet{UserID: userID}
	err = l.db.WithContext(ctx).Create(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	// 兩個請求同時初始化同一個錢包時，改讀先建立成功的那筆
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		wallet = models.Wallet{}
		if err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			return nil, fmt.Errorf("%s: failed to query wallet after duplicated create: %w", op, err)
		}
		return &wallet, nil
	}
	return nil, fmt.Errorf("%s: failed to create wallet: %w", op, err)
}

// Credit 立即入帳一筆金額，依分錄類型累計統計欄位
func (l *Ledger) Credit(ctx context.Context, params EntryParams) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.Credit"

	if params.Amount <= 0 {
		return nil, models.Errorf(models.ErrValidation, "Amount must be positive")
	}
	wallet, err := l.GetOrCreateWallet(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := &models.WalletTransaction{
		WalletID:    wallet.ID,
		UserID:      params.UserID,
		Type:        params.Type,
		Status:      models.TransactionCompleted,
		Amount:      params.Amount,
		Description: params.Description,
		Reference:   params.Reference,
		Extra:       params.Extra,
		CompletedAt: lo.ToPtr(time.Now()),
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%s: failed to create transaction: %w", op, err)
		}

		updates := map[string]any{
			"sokocoin_balance": gorm.Expr("sokocoin_balance + ?", params.Amount),
		}
		switch params.Type {
		case models.TransactionTopup:
			updates["total_topup"] = gorm.Expr("total_topup + ?", params.Amount)
		case models.TransactionEarn:
			updates["total_earned"] = gorm.Expr("total_earned + ?", params.Amount)
		}
		if err := tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("%s: failed to update wallet: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Debit 立即扣款一筆金額，餘額不足時整筆失敗
func (l *Ledger) Debit(ctx context.Context, params EntryParams) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.Debit"

	if params.Amount <= 0 {
		return nil, models.Errorf(models.ErrValidation, "Amount must be positive")
	}
	wallet, err := l.GetOrCreateWallet(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := &models.WalletTransaction{
		WalletID:    wallet.ID,
		UserID:      params.UserID,
		Type:        params.Type,
		Status:      models.TransactionCompleted,
		Amount:      params.Amount,
		Description: params.Description,
		Reference:   params.Reference,
		Extra:       params.Extra,
		CompletedAt: lo.ToPtr(time.Now()),
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"sokocoin_balance": gorm.Expr("sokocoin_balance - ?", params.Amount),
		}
		switch params.Type {
		case models.TransactionCashout:
			updates["total_cashout"] = gorm.Expr("total_cashout + ?", params.Amount)
		case models.TransactionPurchase:
			updates["total_spent"] = gorm.Expr("total_spent + ?", params.Amount)
		}
		if err := l.deduct(tx, wallet.ID, params.Amount, updates); err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%s: failed to create transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Hold 自餘額中保留一筆資金，建立待結的扣款分錄
// 類型只接受 purchase 與 cashout，未指定時視為 purchase；
// 統計欄位在保留階段不動，結算時才以實際支付額累計
func (l *Ledger) Hold(ctx context.Context, params EntryParams) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.Hold"

	if params.Amount <= 0 {
		return nil, models.Errorf(models.ErrValidation, "Amount must be positive")
	}
	holdType := params.Type
	if holdType == "" {
		holdType = models.TransactionPurchase
	}
	if holdType != models.TransactionPurchase && holdType != models.TransactionCashout {
		return nil, models.Errorf(models.ErrValidation, "Hold type must be purchase or cashout")
	}
	wallet, err := l.GetOrCreateWallet(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := &models.WalletTransaction{
		WalletID:    wallet.ID,
		UserID:      params.UserID,
		Type:        holdType,
		Status:      models.TransactionPending,
		Amount:      params.Amount,
		Description: params.Description,
		Reference:   params.Reference,
		Extra:       params.Extra,
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.WalletTransaction{}).
			Where("reference = ? AND status = ?", params.Reference, models.TransactionPending).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("%s: failed to check existing hold: %w", op, err)
		}
		if count > 0 {
			return models.Errorf(models.ErrConflict, "A pending hold already exists for reference %s", params.Reference)
		}

		updates := map[string]any{
			"sokocoin_balance": gorm.Expr("sokocoin_balance - ?", params.Amount),
		}
		if err := l.deduct(tx, wallet.ID, params.Amount, updates); err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%s: failed to create transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleaseHold 將保留中的資金結算成實際扣款
// 最終金額高於保留額的差額自餘額補扣，補扣失敗時保留不動
func (l *Ledger) ReleaseHold(ctx context.Context, reference string, params ReleaseParams) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.ReleaseHold"

	entry := models.WalletTransaction{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("reference = ? AND type IN ? AND status = ?",
			reference, []models.TransactionType{models.TransactionPurchase, models.TransactionCashout},
			models.TransactionPending).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Errorf(models.ErrNotFound, "No pending hold found for reference %s", reference)
		}
		if err != nil {
			return fmt.Errorf("%s: failed to query hold: %w", op, err)
		}

		shortfall := params.FinalAmount - entry.Amount
		if shortfall < 0 {
			return models.Errorf(models.ErrValidation, "Final amount cannot be below the held amount")
		}

		aggregate := "total_spent"
		if entry.Type == models.TransactionCashout {
			aggregate = "total_cashout"
		}
		updates := map[string]any{
			aggregate: gorm.Expr(aggregate+" + ?", params.FinalAmount),
		}
		if shortfall > 0 {
			updates["sokocoin_balance"] = gorm.Expr("sokocoin_balance - ?", shortfall)
			if err := l.deduct(tx, entry.WalletID, shortfall, updates); err != nil {
				return err
			}
		} else {
			if err := tx.Model(&models.Wallet{}).Where("id = ?", entry.WalletID).Updates(updates).Error; err != nil {
				return fmt.Errorf("%s: failed to update wallet: %w", op, err)
			}
		}

		entry.Amount = params.FinalAmount
		entry.Status = models.TransactionCompleted
		entry.CompletedAt = lo.ToPtr(time.Now())
		if params.Description != "" {
			entry.Description = params.Description
		}
		if params.Extra != nil {
			entry.Extra = params.Extra
		}
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("%s: failed to update transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CancelHold 取消保留並把資金退還給分錄的持有人
func (l *Ledger) CancelHold(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.CancelHold"

	entry := models.WalletTransaction{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("reference = ? AND type IN ? AND status = ?",
			reference, []models.TransactionType{models.TransactionPurchase, models.TransactionCashout},
			models.TransactionPending).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Errorf(models.ErrNotFound, "No pending hold found for reference %s", reference)
		}
		if err != nil {
			return fmt.Errorf("%s: failed to query hold: %w", op, err)
		}

		err = tx.Model(&models.Wallet{}).Where("id = ?", entry.WalletID).
			UpdateColumn("sokocoin_balance", gorm.Expr("sokocoin_balance + ?", entry.Amount)).Error
		if err != nil {
			return fmt.Errorf("%s: failed to refund wallet: %w", op, err)
		}
		entry.Status = models.TransactionCancelled
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("%s: failed to update transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RefundStuckCashouts 退還卡在保留狀態的提領
// 提領在送出時先扣餘額，閘道沒有回報結果的分錄超過期限後視為失敗並退款
func (l *Ledger) RefundStuckCashouts(ctx context.Context, userID uuid.UUID, olderThan time.Time) ([]models.WalletTransaction, error) {
	const op = "ledger.Ledger.RefundStuckCashouts"

	stuck := []models.WalletTransaction{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND type = ? AND status = ? AND created_at < ?",
			userID, models.TransactionCashout, models.TransactionPending, olderThan).
			Find(&stuck).Error
		if err != nil {
			return fmt.Errorf("%s: failed to query stuck cashouts: %w", op, err)
		}

		for i := range stuck {
			err = tx.Model(&models.Wallet{}).Where("id = ?", stuck[i].WalletID).
				UpdateColumn("sokocoin_balance", gorm.Expr("sokocoin_balance + ?", stuck[i].Amount)).Error
			if err != nil {
				return fmt.Errorf("%s: failed to refund wallet: %w", op, err)
			}
			stuck[i].Status = models.TransactionFailed
			if err := tx.Save(&stuck[i]).Error; err != nil {
				return fmt.Errorf("%s: failed to update transaction: %w", op, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stuck, nil
}

// RecordPendingEarn 登記一筆待撥付的賣家收入
// 收入在買家確認收貨前不進餘額，只留下待結分錄
func (l *Ledger) RecordPendingEarn(ctx context.Context, params EntryParams) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.RecordPendingEarn"

	if params.Amount <= 0 {
		return nil, models.Errorf(models.ErrValidation, "Amount must be positive")
	}
	wallet, err := l.GetOrCreateWallet(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry := &models.WalletTransaction{
		WalletID:    wallet.ID,
		UserID:      params.UserID,
		Type:        models.TransactionEarn,
		Status:      models.TransactionPending,
		Amount:      params.Amount,
		Description: params.Description,
		Reference:   params.Reference,
		Extra:       params.Extra,
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.WalletTransaction{}).
			Where("reference = ? AND type = ?", params.Reference, models.TransactionEarn).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("%s: failed to check existing earn: %w", op, err)
		}
		if count > 0 {
			return models.Errorf(models.ErrConflict, "A payment release is already recorded for reference %s", params.Reference)
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%s: failed to create transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleasePendingEarn 將待撥付的賣家收入入帳
func (l *Ledger) ReleasePendingEarn(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.ReleasePendingEarn"

	entry := models.WalletTransaction{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("reference = ? AND type = ?", reference, models.TransactionEarn).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Errorf(models.ErrConflict, "No pending payment found to release for this order")
		}
		if err != nil {
			return fmt.Errorf("%s: failed to query earn: %w", op, err)
		}
		if entry.Status != models.TransactionPending {
			return models.Errorf(models.ErrConflict, "Payment for this order has already been released.")
		}

		err = tx.Model(&models.Wallet{}).Where("id = ?", entry.WalletID).
			Updates(map[string]any{
				"sokocoin_balance": gorm.Expr("sokocoin_balance + ?", entry.Amount),
				"total_earned":     gorm.Expr("total_earned + ?", entry.Amount),
			}).Error
		if err != nil {
			return fmt.Errorf("%s: failed to update wallet: %w", op, err)
		}
		entry.Status = models.TransactionCompleted
		entry.CompletedAt = lo.ToPtr(time.Now())
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("%s: failed to update transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CancelPendingEarn 取消待撥付的賣家收入
// 收入尚未進餘額，只需把分錄標記為取消
func (l *Ledger) CancelPendingEarn(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.CancelPendingEarn"

	entry := models.WalletTransaction{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("reference = ? AND type = ?", reference, models.TransactionEarn).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Errorf(models.ErrNotFound, "No pending payment found for reference %s", reference)
		}
		if err != nil {
			return fmt.Errorf("%s: failed to query earn: %w", op, err)
		}
		if entry.Status != models.TransactionPending {
			return models.Errorf(models.ErrConflict, "Payment for this order has already been released.")
		}
		entry.Status = models.TransactionCancelled
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("%s: failed to update transaction: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByReference 以參考號查詢最新一筆分錄
func (l *Ledger) FindByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	const op = "ledger.Ledger.FindByReference"

	entry := models.WalletTransaction{}
	err := l.db.WithContext(ctx).Where("reference = ?", reference).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.Errorf(models.ErrNotFound, "No transaction found for reference %s", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query transaction: %w", op, err)
	}
	return &entry, nil
}

// ListTransactions 依條件列出使用者的分錄，新的在前
func (l *Ledger) ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.WalletTransaction, error) {
	const op = "ledger.Ledger.ListTransactions"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := l.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	transactions := []models.WalletTransaction{}
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Limit(limit).Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query transactions: %w", op, err)
	}
	return transactions, nil
}

// Reconcile 依分錄重算餘額並與錢包對帳
// 重算規則: 已完成的入帳加、扣款減，保留中的扣款減，待撥付的收入不計
func (l *Ledger) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileReport, error) {
	const op = "ledger.Ledger.Reconcile"

	wallet, err := l.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transactions := []models.WalletTransaction{}
	err = l.db.WithContext(ctx).Where("user_id = ?", userID).Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query transactions: %w", op, err)
	}

	var expected, pendingHolds float64
	for _, entry := range transactions {
		switch entry.Status {
		case models.TransactionCompleted:
			switch entry.Type {
			case models.TransactionTopup, models.TransactionEarn, models.TransactionRefund:
				expected += entry.Amount
			case models.TransactionCashout, models.TransactionPurchase:
				expected -= entry.Amount
			}
		case models.TransactionPending:
			// 保留中的競標資金與提領都在送出時就先扣了餘額
			switch entry.Type {
			case models.TransactionPurchase, models.TransactionCashout:
				expected -= entry.Amount
				pendingHolds += entry.Amount
			}
		}
	}

	drift := models.Round2(wallet.Balance - expected)
	return &ReconcileReport{
		UserID:          userID,
		Balance:         wallet.Balance,
		ExpectedBalance: models.Round2(expected),
		Drift:           drift,
		PendingHolds:    models.Round2(pendingHolds),
		Consistent:      math.Abs(drift) < 0.01,
	}, nil
}

// deduct 以條件式更新扣款，餘額不足時回傳帶有目前餘額的錯誤
func (l *Ledger) deduct(tx *gorm.DB, walletID uuid.UUID, amount float64, updates map[string]any) error {
	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND sokocoin_balance >= ?", walletID, amount).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("ledger: failed to deduct from wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		wallet := models.Wallet{}
		if err := tx.Where("id = ?", walletID).First(&wallet).Error; err != nil {
			return fmt.Errorf("ledger: failed to reload wallet: %w", err)
		}
		return models.Errorf(models.ErrInsufficientFunds,
			"Insufficient balance. You have %.2f Sokocoin, but need %.2f Sokocoin", wallet.Balance, amount)
	}
	return nil
}
