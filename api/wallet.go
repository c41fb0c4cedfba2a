package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"sokoni/adapters/ledger"
	"sokoni/models"
)

// stuckCashoutAge 提領卡在保留狀態超過這個時間即視為失敗
const stuckCashoutAge = time.Hour

type TopupRequest struct {
	Amount        float64 `json:"amount" binding:"required"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	PhoneNumber   string  `json:"phone_number"`
}

type CashoutRequest struct {
	SokocoinAmount float64 `json:"sokocoin_amount" binding:"required"`
	PayoutMethod   string  `json:"payout_method" binding:"required"`
	PayoutAccount  string  `json:"payout_account" binding:"required"`
	Currency       string  `json:"currency"`
}

// transactionSuffix 產生交易參考號的亂數尾碼
func transactionSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Get wallet balance and aggregates
// (GET /api/wallet/balance)
func (impl *ServerImpl) GetWalletBalance(c *gin.Context) {
	const op = "GetWalletBalance"
	ctx := c.Request.Context()
	user := currentUser(c)
	wallet, err := impl.ledger.GetOrCreateWallet(ctx, user.ID)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load wallet, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, impl.toWalletResponse(wallet))
}

// List wallet transactions
// (GET /api/wallet/transactions)
func (impl *ServerImpl) GetWalletTransactions(c *gin.Context) {
	const op = "GetWalletTransactions"
	ctx := c.Request.Context()
	user := currentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter := ledger.TransactionFilter{Limit: limit, Offset: skip}
	if raw := c.Query("transaction_type"); raw != "" {
		filter.Type = lo.ToPtr(models.TransactionType(raw))
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = lo.ToPtr(models.TransactionStatus(raw))
	}

	entries, err := impl.ledger.ListTransactions(ctx, user.ID, filter)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list transactions, err=%w", op, err))
		return
	}
	responses := make([]WalletTransactionResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, impl.toTransactionResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// Initialize a sandbox top-up
// (POST /api/wallet/topup/initialize)
func (impl *ServerImpl) PostWalletTopupInitialize(c *gin.Context) {
	const op = "PostWalletTopupInitialize"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body TopupRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Amount <= 0 {
		abortWithMessage(c, http.StatusBadRequest, "Amount must be greater than 0")
		return
	}
	currency := strings.ToUpper(body.Currency)
	if currency == "" {
		currency = "TZS"
	}
	if body.PaymentMethod == "" {
		body.PaymentMethod = "card"
	}
	if body.PaymentMethod == "mobile_money" && strings.TrimSpace(body.PhoneNumber) == "" {
		abortWithMessage(c, http.StatusBadRequest, "Phone number is required for mobile money payments")
		return
	}

	sokocoinAmount := impl.config.Currency.ToSokocoin(body.Amount, currency)
	reference := fmt.Sprintf("SOKONI_TOPUP_%s_%s", user.ID, transactionSuffix())

	// 金流閘道以沙盒模式運作，入帳不經過外部請求直接完成
	entry, err := impl.ledger.Credit(ctx, ledger.EntryParams{
		UserID:      user.ID,
		Amount:      sokocoinAmount,
		Type:        models.TransactionTopup,
		Description: fmt.Sprintf("Top-up %v %s", body.Amount, currency),
		Reference:   reference,
		Extra: &models.TransactionExtra{
			Channel:     body.PaymentMethod,
			PhoneNumber: body.PhoneNumber,
		},
	})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to credit top-up, err=%w", op, err))
		return
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:  user.ID,
		Type:    models.NotificationWallet,
		Title:   "Top-up Successful",
		Message: fmt.Sprintf("You have received %.2f Sokocoin (%.2f %s)", sokocoinAmount, body.Amount, currency),
	})

	c.JSON(http.StatusOK, TopupResponse{
		Success:          true,
		TransactionID:    entry.ID.String(),
		PaymentURL:       nil,
		PaymentReference: reference,
		SokocoinAmount:   sokocoinAmount,
		LocalAmount:      body.Amount,
		Currency:         currency,
		Message:          "Sandbox mode: wallet credited without contacting the payment gateway.",
	})
}

// Initiate a sandbox cashout
// (POST /api/wallet/cashout)
func (impl *ServerImpl) PostWalletCashout(c *gin.Context) {
	const op = "PostWalletCashout"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body CashoutRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.SokocoinAmount <= 0 {
		abortWithMessage(c, http.StatusBadRequest, "Cashout amount, payout method and payout account are required")
		return
	}
	currency := strings.ToUpper(body.Currency)
	if currency == "" {
		currency = "TZS"
	}

	wallet, err := impl.ledger.GetOrCreateWallet(ctx, user.ID)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load wallet, err=%w", op, err))
		return
	}
	if wallet.Balance < body.SokocoinAmount {
		abortWithMessage(c, http.StatusBadRequest, "Insufficient Sokocoin balance")
		return
	}

	// 先以保留分錄扣下餘額，閘道完成撥款後才升級為已完成
	reference := fmt.Sprintf("SOKONI_CASHOUT_%s_%s", user.ID, transactionSuffix())
	if _, err := impl.ledger.Hold(ctx, ledger.EntryParams{
		UserID:      user.ID,
		Amount:      body.SokocoinAmount,
		Type:        models.TransactionCashout,
		Description: fmt.Sprintf("Cashout %v Sokocoin", body.SokocoinAmount),
		Reference:   reference,
		Extra: &models.TransactionExtra{
			Channel:     body.PayoutMethod,
			PhoneNumber: body.PayoutAccount,
		},
	}); err != nil {
		abortWithError(c, err)
		return
	}

	// 沙盒撥款視同即時成功
	entry, err := impl.ledger.ReleaseHold(ctx, reference, ledger.ReleaseParams{
		FinalAmount: body.SokocoinAmount,
	})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to settle cashout, err=%w", op, err))
		return
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:  user.ID,
		Type:    models.NotificationWallet,
		Title:   "Cashout Initiated",
		Message: fmt.Sprintf("Your cashout of %.2f Sokocoin has been initiated (sandbox).", body.SokocoinAmount),
	})

	c.JSON(http.StatusOK, CashoutResponse{
		Success:     true,
		Message:     "Cashout simulated successfully",
		Transaction: impl.toTransactionResponse(entry),
	})
}

// Refund cashouts stuck in pending state
// (POST /api/wallet/cashout/cleanup-stuck)
func (impl *ServerImpl) PostWalletCashoutCleanupStuck(c *gin.Context) {
	const op = "PostWalletCashoutCleanupStuck"
	ctx := c.Request.Context()
	user := currentUser(c)

	refunded, err := impl.ledger.RefundStuckCashouts(ctx, user.ID, time.Now().Add(-stuckCashoutAge))
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to refund stuck cashouts, err=%w", op, err))
		return
	}
	total := lo.SumBy(refunded, func(entry models.WalletTransaction) float64 {
		return entry.Amount
	})
	message := "No stuck transactions found"
	if len(refunded) > 0 {
		message = fmt.Sprintf("Refunded %d stuck transaction(s)", len(refunded))
	}
	c.JSON(http.StatusOK, CleanupStuckResponse{
		Success:               true,
		Message:               message,
		RefundedCount:         len(refunded),
		TotalSokocoinRefunded: total,
	})
}

// Recompute the wallet balance from the ledger
// (GET /api/wallet/reconcile)
func (impl *ServerImpl) GetWalletReconcile(c *gin.Context) {
	const op = "GetWalletReconcile"
	ctx := c.Request.Context()
	user := currentUser(c)
	report, err := impl.ledger.Reconcile(ctx, user.ID)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to reconcile wallet, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, report)
}
