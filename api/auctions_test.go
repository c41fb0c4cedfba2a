package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "sokoni/adapters/redis"
	"sokoni/models"
)

func TestPostAuctionsProductIDBid(t *testing.T) {
	t.Run("first bid at starting price", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)

		// 執行測試
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid",
			BidRequest{BidAmount: 50}, authToken(t, impl, bidder))

		// 驗證結果: 出價被接受，資金自餘額轉入保留
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody[BidResponse](t, recorder)
		assert.Equal(t, product.ID, body.ProductID)
		assert.Equal(t, bidder.ID, body.BidderID)
		assert.Equal(t, "bidder", body.BidderUsername)
		assert.InDelta(t, 50, body.BidAmount, 0.001)
		assert.True(t, body.IsWinningBid)
		assert.False(t, body.IsOutbid)

		reloaded := models.Product{ID: product.ID}
		require.NoError(t, impl.db.First(&reloaded).Error)
		require.NotNil(t, reloaded.CurrentBid)
		assert.InDelta(t, 50, *reloaded.CurrentBid, 0.001)
		require.NotNil(t, reloaded.CurrentBidderID)
		assert.Equal(t, bidder.ID, *reloaded.CurrentBidderID)

		assert.InDelta(t, 50, walletOf(t, impl.db, bidder).Balance, 0.001)
		hold := models.WalletTransaction{}
		require.NoError(t, impl.db.Where("reference = ?", reloaded.HoldReference()).First(&hold).Error)
		assert.Equal(t, models.TransactionPending, hold.Status)
		assert.Equal(t, models.TransactionPurchase, hold.Type)
		assert.InDelta(t, 50, hold.Amount, 0.001)
	})

	t.Run("bid below minimum is rejected", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 200)
		product := createAuction(t, impl.db, seller, 50, 5)
		token := authToken(t, impl, bidder)

		// 尚無人出價時門檻是起標價
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 49.99}, token)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Bid amount must be at least 50.00 Sokocoin", decodeBody[ErrorResponse](t, recorder).Message)

		// 有人出價後門檻是目前出價加增額
		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, token)
		require.Equal(t, http.StatusOK, recorder.Code)

		other := createTestUser(t, impl.db, "other")
		fundWallet(t, impl, other, 200)
		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 54}, authToken(t, impl, other))
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Bid amount must be at least 55.00 Sokocoin", decodeBody[ErrorResponse](t, recorder).Message)

		// 被拒絕的出價不留任何痕跡
		var count int64
		require.NoError(t, impl.db.Model(&models.Bid{}).Where("bidder_id = ?", other.ID).Count(&count).Error)
		assert.Zero(t, count)
		assert.InDelta(t, 200, walletOf(t, impl.db, other).Balance, 0.001)
	})

	t.Run("higher bid refunds previous bidder", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		first := createTestUser(t, impl.db, "first")
		second := createTestUser(t, impl.db, "second")
		fundWallet(t, impl, first, 100)
		fundWallet(t, impl, second, 100)
		product := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, first))
		require.Equal(t, http.StatusOK, recorder.Code)
		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 60}, authToken(t, impl, second))
		require.Equal(t, http.StatusOK, recorder.Code)

		// 前一位出價者的保留資金全數退回
		assert.InDelta(t, 100, walletOf(t, impl.db, first).Balance, 0.001)
		assert.InDelta(t, 40, walletOf(t, impl.db, second).Balance, 0.001)

		// 舊出價讓位並標記被超越
		firstBid := models.Bid{}
		require.NoError(t, impl.db.Where("bidder_id = ?", first.ID).First(&firstBid).Error)
		assert.False(t, firstBid.IsWinning)
		assert.True(t, firstBid.IsOutbid)
		secondBid := models.Bid{}
		require.NoError(t, impl.db.Where("bidder_id = ?", second.ID).First(&secondBid).Error)
		assert.True(t, secondBid.IsWinning)

		// 被超越者收到通知，賣家每次出價都收到通知
		outbid := models.Notification{}
		require.NoError(t, impl.db.Where("user_id = ? AND title = ?", first.ID, "You Were Outbid").First(&outbid).Error)
		assert.Contains(t, outbid.Message, "60.00 Sokocoin")
		var sellerNotices int64
		require.NoError(t, impl.db.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", seller.ID, "New Bid Received").Count(&sellerNotices).Error)
		assert.EqualValues(t, 2, sellerNotices)
	})

	t.Run("raising own bid does not mark outbid", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)
		token := authToken(t, impl, bidder)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, token)
		require.Equal(t, http.StatusOK, recorder.Code)
		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 60}, token)
		require.Equal(t, http.StatusOK, recorder.Code)

		// 只保留一筆有效出價，舊的保留資金換成新的
		assert.InDelta(t, 40, walletOf(t, impl.db, bidder).Balance, 0.001)
		var winning int64
		require.NoError(t, impl.db.Model(&models.Bid{}).
			Where("product_id = ? AND is_winning = ?", product.ID, true).Count(&winning).Error)
		assert.EqualValues(t, 1, winning)

		// 自己加價不算被超越，也不該收到通知
		var outbidCount int64
		require.NoError(t, impl.db.Model(&models.Bid{}).
			Where("product_id = ? AND is_outbid = ?", product.ID, true).Count(&outbidCount).Error)
		assert.Zero(t, outbidCount)
		var notices int64
		require.NoError(t, impl.db.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", bidder.ID, "You Were Outbid").Count(&notices).Error)
		assert.Zero(t, notices)
	})

	t.Run("insufficient balance keeps previous bid intact", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		first := createTestUser(t, impl.db, "first")
		broke := createTestUser(t, impl.db, "broke")
		fundWallet(t, impl, first, 100)
		fundWallet(t, impl, broke, 30)
		product := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, first))
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 60}, authToken(t, impl, broke))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Insufficient balance. You have 30.00 Sokocoin, but need 60.00 Sokocoin",
			decodeBody[ErrorResponse](t, recorder).Message)

		// 整筆交易回滾: 原出價者的保留與領先狀態都不受影響
		hold := models.WalletTransaction{}
		require.NoError(t, impl.db.Where("reference = ? AND status = ?",
			product.HoldReference(), models.TransactionPending).First(&hold).Error)
		assert.Equal(t, first.ID, hold.UserID)
		firstBid := models.Bid{}
		require.NoError(t, impl.db.Where("bidder_id = ?", first.ID).First(&firstBid).Error)
		assert.True(t, firstBid.IsWinning)
		assert.InDelta(t, 50, walletOf(t, impl.db, first).Balance, 0.001)
		assert.InDelta(t, 30, walletOf(t, impl.db, broke).Balance, 0.001)
	})

	t.Run("seller cannot bid on own auction", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		fundWallet(t, impl, seller, 100)
		product := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, seller))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "You cannot bid on your own auction", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("cannot bid on regular product", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		buyer := createTestUser(t, impl.db, "buyer")
		product := createProduct(t, impl.db, seller, 20)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 20}, authToken(t, impl, buyer))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Product is not an auction", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("cannot bid after auction end time", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)
		endAuctionNow(t, impl.db, product)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Auction has ended", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("cannot bid before auction starts", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)
		require.NoError(t, impl.db.Model(product).Update("auction_status", models.AuctionPending).Error)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Cannot place bid. Auction status: pending", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("missing bid amount", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		product := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", map[string]any{}, authToken(t, impl, bidder))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Bid amount is required", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("unknown product", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		bidder := createTestUser(t, impl.db, "bidder")

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/a2180e79-1c9a-4b8d-9c19-4a4a6d616a61/bid",
			BidRequest{BidAmount: 50}, authToken(t, impl, bidder))

		require.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "Product not found", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("bid event reaches subscribers", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)

		events, err := impl.sseManager.Subscribe(product.ID.String())
		require.NoError(t, err)
		defer impl.sseManager.Unsubscribe(product.ID.String(), events)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 55}, authToken(t, impl, bidder))
		require.Equal(t, http.StatusOK, recorder.Code)

		select {
		case event := <-events:
			assert.Equal(t, product.ID, event.ProductID)
			assert.Equal(t, "bidder", event.BidderUsername)
			assert.InDelta(t, 55, event.BidAmount, 0.001)
		case <-time.After(time.Second):
			t.Fatal("bid event was not broadcast")
		}
	})
}

func TestGetAuctionsActive(t *testing.T) {
	t.Run("lists only running auctions", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		early := createAuction(t, impl.db, seller, 10, 1)
		late := createAuction(t, impl.db, seller, 20, 1)
		require.NoError(t, impl.db.Model(late).
			Update("auction_end_time", time.Now().UTC().Add(2*time.Hour)).Error)
		ended := createAuction(t, impl.db, seller, 30, 1)
		endAuctionNow(t, impl.db, ended)
		pending := createAuction(t, impl.db, seller, 40, 1)
		require.NoError(t, impl.db.Model(pending).Update("auction_status", models.AuctionPending).Error)
		createProduct(t, impl.db, seller, 15)

		recorder := performRequest(t, router, http.MethodGet, "/api/auctions/active", nil, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		board := decodeBody[[]AuctionResponse](t, recorder)
		require.Len(t, board, 2)
		// 結標時間較晚的排前面
		assert.Equal(t, late.ID, board[0].ProductID)
		assert.Equal(t, early.ID, board[1].ProductID)
		assert.Equal(t, models.AuctionActive, board[0].AuctionStatus)
		assert.Positive(t, board[0].TimeRemainingSeconds)
	})

	t.Run("default page is served from cache", func(t *testing.T) {
		// 準備測試環境: 掛上看板快取
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		impl.boardCache = redisAdapter.NewCache[[]AuctionResponse](impl.redisClient)
		seller := createTestUser(t, impl.db, "seller")
		createAuction(t, impl.db, seller, 10, 1)

		first := performRequest(t, router, http.MethodGet, "/api/auctions/active", nil, "")
		require.Equal(t, http.StatusOK, first.Code)
		require.Len(t, decodeBody[[]AuctionResponse](t, first), 1)

		// 快取填入後，資料庫的變動在 TTL 內不反映
		createAuction(t, impl.db, seller, 20, 1)
		second := performRequest(t, router, http.MethodGet, "/api/auctions/active", nil, "")
		require.Equal(t, http.StatusOK, second.Code)
		assert.Len(t, decodeBody[[]AuctionResponse](t, second), 1)

		// 非預設分頁不走快取
		paged := performRequest(t, router, http.MethodGet, "/api/auctions/active?limit=30", nil, "")
		require.Equal(t, http.StatusOK, paged.Code)
		assert.Len(t, decodeBody[[]AuctionResponse](t, paged), 2)
	})
}

func TestGetAuctionsProductID(t *testing.T) {
	t.Run("auction detail", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		product := createAuction(t, impl.db, seller, 50, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = performRequest(t, router, http.MethodGet, "/api/auctions/"+product.ID.String(), nil, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody[AuctionResponse](t, recorder)
		assert.Equal(t, product.ID, body.ProductID)
		assert.Equal(t, "Vintage Camera", body.ProductTitle)
		assert.InDelta(t, 50, body.StartingPrice, 0.001)
		require.NotNil(t, body.CurrentBid)
		assert.InDelta(t, 50, *body.CurrentBid, 0.001)
		require.NotNil(t, body.CurrentBidderUsername)
		assert.Equal(t, "bidder", *body.CurrentBidderUsername)
		assert.EqualValues(t, 1, body.BidCount)
	})

	t.Run("regular product is not an auction", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		product := createProduct(t, impl.db, seller, 20)

		recorder := performRequest(t, router, http.MethodGet, "/api/auctions/"+product.ID.String(), nil, "")

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Product is not an auction", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, router, cleanup := setupServer(t)
		defer cleanup()

		recorder := performRequest(t, router, http.MethodGet,
			"/api/auctions/a2180e79-1c9a-4b8d-9c19-4a4a6d616a61", nil, "")

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestGetAuctionsProductIDBids(t *testing.T) {
	t.Run("bid history newest first", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		first := createTestUser(t, impl.db, "first")
		second := createTestUser(t, impl.db, "second")
		fundWallet(t, impl, first, 200)
		fundWallet(t, impl, second, 200)
		product := createAuction(t, impl.db, seller, 50, 5)

		for _, step := range []struct {
			user   *models.User
			amount float64
		}{{first, 50}, {second, 60}, {first, 70}} {
			recorder := performRequest(t, router, http.MethodPost,
				"/api/auctions/"+product.ID.String()+"/bid",
				BidRequest{BidAmount: step.amount}, authToken(t, impl, step.user))
			require.Equal(t, http.StatusOK, recorder.Code)
		}

		recorder := performRequest(t, router, http.MethodGet,
			"/api/auctions/"+product.ID.String()+"/bids", nil, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		bids := decodeBody[[]BidResponse](t, recorder)
		require.Len(t, bids, 3)
		assert.InDelta(t, 70, bids[0].BidAmount, 0.001)
		assert.InDelta(t, 60, bids[1].BidAmount, 0.001)
		assert.InDelta(t, 50, bids[2].BidAmount, 0.001)
		assert.True(t, bids[0].IsWinningBid)
		assert.Equal(t, "first", bids[0].BidderUsername)
		// 只有換人出價才算被超越
		assert.True(t, bids[1].IsOutbid)
		assert.False(t, bids[2].IsOutbid)
	})
}

func TestPostAuctionsProductIDCompletePayment(t *testing.T) {
	t.Run("winner pays current bid plus processing fee", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)

		// 結標並指定得標者，同時模擬結標時加入購物車的提示項目
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)
		require.NoError(t, impl.db.Create(&models.CartItem{
			UserID: winner.ID, ProductID: product.ID, Quantity: 1,
		}).Error)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/complete-payment", nil, authToken(t, impl, winner))

		// 驗證結果: 總額50、手續費2%、無運費
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody[AuctionPaymentResponse](t, recorder)
		assert.True(t, body.Success)
		assert.Equal(t, "Payment completed successfully", body.Message)
		assert.InDelta(t, 50, body.TotalAmount, 0.001)
		assert.InDelta(t, 1, body.ProcessingFee, 0.001)
		assert.InDelta(t, 0, body.ShippingFee, 0.001)
		assert.InDelta(t, 51, body.TotalCharge, 0.001)

		// 買家扣款51，賣家入帳50，差額留在平台的手續費帳上
		buyerWallet := walletOf(t, impl.db, winner)
		assert.InDelta(t, 49, buyerWallet.Balance, 0.001)
		assert.InDelta(t, 51, buyerWallet.TotalSpent, 0.001)
		sellerWallet := walletOf(t, impl.db, seller)
		assert.InDelta(t, 50, sellerWallet.Balance, 0.001)
		assert.InDelta(t, 50, sellerWallet.TotalEarned, 0.001)

		// 保留資金升級成完成的付款分錄
		payment := models.WalletTransaction{}
		require.NoError(t, impl.db.Where("reference = ? AND user_id = ?",
			product.HoldReference(), winner.ID).First(&payment).Error)
		assert.Equal(t, models.TransactionCompleted, payment.Status)
		assert.InDelta(t, 51, payment.Amount, 0.001)

		// 訂單成立且採即時撥付
		order := models.Order{ID: body.OrderID}
		require.NoError(t, impl.db.Preload("Items").First(&order).Error)
		assert.Equal(t, models.OrderConfirmed, order.Status)
		assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
		assert.Equal(t, models.ImmediateSettlement, order.SettlementPolicy)
		assert.InDelta(t, 50, order.TotalAmount, 0.001)
		require.Len(t, order.Items, 1)
		assert.Equal(t, 1, order.Items[0].Quantity)
		assert.InDelta(t, 50, order.Items[0].UnitPrice, 0.001)

		fee := models.FeeRecord{}
		require.NoError(t, impl.db.Where("order_id = ? AND kind = ?",
			order.ID, models.FeeProcessing).First(&fee).Error)
		assert.InDelta(t, 1, fee.Amount, 0.001)

		// 商品結清，購物車的提示項目移除
		reloaded := models.Product{ID: product.ID}
		require.NoError(t, impl.db.First(&reloaded).Error)
		assert.True(t, reloaded.WinnerPaid)
		assert.True(t, reloaded.IsSold)
		assert.InDelta(t, 50, reloaded.Price, 0.001)
		var cartCount int64
		require.NoError(t, impl.db.Model(&models.CartItem{}).
			Where("user_id = ?", winner.ID).Count(&cartCount).Error)
		assert.Zero(t, cartCount)

		// 雙方錢包對帳一致
		for _, user := range []*models.User{winner, seller} {
			report, err := impl.ledger.Reconcile(context.Background(), user.ID)
			require.NoError(t, err)
			assert.True(t, report.Consistent, "wallet of %s drifted", user.Username)
		}
	})

	t.Run("shipping fee added from coordinates", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		// 赤道上經度差0.045度約等於5公里
		giveLocation(t, impl.db, seller, 0, 0)
		giveLocation(t, impl.db, winner, 0, 0.045)
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/complete-payment?include_shipping=true",
			nil, authToken(t, impl, winner))

		// 驗證結果: 運費 = 基本費2 + 5公里 * 0.5
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody[AuctionPaymentResponse](t, recorder)
		assert.InDelta(t, 4.5, body.ShippingFee, 0.001)
		assert.InDelta(t, 55.5, body.TotalCharge, 0.001)

		order := models.Order{ID: body.OrderID}
		require.NoError(t, impl.db.First(&order).Error)
		require.NotNil(t, order.ShippingDistanceKm)
		assert.InDelta(t, 5.0, *order.ShippingDistanceKm, 0.01)
		var feeKinds []models.FeeRecord
		require.NoError(t, impl.db.Where("order_id = ?", order.ID).Find(&feeKinds).Error)
		assert.Len(t, feeKinds, 2)
		assert.InDelta(t, 44.5, walletOf(t, impl.db, winner).Balance, 0.001)
	})

	t.Run("no shipping fee inside free radius", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		giveLocation(t, impl.db, seller, -6.7924, 39.2083)
		giveLocation(t, impl.db, winner, -6.7924, 39.2083)
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)

		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/complete-payment?include_shipping=true",
			nil, authToken(t, impl, winner))

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody[AuctionPaymentResponse](t, recorder)
		assert.InDelta(t, 0, body.ShippingFee, 0.001)
		assert.InDelta(t, 51, body.TotalCharge, 0.001)
	})

	t.Run("shipping requires both locations", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)
		target := "/api/auctions/" + product.ID.String() + "/complete-payment?include_shipping=true"

		// 買家未登記座標
		recorder = performRequest(t, router, http.MethodPost, target, nil, authToken(t, impl, winner))
		require.Equal(t, http.StatusPreconditionFailed, recorder.Code)
		assert.Equal(t, "Add your address with location details before selecting Sokoni Africa logistics.",
			decodeBody[ErrorResponse](t, recorder).Message)

		// 買家有座標但賣家沒有
		giveLocation(t, impl.db, winner, -6.7924, 39.2083)
		recorder = performRequest(t, router, http.MethodPost, target, nil, authToken(t, impl, winner))
		require.Equal(t, http.StatusPreconditionFailed, recorder.Code)
		assert.Equal(t, "Seller has not provided a pickup location yet. Contact the seller for delivery arrangements.",
			decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("only the winner can pay", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		stranger := createTestUser(t, impl.db, "stranger")
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/complete-payment", nil, authToken(t, impl, stranger))

		require.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "You are not the winner of this auction", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("cannot pay before auction ends", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/complete-payment", nil, authToken(t, impl, winner))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Auction has not ended yet", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("double payment is rejected", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		winner := createTestUser(t, impl.db, "winner")
		fundWallet(t, impl, winner, 100)
		product := createAuction(t, impl.db, seller, 40, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+product.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NoError(t, impl.db.Model(product).Updates(map[string]any{
			"auction_status": models.AuctionEnded,
			"winner_id":      winner.ID,
		}).Error)
		target := "/api/auctions/" + product.ID.String() + "/complete-payment"

		recorder = performRequest(t, router, http.MethodPost, target, nil, authToken(t, impl, winner))
		require.Equal(t, http.StatusOK, recorder.Code)
		balanceAfterFirst := walletOf(t, impl.db, winner).Balance

		recorder = performRequest(t, router, http.MethodPost, target, nil, authToken(t, impl, winner))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Payment already completed for this auction", decodeBody[ErrorResponse](t, recorder).Message)
		assert.InDelta(t, balanceAfterFirst, walletOf(t, impl.db, winner).Balance, 0.001)
	})
}
