package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"sokoni/adapters/ledger"
	redisAdapter "sokoni/adapters/redis"
	"sokoni/models"
)

// BidRequest 出價參數
type BidRequest struct {
	BidAmount float64 `json:"bid_amount" binding:"required"`
}

// BidEvent 廣播給訂閱者的出價事件
type BidEvent struct {
	ProductID      uuid.UUID `json:"product_id"`
	BidderID       uuid.UUID `json:"bidder_id"`
	BidderUsername string    `json:"bidder_username"`
	BidAmount      float64   `json:"bid_amount"`
	BidTime        time.Time `json:"bid_time"`
}

// List active auctions, most recently ending first
// (GET /api/auctions/active)
func (impl *ServerImpl) GetAuctionsActive(c *gin.Context) {
	const op = "GetAuctionsActive"
	ctx := c.Request.Context()
	now := time.Now()

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	// 看板的預設頁走快取，出價端不主動失效，靠短 TTL 收斂
	cacheKey := fmt.Sprintf("%sauctions:board", impl.config.Redis.KeyPrefix)
	useCache := skip == 0 && limit == 20 && impl.boardCache != nil
	if useCache {
		cached, err := impl.boardCache.Get(ctx, cacheKey)
		if err != nil {
			slog.Warn("Fail to read auction board cache", slog.String("op", op), slog.Any("error", err))
		} else if cached != nil {
			c.JSON(http.StatusOK, *cached)
			return
		}
	}

	products := []models.Product{}
	if result := impl.db.WithContext(ctx).
		Preload("CurrentBidder").Preload("Winner").
		Where("is_auction = ? AND auction_status = ? AND auction_end_time > ?",
			true, models.AuctionActive, now).
		Order("auction_end_time DESC").Offset(skip).Limit(limit).
		Find(&products); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list active auctions, err=%w", op, result.Error))
		return
	}

	counts, err := impl.bidCounts(c, lo.Map(products, func(p models.Product, _ int) uuid.UUID { return p.ID }))
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to count bids, err=%w", op, err))
		return
	}
	board := lo.Map(products, func(product models.Product, _ int) AuctionResponse {
		return impl.toAuctionResponse(&product, counts[product.ID], now)
	})

	if useCache {
		if err := impl.boardCache.Set(ctx, cacheKey, board, impl.config.Auction.BoardCacheTTL); err != nil {
			slog.Warn("Fail to cache auction board", slog.String("op", op), slog.Any("error", err))
		}
	}
	c.JSON(http.StatusOK, board)
}

// Get auction details by product ID
// (GET /api/auctions/:product_id)
func (impl *ServerImpl) GetAuctionsProductID(c *gin.Context) {
	const op = "GetAuctionsProductID"
	ctx := c.Request.Context()
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).
		Preload("CurrentBidder").Preload("Winner").
		First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if !product.IsAuction {
		abortWithMessage(c, http.StatusBadRequest, "Product is not an auction")
		return
	}
	counts, err := impl.bidCounts(c, []uuid.UUID{product.ID})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to count bids, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, impl.toAuctionResponse(&product, counts[product.ID], time.Now()))
}

// Get bid history for an auction, most recent first
// (GET /api/auctions/:product_id/bids)
func (impl *ServerImpl) GetAuctionsProductIDBids(c *gin.Context) {
	const op = "GetAuctionsProductIDBids"
	ctx := c.Request.Context()
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if !product.IsAuction {
		abortWithMessage(c, http.StatusBadRequest, "Product is not an auction")
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	bids := []models.Bid{}
	if result := impl.db.WithContext(ctx).
		Preload("Bidder").
		Where("product_id = ?", product.ID).
		Order("bid_time DESC").Offset(skip).Limit(limit).
		Find(&bids); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list bids, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, lo.Map(bids, func(bid models.Bid, _ int) BidResponse {
		return impl.toBidResponse(&bid)
	}))
}

// Place a bid on an auction
// (POST /api/auctions/:product_id/bid)
func (impl *ServerImpl) PostAuctionsProductIDBid(c *gin.Context) {
	const op = "PostAuctionsProductIDBid"
	ctx := c.Request.Context()
	user := currentUser(c)
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	var body BidRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Bid amount is required")
		return
	}

	// 鎖外先做不變的檢查，省掉明顯無效請求的鎖競爭
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if !product.IsAuction {
		abortWithMessage(c, http.StatusBadRequest, "Product is not an auction")
		return
	}
	if product.SellerID == user.ID {
		abortWithMessage(c, http.StatusBadRequest, "You cannot bid on your own auction")
		return
	}

	// 取得Redis上商品的出價鎖，同一拍賣的出價序列化處理
	lockKey := fmt.Sprintf("%sauction:%s:lock", impl.config.Redis.KeyPrefix, productID)
	dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey)
	lockCtx, err := dMutex.Lock(ctx)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to acquire bid lock, err=%w", op, err))
		return
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			slog.Warn("Fail to release bid lock", slog.String("op", op), slog.Any("error", err))
		}
	}()

	// 鎖內重讀拍賣狀態，截止時間和出價的競爭一律以鎖內判定為準
	if result := impl.db.WithContext(lockCtx).First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to reload product, err=%w", op, result.Error))
		return
	}
	now := time.Now()
	status := models.AuctionActive
	if product.AuctionStatus != nil {
		status = *product.AuctionStatus
	}
	if product.AuctionEndedAt(now) || status == models.AuctionEnded {
		abortWithMessage(c, http.StatusBadRequest, "Auction has ended")
		return
	}
	if status != models.AuctionActive {
		abortWithMessage(c, http.StatusBadRequest, fmt.Sprintf("Cannot place bid. Auction status: %s", status))
		return
	}
	if minBid := product.MinimumBid(); body.BidAmount < minBid {
		abortWithError(c, models.Errorf(models.ErrInvalidBid, "Bid amount must be at least %.2f Sokocoin", minBid))
		return
	}

	previousBidderID := product.CurrentBidderID
	bid := models.Bid{
		ProductID: product.ID,
		BidderID:  user.ID,
		Amount:    body.BidAmount,
		BidTime:   now,
		IsWinning: true,
	}
	err = impl.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		txLedger := impl.ledger.WithTx(tx)
		// 退還上一位出價者的保留資金；出價失敗時整筆交易回滾，原保留不受影響
		if previousBidderID != nil {
			if _, err := txLedger.CancelHold(lockCtx, product.HoldReference()); err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
		}
		_, err := txLedger.Hold(lockCtx, ledger.EntryParams{
			UserID:      user.ID,
			Amount:      body.BidAmount,
			Type:        models.TransactionPurchase,
			Description: fmt.Sprintf("Bid hold - %s", product.Title),
			Reference:   product.HoldReference(),
			Extra:       &models.TransactionExtra{ProductID: &product.ID},
		})
		if err != nil {
			return err
		}

		// 上一筆最高出價讓位；自己加價不算被超越
		if previousBidderID != nil {
			updates := map[string]any{"is_winning": false}
			if *previousBidderID != user.ID {
				updates["is_outbid"] = true
			}
			err := tx.Model(&models.Bid{}).
				Where("product_id = ? AND is_winning = ?", product.ID, true).
				Updates(updates).Error
			if err != nil {
				return fmt.Errorf("[%s] Fail to mark previous bid, err=%w", op, err)
			}
		}
		if err := tx.Create(&bid).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create bid, err=%w", op, err)
		}
		err = tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Updates(map[string]any{"current_bid": body.BidAmount, "current_bidder_id": user.ID}).Error
		if err != nil {
			return fmt.Errorf("[%s] Fail to update product, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	slog.Info("Higher bid occurs",
		slog.String("user", user.ID.String()),
		slog.Float64("bid", body.BidAmount),
		slog.String("productID", product.ID.String()))

	// 廣播出價事件給訂閱中的看板與詳情頁
	event := BidEvent{
		ProductID:      product.ID,
		BidderID:       user.ID,
		BidderUsername: user.Username,
		BidAmount:      body.BidAmount,
		BidTime:        now,
	}
	if err := impl.sseManager.Publish(product.ID.String(), event); err != nil {
		slog.Warn("Fail to publish bid event", slog.String("productID", product.ID.String()), slog.Any("error", err))
	}

	if previousBidderID != nil && *previousBidderID != user.ID {
		impl.notifier.Notify(ctx, &models.Notification{
			UserID:           *previousBidderID,
			Type:             models.NotificationAuction,
			Title:            "You Were Outbid",
			Message:          fmt.Sprintf("Someone placed a higher bid on '%s'. Current bid: %.2f Sokocoin", product.Title, body.BidAmount),
			RelatedProductID: &product.ID,
		})
	}
	impl.notifier.Notify(ctx, &models.Notification{
		UserID:           product.SellerID,
		Type:             models.NotificationAuction,
		Title:            "New Bid Received",
		Message:          fmt.Sprintf("A new bid of %.2f Sokocoin was placed on '%s'", body.BidAmount, product.Title),
		RelatedProductID: &product.ID,
		RelatedUserID:    &user.ID,
	})

	bid.Bidder = user
	c.JSON(http.StatusOK, impl.toBidResponse(&bid))
}

// Complete payment for a won auction
// (POST /api/auctions/:product_id/complete-payment)
func (impl *ServerImpl) PostAuctionsProductIDCompletePayment(c *gin.Context) {
	const op = "PostAuctionsProductIDCompletePayment"
	ctx := c.Request.Context()
	user := currentUser(c)
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	includeShipping, _ := strconv.ParseBool(c.DefaultQuery("include_shipping", "false"))

	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).Preload("Seller").First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if !product.IsAuction {
		abortWithMessage(c, http.StatusBadRequest, "Product is not an auction")
		return
	}
	if product.AuctionStatus == nil || *product.AuctionStatus != models.AuctionEnded {
		abortWithMessage(c, http.StatusBadRequest, "Auction has not ended yet")
		return
	}
	if product.WinnerID == nil || *product.WinnerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You are not the winner of this auction")
		return
	}
	if product.WinnerPaid {
		abortWithMessage(c, http.StatusBadRequest, "Payment already completed for this auction")
		return
	}
	seller := product.Seller
	if seller == nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to resolve seller of product %s", op, product.ID))
		return
	}

	totalAmount := 0.0
	if product.CurrentBid != nil {
		totalAmount = *product.CurrentBid
	} else if product.StartingPrice != nil {
		totalAmount = *product.StartingPrice
	}

	var shippingFee float64
	var distance *float64
	if includeShipping {
		if !user.HasLocation() {
			abortWithMessage(c, http.StatusPreconditionFailed, "Add your address with location details before selecting Sokoni Africa logistics.")
			return
		}
		if !seller.HasLocation() {
			abortWithMessage(c, http.StatusPreconditionFailed, "Seller has not provided a pickup location yet. Contact the seller for delivery arrangements.")
			return
		}
		distance = impl.shipping.DistanceBetween(user.Latitude, user.Longitude, seller.Latitude, seller.Longitude)
		shippingFee = impl.shipping.FeeForDistance(distance)
	}

	processingFee := round2(totalAmount * impl.config.Fees.ProcessingRate)
	totalCharge := totalAmount + processingFee + shippingFee

	shippingAddress := user.LocationAddress
	if shippingAddress == "" {
		shippingAddress = "Address not provided"
	}
	order := models.Order{
		BuyerID:            user.ID,
		SellerID:           product.SellerID,
		TotalAmount:        totalAmount,
		ProcessingFee:      processingFee,
		ShippingFee:        shippingFee,
		ShippingDistanceKm: distance,
		Status:             models.OrderConfirmed,
		PaymentStatus:      models.PaymentPaid,
		SettlementPolicy:   models.ImmediateSettlement,
		ShippingAddress:    shippingAddress,
	}
	err = impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txLedger := impl.ledger.WithTx(tx)
		// 得標時的保留資金升級成實際付款，手續費與運費的差額自餘額補扣
		_, err := txLedger.ReleaseHold(ctx, product.HoldReference(), ledger.ReleaseParams{
			FinalAmount: totalCharge,
			Description: fmt.Sprintf("Payment for auction win: %s", product.Title),
			Extra: &models.TransactionExtra{
				ProductID:          &product.ID,
				Subtotal:           lo.ToPtr(totalAmount),
				ProcessingFee:      lo.ToPtr(processingFee),
				ShippingFee:        lo.ToPtr(shippingFee),
				ShippingDistanceKm: distance,
			},
		})
		if err != nil {
			return err
		}
		// 拍賣採即時撥付，賣家收入直接入帳，與買家付款共用參考號
		_, err = txLedger.Credit(ctx, ledger.EntryParams{
			UserID:      product.SellerID,
			Amount:      totalAmount,
			Type:        models.TransactionEarn,
			Description: fmt.Sprintf("Earning from auction sale: %s", product.Title),
			Reference:   product.HoldReference(),
			Extra:       &models.TransactionExtra{ProductID: &product.ID, Subtotal: lo.ToPtr(totalAmount)},
		})
		if err != nil {
			return err
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create order, err=%w", op, err)
		}
		item := models.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: totalAmount}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create order item, err=%w", op, err)
		}

		fees := []models.FeeRecord{}
		if processingFee > 0 {
			fees = append(fees, models.FeeRecord{OrderID: order.ID, Kind: models.FeeProcessing, Amount: processingFee})
		}
		if shippingFee > 0 {
			fees = append(fees, models.FeeRecord{OrderID: order.ID, Kind: models.FeeShipping, Amount: shippingFee})
		}
		if len(fees) > 0 {
			if err := tx.Create(&fees).Error; err != nil {
				return fmt.Errorf("[%s] Fail to record fees, err=%w", op, err)
			}
		}

		// 結清後商品標記售出，並從得標者購物車移除
		err = tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Updates(map[string]any{"winner_paid": true, "is_sold": true, "price": totalAmount}).Error
		if err != nil {
			return fmt.Errorf("[%s] Fail to update product, err=%w", op, err)
		}
		err = tx.Where("user_id = ? AND product_id = ?", user.ID, product.ID).Delete(&models.CartItem{}).Error
		if err != nil {
			return fmt.Errorf("[%s] Fail to clear cart item, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:           user.ID,
		Type:             models.NotificationOrder,
		Title:            "Payment Successful",
		Message:          fmt.Sprintf("Your payment for '%s' has been processed successfully. Order ID: %s", product.Title, order.ID),
		RelatedOrderID:   &order.ID,
		RelatedProductID: &product.ID,
	})
	impl.notifier.Notify(ctx, &models.Notification{
		UserID:           product.SellerID,
		Type:             models.NotificationOrder,
		Title:            "Auction Payment Received",
		Message:          fmt.Sprintf("The winner has completed payment for '%s'. Order ID: %s", product.Title, order.ID),
		RelatedOrderID:   &order.ID,
		RelatedProductID: &product.ID,
	})

	c.JSON(http.StatusOK, AuctionPaymentResponse{
		Success:       true,
		Message:       "Payment completed successfully",
		OrderID:       order.ID,
		TotalAmount:   totalAmount,
		ProcessingFee: processingFee,
		ShippingFee:   shippingFee,
		TotalCharge:   totalCharge,
	})
}

// Track live bid events for an auction
// (GET /api/auctions/:product_id/live)
func (impl *ServerImpl) GetAuctionsProductIDLive(c *gin.Context) {
	const op = "GetAuctionsProductIDLive"
	ctx := c.Request.Context()
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if !product.IsAuction {
		abortWithMessage(c, http.StatusBadRequest, "Product is not an auction")
		return
	}
	if product.AuctionEndedAt(time.Now()) || (product.AuctionStatus != nil && *product.AuctionStatus == models.AuctionEnded) {
		abortWithMessage(c, http.StatusGone, "Auction has ended")
		return
	}

	// SSE請求合法,開始初始化串流
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	ch, err := impl.sseManager.Subscribe(product.ID.String())
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to subscribe to bid events, err=%w", op, err))
		return
	}
LOOP:
	for {
		select {
		case <-w.CloseNotify():
			impl.sseManager.Unsubscribe(product.ID.String(), ch)
			break LOOP
		case event := <-ch:
			c.SSEvent("bid", event)
			w.Flush()
		// 30秒沒有事件就發送一個空行，確保瀏覽器和代理不會斷開連線
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}
