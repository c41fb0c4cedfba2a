package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sokoni/models"
)

// PurgeResponse 手動清除過期拍賣的結果
type PurgeResponse struct {
	Message     string `json:"message"`
	PurgedCount int    `json:"purged_count"`
}

// registerJobs 把拍賣生命週期的背景任務掛上排程器
func (impl *ServerImpl) registerJobs() error {
	err := impl.scheduler.Register("auction-sweep", impl.config.Auction.SweepInterval, impl.sweepAuctions)
	if err != nil {
		return err
	}
	err = impl.scheduler.Register("auction-purge", impl.config.Auction.PurgeInterval, func(ctx context.Context) error {
		_, err := impl.purgeExpiredAuctions(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return nil
}

// sweepAuctions 推進所有拍賣的生命週期
// 到點的 pending 轉 active，到期的 active 結標並決定得標者
func (impl *ServerImpl) sweepAuctions(ctx context.Context) error {
	const op = "sweepAuctions"
	now := time.Now()

	activated := impl.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_auction = ? AND auction_status = ? AND auction_start_time <= ?",
			true, models.AuctionPending, now).
		Update("auction_status", models.AuctionActive)
	if activated.Error != nil {
		return fmt.Errorf("[%s] Fail to activate pending auctions, err=%w", op, activated.Error)
	}
	if activated.RowsAffected > 0 {
		slog.Info("Auctions activated", slog.Int64("count", activated.RowsAffected))
	}

	due := []models.Product{}
	if result := impl.db.WithContext(ctx).
		Where("is_auction = ? AND auction_status = ? AND auction_end_time <= ?",
			true, models.AuctionActive, now).
		Find(&due); result.Error != nil {
		return fmt.Errorf("[%s] Fail to list due auctions, err=%w", op, result.Error)
	}
	// 單場結標失敗不中斷整輪掃描，下一輪會重試
	for i := range due {
		if err := impl.endAuction(ctx, &due[i]); err != nil {
			slog.Error("Fail to end auction",
				slog.String("productID", due[i].ID.String()), slog.Any("error", err))
		}
	}
	return nil
}

// endAuction 結束單場拍賣
// 狀態轉移用條件更新，同一場拍賣被掃到兩次也只會結標一次
func (impl *ServerImpl) endAuction(ctx context.Context, product *models.Product) error {
	const op = "endAuction"
	winnerID := product.CurrentBidderID
	ended := false
	err := impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"auction_status": models.AuctionEnded}
		if winnerID != nil {
			updates["winner_id"] = *winnerID
			if product.CurrentBid != nil {
				// 商品定價更新為得標價，購物車和訂單顯示一致
				updates["price"] = *product.CurrentBid
			}
		}
		result := tx.Model(&models.Product{}).
			Where("id = ? AND auction_status = ?", product.ID, models.AuctionActive).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("[%s] Fail to update product, err=%w", op, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		ended = true
		if winnerID == nil {
			return nil
		}

		// 得標商品自動放進購物車，已在車上就不重複加
		cartItem := models.CartItem{}
		err := tx.Where("user_id = ? AND product_id = ?", *winnerID, product.ID).First(&cartItem).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cartItem = models.CartItem{UserID: *winnerID, ProductID: product.ID, Quantity: 1}
			if err := tx.Create(&cartItem).Error; err != nil {
				return fmt.Errorf("[%s] Fail to add product to winner cart, err=%w", op, err)
			}
		} else if err != nil {
			return fmt.Errorf("[%s] Fail to check winner cart, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !ended {
		return nil
	}
	if winnerID == nil {
		slog.Info("Auction ended with no bids", slog.String("productID", product.ID.String()))
		return nil
	}
	slog.Info("Auction ended",
		slog.String("productID", product.ID.String()),
		slog.String("winner", winnerID.String()))

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:           *winnerID,
		Type:             models.NotificationAuction,
		Title:            "You Won the Auction!",
		Message:          fmt.Sprintf("Congratulations! You won the auction for '%s'. The item has been added to your cart. Please complete payment to secure your purchase.", product.Title),
		RelatedProductID: &product.ID,
	})
	impl.notifier.Notify(ctx, &models.Notification{
		UserID:           product.SellerID,
		Type:             models.NotificationAuction,
		Title:            "Auction Ended",
		Message:          fmt.Sprintf("Your auction for '%s' has ended. Winner: User ID %s. Waiting for payment.", product.Title, *winnerID),
		RelatedUserID:    winnerID,
		RelatedProductID: &product.ID,
	})

	// 中途被超越的人當下已收過通知，這裡補通知其餘的落選出價者
	bidderIDs := []uuid.UUID{}
	err = impl.db.WithContext(ctx).Model(&models.Bid{}).
		Where("product_id = ? AND bidder_id <> ? AND is_outbid = ?", product.ID, *winnerID, false).
		Distinct().Pluck("bidder_id", &bidderIDs).Error
	if err != nil {
		return fmt.Errorf("[%s] Fail to list losing bidders, err=%w", op, err)
	}
	for _, bidderID := range bidderIDs {
		impl.notifier.Notify(ctx, &models.Notification{
			UserID:           bidderID,
			Type:             models.NotificationAuction,
			Title:            "Auction Ended",
			Message:          fmt.Sprintf("The auction for '%s' has ended. You were outbid.", product.Title),
			RelatedProductID: &product.ID,
		})
	}
	return nil
}

// purgeExpiredAuctions 清除保留期限已過的結標拍賣
// 已付款的拍賣連著訂單紀錄，不在清除範圍
func (impl *ServerImpl) purgeExpiredAuctions(ctx context.Context) (int, error) {
	const op = "purgeExpiredAuctions"
	cutoff := time.Now().Add(-impl.config.Auction.PurgeRetention)

	expired := []models.Product{}
	if result := impl.db.WithContext(ctx).Unscoped().
		Where("is_auction = ? AND auction_status = ? AND winner_paid = ? AND auction_end_time <= ?",
			true, models.AuctionEnded, false, cutoff).
		Find(&expired); result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to list expired auctions, err=%w", op, result.Error)
	}

	purged := 0
	mediaKeys := []string{}
	for i := range expired {
		product := &expired[i]
		err := impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// 得標者一直沒付款的話，把仍保留中的資金退回
			_, err := impl.ledger.WithTx(tx).CancelHold(ctx, product.HoldReference())
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
			if result := tx.Unscoped().Where("product_id = ?", product.ID).Delete(&models.Bid{}); result.Error != nil {
				return result.Error
			}
			if result := tx.Unscoped().Where("product_id = ?", product.ID).Delete(&models.CartItem{}); result.Error != nil {
				return result.Error
			}
			if result := tx.Unscoped().Delete(product); result.Error != nil {
				return result.Error
			}
			return nil
		})
		if err != nil {
			slog.Error("Fail to purge expired auction",
				slog.String("productID", product.ID.String()), slog.Any("error", err))
			continue
		}
		purged++
		mediaKeys = append(mediaKeys, product.MediaKeys...)
	}
	if purged > 0 {
		slog.Info("Expired auctions purged", slog.Int("count", purged))
	}

	// 資料庫已清完，物件儲存清不掉只記錄下來
	if len(mediaKeys) > 0 {
		if err := impl.s3Operator.DeleteFilesFromS3(ctx, mediaKeys...); err != nil {
			slog.Warn("Fail to delete auction media", slog.Any("error", err))
		}
	}
	return purged, nil
}

// Purge expired auction records immediately
// (POST /api/auctions/purge)
func (impl *ServerImpl) PostAuctionsPurge(c *gin.Context) {
	const op = "PostAuctionsPurge"
	purged, err := impl.purgeExpiredAuctions(c.Request.Context())
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to purge expired auctions, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, PurgeResponse{
		Message:     fmt.Sprintf("Purged %d expired auction(s)", purged),
		PurgedCount: purged,
	})
}
