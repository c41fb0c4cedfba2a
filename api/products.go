package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"sokoni/models"
)

type CreateProductRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	ImageURL    string   `json:"image_url"`
	Images      []string `json:"images"`

	IsAuction              bool     `json:"is_auction"`
	StartingPrice          *float64 `json:"starting_price"`
	BidIncrement           *float64 `json:"bid_increment"`
	AuctionDurationMinutes *int     `json:"auction_duration_minutes"`
	AuctionDurationHours   *float64 `json:"auction_duration_hours"`
}

type UpdateProductRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	ImageURL    *string  `json:"image_url"`
	Images      []string `json:"images"`
}

// mediaKeys 將公開網址換回物件儲存的鍵
// 只認得指向自家公開端點的網址，其他來源的網址不納入媒體清單
func (impl *ServerImpl) mediaKeys(urls []string) []string {
	keys := make([]string, 0, len(urls))
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host != impl.s3Operator.PublicEndpoint.Host {
			continue
		}
		key := strings.TrimPrefix(parsed.Path, "/")
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// auctionDurationMinutes 驗證拍賣期間並統一換算成分鐘
// 以分鐘為準，小時欄位是舊版客戶端的相容入口
func auctionDurationMinutes(minutes *int, hours *float64) (int, error) {
	if minutes != nil {
		if *minutes < 1 || *minutes > 43200 {
			return 0, models.Errorf(models.ErrValidation, "Auction duration must be between 1 and 43200 minutes (720 hours)")
		}
		return *minutes, nil
	}
	if hours != nil {
		if *hours <= 0.016 || *hours > 720 {
			return 0, models.Errorf(models.ErrValidation, "Auction duration must be at least 1 minute (0.017 hours) and maximum 720 hours")
		}
		return int(math.Round(*hours * 60)), nil
	}
	return 0, models.Errorf(models.ErrValidation, "Auction duration is required for auction products (use auction_duration_minutes or auction_duration_hours)")
}

// bidCounts 一次撈出多個拍賣的出價次數
func (impl *ServerImpl) bidCounts(c *gin.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	type row struct {
		ProductID uuid.UUID
		Total     int64
	}
	var rows []row
	result := impl.db.WithContext(c.Request.Context()).Model(&models.Bid{}).
		Select("product_id, COUNT(*) AS total").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return lo.SliceToMap(rows, func(r row) (uuid.UUID, int64) {
		return r.ProductID, r.Total
	}), nil
}

// List products
// (GET /api/products)
func (impl *ServerImpl) GetProducts(c *gin.Context) {
	const op = "GetProducts"
	ctx := c.Request.Context()
	now := time.Now()

	query := impl.db.WithContext(ctx).Model(&models.Product{}).Preload("Seller").Preload("CurrentBidder")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", strings.ToLower(category))
	}
	if sellerID := c.Query("seller_id"); sellerID != "" {
		id, err := uuid.Parse(sellerID)
		if err != nil {
			abortWithMessage(c, http.StatusBadRequest, "Invalid seller id")
			return
		}
		query = query.Where("seller_id = ?", id)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	// 結束超過保留期限的拍賣不再出現在列表，清除工作接手處理
	cutoff := now.Add(-impl.config.Auction.PurgeRetention)
	query = query.Where("is_auction = ? OR auction_status <> ? OR auction_end_time > ?",
		false, models.AuctionEnded, cutoff)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	var products []models.Product
	if result := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&products); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list products, err=%w", op, result.Error))
		return
	}

	auctionIDs := lo.FilterMap(products, func(p models.Product, _ int) (uuid.UUID, bool) {
		return p.ID, p.IsAuction
	})
	counts, err := impl.bidCounts(c, auctionIDs)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to count bids, err=%w", op, err))
		return
	}

	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		var bidCount *int64
		if products[i].IsAuction {
			bidCount = lo.ToPtr(counts[products[i].ID])
		}
		responses = append(responses, impl.toProductResponse(&products[i], bidCount, now))
	}
	c.JSON(http.StatusOK, responses)
}

// Get product details
// (GET /api/products/:product_id)
func (impl *ServerImpl) GetProductsProductID(c *gin.Context) {
	const op = "GetProductsProductID"
	ctx := c.Request.Context()
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).
		Preload("Seller").Preload("CurrentBidder").Preload("Winner").
		First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	var bidCount *int64
	if product.IsAuction {
		counts, err := impl.bidCounts(c, []uuid.UUID{product.ID})
		if err != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to count bids, err=%w", op, err))
			return
		}
		bidCount = lo.ToPtr(counts[product.ID])
	}
	c.JSON(http.StatusOK, impl.toProductResponse(&product, bidCount, time.Now()))
}

// Create a product or auction listing
// (POST /api/products)
func (impl *ServerImpl) PostProducts(c *gin.Context) {
	const op = "PostProducts"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body CreateProductRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Title is required")
		return
	}
	// 描述可能含有使用者輸入的HTML，先過濾掉危險的部分
	body.Description = impl.htmlChecker.Sanitize(body.Description)

	product := models.Product{
		SellerID:    user.ID,
		Title:       body.Title,
		Description: body.Description,
		Category:    strings.ToLower(body.Category),
		ImageURL:    body.ImageURL,
		MediaKeys:   impl.mediaKeys(body.Images),
		IsAuction:   body.IsAuction,
	}
	if body.IsAuction {
		if body.StartingPrice == nil || *body.StartingPrice <= 0 {
			abortWithMessage(c, http.StatusBadRequest, "Starting price is required for auction products and must be greater than 0")
			return
		}
		if body.BidIncrement == nil || *body.BidIncrement <= 0 {
			abortWithMessage(c, http.StatusBadRequest, "Bid increment is required for auction products and must be greater than 0")
			return
		}
		minutes, err := auctionDurationMinutes(body.AuctionDurationMinutes, body.AuctionDurationHours)
		if err != nil {
			abortWithError(c, err)
			return
		}
		// 拍賣即刻開始，結標前不再接受任何拍賣欄位的修改
		now := time.Now()
		product.Price = *body.StartingPrice
		product.StartingPrice = body.StartingPrice
		product.BidIncrement = body.BidIncrement
		product.AuctionDurationMinutes = lo.ToPtr(minutes)
		product.AuctionStartTime = lo.ToPtr(now)
		product.AuctionEndTime = lo.ToPtr(now.Add(time.Duration(minutes) * time.Minute))
		product.AuctionStatus = lo.ToPtr(models.AuctionActive)
	} else {
		if body.Price == nil || *body.Price <= 0 {
			abortWithMessage(c, http.StatusBadRequest, "Price is required for regular products and must be greater than 0")
			return
		}
		currency := strings.ToUpper(body.Currency)
		if currency == "" {
			currency = "TZS"
		}
		if impl.config.Currency.Rate(currency) <= 0 {
			abortWithMessage(c, http.StatusBadRequest, fmt.Sprintf("Unsupported currency '%s'. Please use a supported currency.", currency))
			return
		}
		product.Price = impl.config.Currency.ToSokocoin(*body.Price, currency)
		product.LocalPrice = *body.Price
		product.LocalCurrencyCode = currency
	}

	if result := impl.db.WithContext(ctx).Create(&product); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to create product, err=%w", op, result.Error))
		return
	}
	product.Seller = user
	c.Header("Location", product.ID.String())
	c.JSON(http.StatusCreated, impl.toProductResponse(&product, nil, time.Now()))
}

// Update a product listing
// (PUT /api/products/:product_id)
func (impl *ServerImpl) PutProductsProductID(c *gin.Context) {
	const op = "PutProductsProductID"
	ctx := c.Request.Context()
	user := currentUser(c)
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Product not found")
		return
	}
	var body UpdateProductRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	product := models.Product{ID: productID}
	if result := impl.db.WithContext(ctx).Preload("Seller").First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	if product.SellerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You don't have permission to update this product")
		return
	}

	if body.Title != nil {
		product.Title = *body.Title
	}
	if body.Description != nil {
		product.Description = impl.htmlChecker.Sanitize(*body.Description)
	}
	if body.Category != nil {
		product.Category = strings.ToLower(*body.Category)
	}
	if body.ImageURL != nil {
		product.ImageURL = *body.ImageURL
	}
	if body.Images != nil {
		product.MediaKeys = impl.mediaKeys(body.Images)
	}
	// 拍賣的價格由出價決定，售價調整只開放給一般商品
	if !product.IsAuction && body.Price != nil {
		if *body.Price <= 0 {
			abortWithMessage(c, http.StatusBadRequest, "Price is required for regular products and must be greater than 0")
			return
		}
		currency := product.LocalCurrencyCode
		if body.Currency != nil {
			currency = strings.ToUpper(*body.Currency)
		}
		if currency == "" {
			currency = "TZS"
		}
		if impl.config.Currency.Rate(currency) <= 0 {
			abortWithMessage(c, http.StatusBadRequest, fmt.Sprintf("Unsupported currency '%s'. Please use a supported currency.", currency))
			return
		}
		product.Price = impl.config.Currency.ToSokocoin(*body.Price, currency)
		product.LocalPrice = *body.Price
		product.LocalCurrencyCode = currency
	}

	if result := impl.db.WithContext(ctx).Save(&product); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to update product, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, impl.toProductResponse(&product, nil, time.Now()))
}

// Delete a product listing
// (DELETE /api/products/:product_id)
func (impl *ServerImpl) DeleteProductsProductID(c *gin.Context) {
	const op = "DeleteProductsProductID"
	ctx := c.Request.Context()
	user := currentUser(c)
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
	if product.SellerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You don't have permission to delete this product")
		return
	}
	// 有人出價的進行中拍賣不能下架，結標或清除流程才能處理它
	if product.IsAuction && product.AuctionStatus != nil &&
		*product.AuctionStatus == models.AuctionActive && product.CurrentBid != nil {
		abortWithMessage(c, http.StatusBadRequest, "Cannot delete an active auction that already has bids")
		return
	}

	err = impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 下架拍賣時先退還目前最高出價者被保留的資金
		if product.IsAuction {
			if _, err := impl.ledger.WithTx(tx).CancelHold(ctx, product.HoldReference()); err != nil &&
				!errors.Is(err, models.ErrNotFound) {
				return err
			}
			if result := tx.Where("product_id = ?", product.ID).Delete(&models.Bid{}); result.Error != nil {
				return result.Error
			}
			// 尚未結標的拍賣下架視同取消，結標的保留最終狀態
			if result := tx.Model(&models.Product{}).
				Where("id = ? AND auction_status IN ?", product.ID,
					[]models.AuctionStatus{models.AuctionPending, models.AuctionActive}).
				Update("auction_status", models.AuctionCancelled); result.Error != nil {
				return result.Error
			}
		}
		if result := tx.Where("product_id = ?", product.ID).Delete(&models.CartItem{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Delete(&product); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to delete product, err=%w", op, err))
		return
	}

	// 資料已刪除，物件儲存清不掉只記錄下來，不影響回應
	if len(product.MediaKeys) > 0 {
		if err := impl.s3Operator.DeleteFilesFromS3(ctx, product.MediaKeys...); err != nil {
			slog.Warn("Fail to delete product media", slog.String("productID", product.ID.String()), slog.Any("error", err))
		}
	}
	c.Status(http.StatusNoContent)
}
