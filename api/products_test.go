package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sokoni/adapters/ledger"
	"sokoni/models"
)

func TestPostProducts(t *testing.T) {
	t.Run("creates a regular product with currency conversion", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")

		// 執行測試: 5000 TZS 定價以 1000:1 換成 5 SOK
		recorder := performRequest(t, router, http.MethodPost, "/api/products", CreateProductRequest{
			Title:       "Kitenge Fabric",
			Description: `<script>alert("x")</script><b>Bright</b> six yards`,
			Category:    "Fashion",
			Price:       lo.ToPtr(5000.0),
			Currency:    "TZS",
			ImageURL:    "https://example.com/kitenge.jpg",
			Images: []string{
				"https://cdn.sokoni.test/products/kitenge-1.jpg",
				"https://elsewhere.example/kitenge-2.jpg",
			},
		}, authToken(t, impl, seller))

		// 驗證結果
		require.Equal(t, http.StatusCreated, recorder.Code)
		product := decodeBody[ProductResponse](t, recorder)
		assert.Equal(t, recorder.Header().Get("Location"), product.ID.String())
		assert.Equal(t, "Kitenge Fabric", product.Title)
		assert.Equal(t, "fashion", product.Category)
		assert.InDelta(t, 5, product.Price, 0.001)
		require.NotNil(t, product.LocalPrice)
		assert.InDelta(t, 5000, *product.LocalPrice, 0.001)
		require.NotNil(t, product.LocalCurrency)
		assert.Equal(t, "TZS", *product.LocalCurrency)
		assert.Equal(t, "seller", product.SellerUsername)
		assert.False(t, product.IsAuction)
		assert.Nil(t, product.StartingPrice)

		// 危險標籤被過濾，安全的格式標籤保留
		assert.NotContains(t, product.Description, "<script>")
		assert.Contains(t, product.Description, "<b>Bright</b>")

		// 只有指向自家公開端點的圖片網址會轉成媒體鍵
		require.Len(t, product.Images, 1)
		assert.Equal(t, "https://cdn.sokoni.test/products/kitenge-1.jpg", product.Images[0])
		stored := models.Product{}
		require.NoError(t, impl.db.First(&stored, product.ID).Error)
		assert.Equal(t, []string{"products/kitenge-1.jpg"}, stored.MediaKeys)
	})

	t.Run("missing title", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")

		recorder := performRequest(t, router, http.MethodPost, "/api/products",
			map[string]any{"price": 10}, authToken(t, impl, seller))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Title is required", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("regular product requires a price", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")

		recorder := performRequest(t, router, http.MethodPost, "/api/products",
			CreateProductRequest{Title: "Free Stuff"}, authToken(t, impl, seller))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Price is required for regular products and must be greater than 0",
			decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("unsupported currency when no rate is configured", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		impl.config.Currency = ledger.Rates{}

		recorder := performRequest(t, router, http.MethodPost, "/api/products",
			CreateProductRequest{Title: "Mug", Price: lo.ToPtr(1000.0), Currency: "TZS"},
			authToken(t, impl, seller))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Unsupported currency 'TZS'. Please use a supported currency.",
			decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("creates an auction that starts immediately", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")

		// 執行測試
		recorder := performRequest(t, router, http.MethodPost, "/api/products", CreateProductRequest{
			Title:                  "Vintage Radio",
			IsAuction:              true,
			StartingPrice:          lo.ToPtr(50.0),
			BidIncrement:           lo.ToPtr(5.0),
			AuctionDurationMinutes: lo.ToPtr(90),
		}, authToken(t, impl, seller))

		// 驗證結果
		require.Equal(t, http.StatusCreated, recorder.Code)
		product := decodeBody[ProductResponse](t, recorder)
		assert.True(t, product.IsAuction)
		require.NotNil(t, product.AuctionStatus)
		assert.Equal(t, models.AuctionActive, *product.AuctionStatus)
		require.NotNil(t, product.StartingPrice)
		assert.InDelta(t, 50, *product.StartingPrice, 0.001)
		assert.InDelta(t, 50, product.Price, 0.001)
		require.NotNil(t, product.AuctionDurationMinutes)
		assert.Equal(t, 90, *product.AuctionDurationMinutes)
		require.NotNil(t, product.AuctionDurationHours)
		assert.InDelta(t, 1.5, *product.AuctionDurationHours, 0.001)
		require.NotNil(t, product.AuctionStartTime)
		require.NotNil(t, product.AuctionEndTime)
		assert.InDelta(t, 90*60, product.AuctionEndTime.Sub(*product.AuctionStartTime).Seconds(), 1)
		assert.Nil(t, product.CurrentBid)
		require.NotNil(t, product.TimeRemainingSeconds)
		assert.Positive(t, *product.TimeRemainingSeconds)
	})

	t.Run("auction duration can be given in hours", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")

		recorder := performRequest(t, router, http.MethodPost, "/api/products", CreateProductRequest{
			Title:                "Vintage Radio",
			IsAuction:            true,
			StartingPrice:        lo.ToPtr(50.0),
			BidIncrement:         lo.ToPtr(5.0),
			AuctionDurationHours: lo.ToPtr(2.0),
		}, authToken(t, impl, seller))

		require.Equal(t, http.StatusCreated, recorder.Code)
		product := decodeBody[ProductResponse](t, recorder)
		require.NotNil(t, product.AuctionDurationMinutes)
		assert.Equal(t, 120, *product.AuctionDurationMinutes)
	})

	t.Run("auction validation messages", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		token := authToken(t, impl, seller)

		cases := []struct {
			name    string
			body    CreateProductRequest
			message string
		}{
			{
				name:    "missing starting price",
				body:    CreateProductRequest{Title: "Radio", IsAuction: true, BidIncrement: lo.ToPtr(5.0), AuctionDurationMinutes: lo.ToPtr(60)},
				message: "Starting price is required for auction products and must be greater than 0",
			},
			{
				name:    "missing bid increment",
				body:    CreateProductRequest{Title: "Radio", IsAuction: true, StartingPrice: lo.ToPtr(50.0), AuctionDurationMinutes: lo.ToPtr(60)},
				message: "Bid increment is required for auction products and must be greater than 0",
			},
			{
				name:    "missing duration",
				body:    CreateProductRequest{Title: "Radio", IsAuction: true, StartingPrice: lo.ToPtr(50.0), BidIncrement: lo.ToPtr(5.0)},
				message: "Auction duration is required for auction products (use auction_duration_minutes or auction_duration_hours)",
			},
			{
				name:    "minutes out of range",
				body:    CreateProductRequest{Title: "Radio", IsAuction: true, StartingPrice: lo.ToPtr(50.0), BidIncrement: lo.ToPtr(5.0), AuctionDurationMinutes: lo.ToPtr(0)},
				message: "Auction duration must be between 1 and 43200 minutes (720 hours)",
			},
			{
				name:    "hours below one minute",
				body:    CreateProductRequest{Title: "Radio", IsAuction: true, StartingPrice: lo.ToPtr(50.0), BidIncrement: lo.ToPtr(5.0), AuctionDurationHours: lo.ToPtr(0.01)},
				message: "Auction duration must be at least 1 minute (0.017 hours) and maximum 720 hours",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				recorder := performRequest(t, router, http.MethodPost, "/api/products", tc.body, token)
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				assert.Equal(t, tc.message, decodeBody[ErrorResponse](t, recorder).Message)
			})
		}
	})
}

func TestGetProducts(t *testing.T) {
	t.Run("filters by category seller and search", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		alice := createTestUser(t, impl.db, "alice")
		bob := createTestUser(t, impl.db, "bob")
		require.NoError(t, impl.db.Create(&models.Product{
			SellerID: alice.ID, Title: "Red Kitenge Dress", Category: "fashion", Price: 15,
		}).Error)
		require.NoError(t, impl.db.Create(&models.Product{
			SellerID: bob.ID, Title: "Blue Mug", Description: "Ceramic cup", Category: "kitchen", Price: 4,
		}).Error)
		auction := createAuction(t, impl.db, bob, 50, 5)
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+auction.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))
		require.Equal(t, http.StatusOK, recorder.Code)

		// 不帶條件回傳全部，拍賣帶出價次數
		recorder = performRequest(t, router, http.MethodGet, "/api/products", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		all := decodeBody[[]ProductResponse](t, recorder)
		require.Len(t, all, 3)
		for _, product := range all {
			if product.IsAuction {
				require.NotNil(t, product.BidCount)
				assert.EqualValues(t, 1, *product.BidCount)
			} else {
				assert.Nil(t, product.BidCount)
			}
		}

		// 分類比對不分大小寫
		recorder = performRequest(t, router, http.MethodGet, "/api/products?category=Fashion", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		fashion := decodeBody[[]ProductResponse](t, recorder)
		require.Len(t, fashion, 1)
		assert.Equal(t, "Red Kitenge Dress", fashion[0].Title)

		// 依賣家過濾
		recorder = performRequest(t, router, http.MethodGet, "/api/products?seller_id="+bob.ID.String(), nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decodeBody[[]ProductResponse](t, recorder), 2)

		recorder = performRequest(t, router, http.MethodGet, "/api/products?seller_id=garbage", nil, "")
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid seller id", decodeBody[ErrorResponse](t, recorder).Message)

		// 搜尋涵蓋標題與描述
		recorder = performRequest(t, router, http.MethodGet, "/api/products?search=kitenge", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decodeBody[[]ProductResponse](t, recorder), 1)

		recorder = performRequest(t, router, http.MethodGet, "/api/products?search=CERAMIC", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decodeBody[[]ProductResponse](t, recorder), 1)

		// 分頁
		recorder = performRequest(t, router, http.MethodGet, "/api/products?limit=2", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decodeBody[[]ProductResponse](t, recorder), 2)
	})

	t.Run("ended auctions past retention disappear", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		stale := createAuction(t, impl.db, seller, 50, 5)
		require.NoError(t, impl.db.Model(&models.Product{}).Where("id = ?", stale.ID).
			Updates(map[string]any{
				"auction_status":   models.AuctionEnded,
				"auction_end_time": time.Now().Add(-25 * time.Hour),
			}).Error)
		fresh := createAuction(t, impl.db, seller, 50, 5)
		require.NoError(t, impl.db.Model(&models.Product{}).Where("id = ?", fresh.ID).
			Updates(map[string]any{
				"auction_status":   models.AuctionEnded,
				"auction_end_time": time.Now().Add(-time.Hour),
			}).Error)

		recorder := performRequest(t, router, http.MethodGet, "/api/products", nil, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		listed := decodeBody[[]ProductResponse](t, recorder)
		require.Len(t, listed, 1)
		assert.Equal(t, fresh.ID, listed[0].ID)
	})
}

func TestGetProductsProductID(t *testing.T) {
	t.Run("regular product detail", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		product := createProduct(t, impl.db, seller, 20)

		recorder := performRequest(t, router, http.MethodGet, "/api/products/"+product.ID.String(), nil, "")

		require.Equal(t, http.StatusOK, recorder.Code)
		detail := decodeBody[ProductResponse](t, recorder)
		assert.Equal(t, "Handmade Basket", detail.Title)
		assert.Equal(t, "seller", detail.SellerUsername)
		assert.InDelta(t, 20, detail.Price, 0.001)
		assert.False(t, detail.IsAuction)
	})

	t.Run("unknown product", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		createTestUser(t, impl.db, "seller")

		recorder := performRequest(t, router, http.MethodGet,
			"/api/products/a2180e79-1c9a-4b8d-9c19-4a4a6d616a61", nil, "")

		require.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "Product not found", decodeBody[ErrorResponse](t, recorder).Message)
	})
}

func TestPutProductsProductID(t *testing.T) {
	t.Run("owner updates listing and price", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		product := createProduct(t, impl.db, seller, 20)

		// 執行測試: 重新以 KES 定價
		recorder := performRequest(t, router, http.MethodPut, "/api/products/"+product.ID.String(),
			UpdateProductRequest{
				Title:    lo.ToPtr("Handmade Basket XL"),
				Price:    lo.ToPtr(10540.0),
				Currency: lo.ToPtr("KES"),
			}, authToken(t, impl, seller))

		// 驗證結果: 10540 KES 以 52.7:1 換成 200 SOK
		require.Equal(t, http.StatusOK, recorder.Code)
		updated := decodeBody[ProductResponse](t, recorder)
		assert.Equal(t, "Handmade Basket XL", updated.Title)
		assert.InDelta(t, 200, updated.Price, 0.001)
		require.NotNil(t, updated.LocalCurrency)
		assert.Equal(t, "KES", *updated.LocalCurrency)
	})

	t.Run("auction price is driven by bids only", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		auction := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodPut, "/api/products/"+auction.ID.String(),
			UpdateProductRequest{Price: lo.ToPtr(999.0), Title: lo.ToPtr("Vintage Camera MkII")},
			authToken(t, impl, seller))

		require.Equal(t, http.StatusOK, recorder.Code)
		updated := decodeBody[ProductResponse](t, recorder)
		assert.Equal(t, "Vintage Camera MkII", updated.Title)
		assert.InDelta(t, 50, updated.Price, 0.001)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		other := createTestUser(t, impl.db, "other")
		product := createProduct(t, impl.db, seller, 20)

		recorder := performRequest(t, router, http.MethodPut, "/api/products/"+product.ID.String(),
			UpdateProductRequest{Title: lo.ToPtr("Hijacked")}, authToken(t, impl, other))

		require.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "You don't have permission to update this product",
			decodeBody[ErrorResponse](t, recorder).Message)
	})
}

func TestDeleteProductsProductID(t *testing.T) {
	t.Run("removes a regular product and cart references", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		shopper := createTestUser(t, impl.db, "shopper")
		product := createProduct(t, impl.db, seller, 20)
		require.NoError(t, impl.db.Create(&models.CartItem{
			UserID: shopper.ID, ProductID: product.ID, Quantity: 1,
		}).Error)

		// 執行測試
		recorder := performRequest(t, router, http.MethodDelete,
			"/api/products/"+product.ID.String(), nil, authToken(t, impl, seller))

		// 驗證結果
		require.Equal(t, http.StatusNoContent, recorder.Code)
		err := impl.db.First(&models.Product{}, product.ID).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		var cartCount int64
		require.NoError(t, impl.db.Model(&models.CartItem{}).
			Where("product_id = ?", product.ID).Count(&cartCount).Error)
		assert.Zero(t, cartCount)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		other := createTestUser(t, impl.db, "other")
		product := createProduct(t, impl.db, seller, 20)

		recorder := performRequest(t, router, http.MethodDelete,
			"/api/products/"+product.ID.String(), nil, authToken(t, impl, other))

		require.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "You don't have permission to delete this product",
			decodeBody[ErrorResponse](t, recorder).Message)
		require.NoError(t, impl.db.First(&models.Product{}, product.ID).Error)
	})

	t.Run("active auction with bids cannot be deleted", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		auction := createAuction(t, impl.db, seller, 50, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+auction.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = performRequest(t, router, http.MethodDelete,
			"/api/products/"+auction.ID.String(), nil, authToken(t, impl, seller))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Cannot delete an active auction that already has bids",
			decodeBody[ErrorResponse](t, recorder).Message)
		require.NoError(t, impl.db.First(&models.Product{}, auction.ID).Error)
	})

	t.Run("active auction without bids is cancelled on delete", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		auction := createAuction(t, impl.db, seller, 50, 5)

		recorder := performRequest(t, router, http.MethodDelete,
			"/api/products/"+auction.ID.String(), nil, authToken(t, impl, seller))

		require.Equal(t, http.StatusNoContent, recorder.Code)
		removed := models.Product{}
		require.NoError(t, impl.db.Unscoped().First(&removed, auction.ID).Error)
		assert.True(t, removed.DeletedAt.Valid)
		require.NotNil(t, removed.AuctionStatus)
		assert.Equal(t, models.AuctionCancelled, *removed.AuctionStatus)
	})

	t.Run("deleting an ended auction refunds the held bid", func(t *testing.T) {
		// 準備測試環境: 有最高出價者的拍賣結標但尚未付款
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		seller := createTestUser(t, impl.db, "seller")
		bidder := createTestUser(t, impl.db, "bidder")
		fundWallet(t, impl, bidder, 100)
		auction := createAuction(t, impl.db, seller, 50, 5)
		recorder := performRequest(t, router, http.MethodPost,
			"/api/auctions/"+auction.ID.String()+"/bid", BidRequest{BidAmount: 50}, authToken(t, impl, bidder))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.InDelta(t, 50, walletOf(t, impl.db, bidder).Balance, 0.001)
		endAuctionNow(t, impl.db, auction)
		require.NoError(t, impl.sweepAuctions(context.Background()))

		// 執行測試
		recorder = performRequest(t, router, http.MethodDelete,
			"/api/products/"+auction.ID.String(), nil, authToken(t, impl, seller))

		// 驗證結果: 保留的資金退回，拍賣相關資料一併移除
		require.Equal(t, http.StatusNoContent, recorder.Code)
		assert.InDelta(t, 100, walletOf(t, impl.db, bidder).Balance, 0.001)
		hold := models.WalletTransaction{}
		require.NoError(t, impl.db.Where("reference = ?", auction.HoldReference()).First(&hold).Error)
		assert.Equal(t, models.TransactionCancelled, hold.Status)
		var bidCount, cartCount int64
		require.NoError(t, impl.db.Model(&models.Bid{}).
			Where("product_id = ?", auction.ID).Count(&bidCount).Error)
		require.NoError(t, impl.db.Model(&models.CartItem{}).
			Where("product_id = ?", auction.ID).Count(&cartCount).Error)
		assert.Zero(t, bidCount)
		assert.Zero(t, cartCount)

		// 已結標的拍賣保留最終狀態
		removed := models.Product{}
		require.NoError(t, impl.db.Unscoped().First(&removed, auction.ID).Error)
		require.NotNil(t, removed.AuctionStatus)
		assert.Equal(t, models.AuctionEnded, *removed.AuctionStatus)
	})
}
