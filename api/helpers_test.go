package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sokoni/adapters/ledger"
	"sokoni/adapters/notify"
	internalS3 "sokoni/adapters/s3"
	"sokoni/adapters/shipping"
	"sokoni/adapters/sse"
	"sokoni/models"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
	gin.SetMode(gin.TestMode)
}

// setupServer 建立一個不經過 NewServer 的測試用 ServerImpl，
// 資料庫用 in-memory sqlite，redis 用 miniredis，
// 看板快取與限流器預設不掛，個別測試需要時再自行補上
func setupServer(t *testing.T) (*ServerImpl, *gin.Engine, func()) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// in-memory 資料庫綁定在單一連線上，多開連線會拿到空的資料庫
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Product{},
		&models.Image{},
		&models.Bid{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.FeeRecord{},
		&models.Notification{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// 不掛 subscriber/publisher，Publish 會直接在本機廣播
	sseManager, err := sse.NewConnectionManager[BidEvent]()
	require.NoError(t, err)

	// 測試只會用到 PublicURL，不帶真正的 s3 客戶端
	s3Operator, err := internalS3.NewS3Operator(nil, "test-bucket", "https://cdn.sokoni.test")
	require.NoError(t, err)

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	impl := &ServerImpl{
		sseManager:  sseManager,
		ledger:      ledger.NewLedger(db),
		notifier:    notify.NewNotifier(db),
		shipping:    shipping.NewCalculator(shipping.DefaultConfig()),
		s3Operator:  s3Operator,
		htmlChecker: bluemonday.UGCPolicy(),
		redisClient: redisClient,
		db:          db,
		config: ServerConfig{
			Auth: AuthConfig{
				PrivateKey:     privateKey,
				Issuer:         "sokoni",
				Audience:       "sokoni",
				ExpireDuration: time.Hour,
			},
			S3: S3Config{
				PublicBaseURL:    "https://cdn.sokoni.test",
				RateLimitPerHour: 3,
			},
			Redis: RedisConfig{
				KeyPrefix: "sokoni-test:",
			},
			Fees: FeeConfig{
				ProcessingRate: 0.02,
				Shipping:       shipping.DefaultConfig(),
			},
			Auction: AuctionConfig{
				SweepInterval:  10 * time.Second,
				PurgeInterval:  time.Hour,
				PurgeRetention: 24 * time.Hour,
				BoardCacheTTL:  15 * time.Second,
			},
			Currency: ledger.DefaultRates(),
		},
	}

	router := gin.New()
	impl.Routes(router)

	return impl, router, func() {
		impl.sseManager.Done()
		require.NoError(t, redisClient.Close())
		mr.Close()
		require.NoError(t, sqlDB.Close())
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		FullName:     "Test User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// giveLocation 補上使用者的收貨座標，運費相關測試用
func giveLocation(t *testing.T, db *gorm.DB, user *models.User, lat, lon float64) {
	user.Latitude = lo.ToPtr(lat)
	user.Longitude = lo.ToPtr(lon)
	user.LocationAddress = "Test Street 1"
	require.NoError(t, db.Model(user).Updates(map[string]any{
		"latitude":         lat,
		"longitude":        lon,
		"location_address": "Test Street 1",
	}).Error)
}

// fundWallet 直接透過帳本儲值，不經過 HTTP 端點
func fundWallet(t *testing.T, impl *ServerImpl, user *models.User, amount float64) {
	_, err := impl.ledger.Credit(context.Background(), ledger.EntryParams{
		UserID:      user.ID,
		Amount:      amount,
		Type:        models.TransactionTopup,
		Description: "test funding",
		Reference:   "TEST_FUND_" + user.ID.String(),
	})
	require.NoError(t, err)
}

func walletOf(t *testing.T, db *gorm.DB, user *models.User) *models.Wallet {
	wallet := &models.Wallet{}
	require.NoError(t, db.Where("user_id = ?", user.ID).First(wallet).Error)
	return wallet
}

func createProduct(t *testing.T, db *gorm.DB, seller *models.User, price float64) *models.Product {
	product := &models.Product{
		SellerID:    seller.ID,
		Title:       "Handmade Basket",
		Description: "Woven by hand",
		Category:    "crafts",
		Price:       price,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// createAuction 建立一個進行中的拍賣，一小時後結標
func createAuction(t *testing.T, db *gorm.DB, seller *models.User, startingPrice, bidIncrement float64) *models.Product {
	now := time.Now().UTC()
	product := &models.Product{
		SellerID:               seller.ID,
		Title:                  "Vintage Camera",
		Description:            "Fully working",
		Category:               "electronics",
		Price:                  startingPrice,
		IsAuction:              true,
		StartingPrice:          lo.ToPtr(startingPrice),
		BidIncrement:           lo.ToPtr(bidIncrement),
		AuctionDurationMinutes: lo.ToPtr(60),
		AuctionStartTime:       lo.ToPtr(now),
		AuctionEndTime:         lo.ToPtr(now.Add(time.Hour)),
		AuctionStatus:          lo.ToPtr(models.AuctionActive),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// endAuctionNow 把拍賣的結標時間撥到過去，讓它在下一次讀取時視同已截止
func endAuctionNow(t *testing.T, db *gorm.DB, product *models.Product) {
	require.NoError(t, db.Model(product).Update("auction_end_time", time.Now().UTC().Add(-time.Minute)).Error)
}

func authToken(t *testing.T, impl *ServerImpl, user *models.User) string {
	token, err := impl.issueAccessToken(user)
	require.NoError(t, err)
	return token
}

// performRequest 組出一個 JSON 請求並直接打進路由器
// token 為空字串時不帶 Authorization 標頭
func performRequest(t *testing.T, router *gin.Engine, method, target string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}
