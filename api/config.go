package api

import (
	"crypto"
	"time"

	"sokoni/adapters/ledger"
	"sokoni/adapters/shipping"
)

type ServerConfig struct {
	Auth      AuthConfig
	S3        S3Config
	DB        DBConfig
	Redis     RedisConfig
	Fees      FeeConfig
	Auction   AuctionConfig
	RateLimit RateLimitConfig
	Currency  ledger.Rates
}

type AuthConfig struct {
	// PrivateKey 簽發存取憑證用的 Ed25519 私鑰
	PrivateKey     crypto.Signer
	Issuer         string
	Audience       string
	ExpireDuration time.Duration
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string

	// RateLimitPerHour 單一使用者每小時可上傳的檔案數
	RateLimitPerHour int
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix 所有 redis key 的共用前綴，方便多環境共用同一個實例
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	BidEvents string
}

type FeeConfig struct {
	// ProcessingRate 買方手續費率，按訂單小計收取
	ProcessingRate float64
	Shipping       shipping.Config
}

type AuctionConfig struct {
	// SweepInterval 拍賣狀態掃描的執行間隔
	SweepInterval time.Duration
	// PurgeInterval 過期拍賣清除的執行間隔
	PurgeInterval time.Duration
	// PurgeRetention 拍賣結束後保留紀錄的時間，超過即清除
	PurgeRetention time.Duration
	// BoardCacheTTL 進行中拍賣看板的快取時間
	BoardCacheTTL time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	// Capacity 令牌桶容量，等同允許的突發請求數
	Capacity int
	// RefillRate 每秒補充的令牌數
	RefillRate float64
}
