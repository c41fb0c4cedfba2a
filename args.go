package main

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sokoni/adapters/ledger"
	"sokoni/adapters/shipping"
	"sokoni/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// auth config
	pflag.String("auth-private-key-seed", "", "")
	pflag.String("auth-issuer", "sokoni", "")
	pflag.String("auth-audience", "sokoni", "")
	pflag.Duration("auth-token-ttl", 3*time.Hour, "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int("s3-upload-limit-per-hour", 30, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "public", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "sokoni:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-bid-events", "sokoni-shared-bid-stream", "")

	// fee config
	pflag.Float64("fee-processing-rate", 0.02, "")
	pflag.Float64("shipping-base-fee", 2.0, "")
	pflag.Float64("shipping-per-km-rate", 0.5, "")
	pflag.Float64("shipping-min-billable-km", 1.0, "")
	pflag.Float64("shipping-free-radius-km", 0.1, "")

	// auction config
	pflag.Duration("auction-sweep-interval", 10*time.Second, "")
	pflag.Duration("auction-purge-interval", time.Hour, "")
	pflag.Duration("auction-purge-retention", 24*time.Hour, "")
	pflag.Duration("auction-board-cache-ttl", 15*time.Second, "")

	// rate limit config
	pflag.Bool("rate-limit-enabled", true, "")
	pflag.Int("rate-limit-capacity", 10, "")
	pflag.Float64("rate-limit-refill-rate", 5, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SOKONI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			Auth: api.AuthConfig{
				PrivateKey:     loadSigningKey(viper.GetString("auth-private-key-seed")),
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
				ExpireDuration: viper.GetDuration("auth-token-ttl"),
			},
			S3: api.S3Config{
				Endpoint:         viper.GetString("s3-endpoint"),
				Bucket:           viper.GetString("s3-bucket"),
				PublicBaseURL:    viper.GetString("s3-public-base-url"),
				AccessKeyID:      viper.GetString("s3-access-key-id"),
				SecretAccessKey:  viper.GetString("s3-secret-access-key"),
				RateLimitPerHour: viper.GetInt("s3-upload-limit-per-hour"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					BidEvents: viper.GetString("redis-stream-key-for-bid-events"),
				},
			},
			Fees: api.FeeConfig{
				ProcessingRate: viper.GetFloat64("fee-processing-rate"),
				Shipping: shipping.Config{
					BaseFee:       viper.GetFloat64("shipping-base-fee"),
					PerKmRate:     viper.GetFloat64("shipping-per-km-rate"),
					MinBillableKm: viper.GetFloat64("shipping-min-billable-km"),
					FreeRadiusKm:  viper.GetFloat64("shipping-free-radius-km"),
				},
			},
			Auction: api.AuctionConfig{
				SweepInterval:  viper.GetDuration("auction-sweep-interval"),
				PurgeInterval:  viper.GetDuration("auction-purge-interval"),
				PurgeRetention: viper.GetDuration("auction-purge-retention"),
				BoardCacheTTL:  viper.GetDuration("auction-board-cache-ttl"),
			},
			RateLimit: api.RateLimitConfig{
				Enabled:    viper.GetBool("rate-limit-enabled"),
				Capacity:   viper.GetInt("rate-limit-capacity"),
				RefillRate: viper.GetFloat64("rate-limit-refill-rate"),
			},
			Currency: ledger.DefaultRates(),
		},
	}
}

// loadSigningKey 從base64編碼的seed還原Ed25519簽章私鑰
// 未提供時隨機產生一把，重啟後既發的token會全部失效
func loadSigningKey(encodedSeed string) crypto.Signer {
	if encodedSeed == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil
		}
		return key
	}
	seed, err := base64.StdEncoding.DecodeString(encodedSeed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil
	}
	return ed25519.NewKeyFromSeed(seed)
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" &&
		args.ServerConfig.Auth.PrivateKey != nil &&
		args.ServerConfig.DB.User != "" &&
		args.ServerConfig.DB.Host != "" &&
		args.ServerConfig.DB.Database != "" &&
		args.ServerConfig.Redis.Addr != ""
}
