package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "sokoni/adapters/redis"
)

func TestRateLimited(t *testing.T) {
	t.Run("throttles once the bucket is empty", func(t *testing.T) {
		// 準備測試環境: 桶容量2，補充慢到測試期間不會發生
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		impl.rateLimiter = redisAdapter.NewTokenBucketLimiter(impl.redisClient, redisAdapter.RateLimitConfig{
			Capacity:   2,
			RefillRate: 0.001,
			IdleTTL:    time.Minute,
		})
		alice := createTestUser(t, impl.db, "alice")
		bob := createTestUser(t, impl.db, "bob")
		body := TopupRequest{Amount: 1000}

		// 執行測試: 前兩次放行，第三次被擋
		for i := 0; i < 2; i++ {
			recorder := performRequest(t, router, http.MethodPost,
				"/api/wallet/topup/initialize", body, authToken(t, impl, alice))
			require.Equal(t, http.StatusOK, recorder.Code)
		}
		recorder := performRequest(t, router, http.MethodPost,
			"/api/wallet/topup/initialize", body, authToken(t, impl, alice))

		// 驗證結果
		require.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "Too many requests", decodeBody[ErrorResponse](t, recorder).Message)

		// 桶依使用者分開，別人不受影響
		recorder = performRequest(t, router, http.MethodPost,
			"/api/wallet/topup/initialize", body, authToken(t, impl, bob))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("limiter outage lets requests through", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		unreachable := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
		})
		defer unreachable.Close()
		impl.rateLimiter = redisAdapter.NewTokenBucketLimiter(unreachable, redisAdapter.RateLimitConfig{
			Capacity:   1,
			RefillRate: 1,
			IdleTTL:    time.Minute,
		})
		alice := createTestUser(t, impl.db, "alice")

		recorder := performRequest(t, router, http.MethodPost,
			"/api/wallet/topup/initialize", TopupRequest{Amount: 1000}, authToken(t, impl, alice))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("no limiter configured means no limiting", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		alice := createTestUser(t, impl.db, "alice")

		for i := 0; i < 5; i++ {
			recorder := performRequest(t, router, http.MethodPost,
				"/api/wallet/topup/initialize", TopupRequest{Amount: 1000}, authToken(t, impl, alice))
			require.Equal(t, http.StatusOK, recorder.Code)
		}
	})
}
