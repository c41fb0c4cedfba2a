package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript 用於執行令牌桶取token
//  KEYS[1] - 令牌桶鍵
//  ARGV[1] - 桶容量
//  ARGV[2] - 每秒補充的令牌數
//  ARGV[3] - 當前時間(毫秒)
//  ARGV[4] - 閒置桶的過期秒數
//
// 返回值:
//  1 - 取得令牌，放行
//  0 - 桶已空，拒絕
//
// 流程:
//  - 1. 讀取桶內令牌數與上次補充時間，桶不存在時視為滿的
//  - 2. 按經過時間補充令牌，上限為桶容量
//  - 3a. 令牌足夠時扣一顆並放行
//  - 3b. 不足時維持原狀並拒絕
//  - 4. 寫回桶狀態並更新過期時間
var tokenBucketScript = redis.NewScript(`
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])
if tokens == nil then
    tokens = capacity
    ts = now
end

local elapsed = now - ts
if elapsed < 0 then
    elapsed = 0
end
tokens = tokens + elapsed * rate / 1000
if tokens > capacity then
    tokens = capacity
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', KEYS[1], ARGV[4])

return allowed
`)

// RateLimitConfig 令牌桶參數
type RateLimitConfig struct {
	// Capacity 桶容量，同時也是允許的突發請求數
	Capacity int
	// RefillRate 每秒補充的令牌數
	RefillRate float64
	// IdleTTL 閒置桶在 redis 中的保留時間
	IdleTTL time.Duration
}

// TokenBucketLimiter 實現了 IRateLimiter 介面，以 redis 為後端的令牌桶
// 補充和扣減在同一段 lua 內完成，多實例共用同一組桶
type TokenBucketLimiter struct {
	client  *redis.Client
	config  RateLimitConfig
	options TokenBucketOptions
}

// TokenBucketOptions 定義了 TokenBucketLimiter 的配置選項
type TokenBucketOptions struct {
	Prefix string
	Now    func() time.Time
}

type TokenBucketOption func(*TokenBucketOptions)

// WithTokenBucketPrefix 設定令牌桶的 key 前綴
func WithTokenBucketPrefix(prefix string) TokenBucketOption {
	return func(o *TokenBucketOptions) {
		o.Prefix = prefix
	}
}

// WithTokenBucketClock 設定時間來源
func WithTokenBucketClock(now func() time.Time) TokenBucketOption {
	return func(o *TokenBucketOptions) {
		o.Now = now
	}
}

// NewTokenBucketLimiter 建立一個新的 TokenBucketLimiter 實例
func NewTokenBucketLimiter(client *redis.Client, config RateLimitConfig, opts ...TokenBucketOption) IRateLimiter {
	options := TokenBucketOptions{
		Now: time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &TokenBucketLimiter{
		client:  client,
		config:  config,
		options: options,
	}
}

// Allow 嘗試為指定的 key 取得一顆令牌
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "redis.TokenBucketLimiter.Allow"

	ttlSeconds := int64(l.config.IdleTTL / time.Second)
	if ttlSeconds <= 0 {
		ttlSeconds = 3600
	}

	allowed, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.options.Prefix + key},
		l.config.Capacity,
		l.config.RefillRate,
		l.options.Now().UnixMilli(),
		ttlSeconds,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: failed to run token bucket script: %w", op, err)
	}

	return allowed == 1, nil
}
