package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache 實現了 ICache 介面，提供以 msgpack 序列化的型別化快取
// 用在商品看板這類重讀輕寫的查詢結果上
type Cache[T any] struct {
	client  *redis.Client
	options CacheOptions
}

// CacheOptions 定義了 Cache 的配置選項
type CacheOptions struct {
	Prefix string
}

type CacheOption func(*CacheOptions)

// WithCachePrefix 設定 Cache 的 key 前綴
func WithCachePrefix(prefix string) CacheOption {
	return func(o *CacheOptions) {
		o.Prefix = prefix
	}
}

// NewCache 建立一個新的 Cache 實例
func NewCache[T any](client *redis.Client, opts ...CacheOption) ICache[T] {
	options := &CacheOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return &Cache[T]{
		client:  client,
		options: *options,
	}
}

// Get 讀取快取，未命中時回傳 nil 而不是錯誤
func (c *Cache[T]) Get(ctx context.Context, key string) (*T, error) {
	const op = "redis.Cache.Get"

	raw, err := c.client.Get(ctx, c.options.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	value := new(T)
	if err := msgpack.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal value: %w", op, err)
	}
	return value, nil
}

// Set 寫入快取並設定存活時間
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	const op = "redis.Cache.Set"

	raw, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal value: %w", op, err)
	}
	if err := c.client.Set(ctx, c.options.Prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}
	return nil
}

// Delete 移除快取，寫入方在資料變動後呼叫讓讀取方重建
func (c *Cache[T]) Delete(ctx context.Context, keys ...string) error {
	const op = "redis.Cache.Delete"

	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, c.options.Prefix+key)
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete keys: %w", op, err)
	}
	return nil
}
