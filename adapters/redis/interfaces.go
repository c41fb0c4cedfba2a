//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

package redis

import (
	"context"
	"time"
)

// IPublisher 定義了 Publisher 的操作介面
type IPublisher[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// ISubscriber 定義了 Subscriber 的操作介面
type ISubscriber[T any] interface {
	Start()
	Subscribe() <-chan T
	Close()
}

// IAutoRenewMutex 定義了 AutoRenewMutex 的操作介面
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}

// ICache 定義了 Cache 的操作介面
type ICache[T any] interface {
	Get(ctx context.Context, key string) (*T, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IRateLimiter 定義了速率限制器的操作介面
type IRateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
