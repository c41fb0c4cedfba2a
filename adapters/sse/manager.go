package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	redisAdapter "sokoni/adapters/redis"
)

type managerOptions[T any] struct {
	logger        *slog.Logger
	subscriber    redisAdapter.ISubscriber[PublishRequest[T]]
	publisher     redisAdapter.IPublisher[PublishRequest[T]]
	channelBuffer int
}

type ManagerOption[T any] func(*managerOptions[T])

// WithLogger 設置日誌記錄器
func WithLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.logger = logger
	}
}

// WithSubscriber 注入訊息來源，manager 把收到的事件依頻道分發給訂閱者
func WithSubscriber[T any](subscriber redisAdapter.ISubscriber[PublishRequest[T]]) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.subscriber = subscriber
	}
}

// WithPublisher 注入訊息出口，Publish 會把事件送上 stream 繞一圈，
// 讓其他實例的訂閱者也收得到；沒注入時退化成單實例的本地廣播
func WithPublisher[T any](publisher redisAdapter.IPublisher[PublishRequest[T]]) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.publisher = publisher
	}
}

// WithChannelBuffer 設置每個訂閱者的通道緩衝大小
func WithChannelBuffer[T any](size int) ManagerOption[T] {
	return func(o *managerOptions[T]) {
		o.channelBuffer = size
	}
}

// connectionManager 管理多個 SSE 頻道的訂閱與發布。
// 透過 Redis Stream 實現跨節點的訊息廣播，讓多個服務實例能夠協同運作。
// publisher 和 subscriber 的生命週期由呼叫端掌控，manager 只負責路由。
type connectionManager[T any] struct {
	logger *slog.Logger

	mu     sync.RWMutex   // 保護 active 和 channels 的讀寫
	wg     sync.WaitGroup // 用於等待路由 goroutine 完成
	active bool           // 標記 manager 是否正在運作中

	channels map[string]IChannel[T] // 儲存所有活躍的頻道
	options  managerOptions[T]
}

// NewConnectionManager 建立一個新的連線管理器。
func NewConnectionManager[T any](opts ...ManagerOption[T]) (IConnectionManager[T], error) {
	// 默認選項
	options := managerOptions[T]{
		logger:        slog.Default(),
		channelBuffer: 16,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	if options.channelBuffer <= 0 {
		return nil, errors.New("channel buffer size must be positive")
	}

	return &connectionManager[T]{
		logger:   options.logger.With(slog.String("caller", "ConnectionManager")),
		channels: make(map[string]IChannel[T]),
		options:  options,
		active:   true,
	}, nil
}

// Start 啟動連線管理器，開始處理訊息的接收與廣播。
// 注入的 subscriber 要先啟動，這裡才接得到下游通道。
func (cm *connectionManager[T]) Start() {
	if cm.options.subscriber == nil {
		return
	}

	downstream := cm.options.subscriber.Subscribe()
	if downstream == nil {
		cm.logger.Error("subscriber is not started, message routing disabled")
		return
	}

	// 啟動訊息路由的 goroutine，下游通道關閉時結束
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		for msg := range downstream {
			cm.mu.RLock()
			channel, ok := cm.channels[msg.Channel]
			cm.mu.RUnlock()
			if ok {
				channel.Broadcast(msg.Message)
			}
		}
	}()
}

// Done 停止連線管理器的運作。
// 呼叫前要先關閉注入的 subscriber，路由迴圈靠下游通道關閉來結束。
// 等待路由 goroutine 時不能抓著鎖，不然正在廣播的訊息會讓雙方互等。
func (cm *connectionManager[T]) Done() {
	cm.mu.Lock()
	if !cm.active {
		cm.mu.Unlock()
		return
	}
	cm.active = false
	cm.mu.Unlock()

	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

// Subscribe 訂閱指定的頻道。
// channelName: 要訂閱的頻道名稱
// 返回: 用於接收訊息的唯讀通道，以及可能的錯誤
func (cm *connectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.active {
		return nil, context.Canceled
	}

	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T](cm.options.channelBuffer)
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

// Publish 發布訊息到指定的頻道。
// channelName: 目標頻道名稱
// data: 要發布的訊息內容
func (cm *connectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	if !cm.active {
		cm.mu.RUnlock()
		return context.Canceled
	}
	channel, ok := cm.channels[channelName]
	cm.mu.RUnlock()

	if cm.options.publisher != nil {
		return cm.options.publisher.Publish(PublishRequest[T]{
			Channel: channelName,
			Message: data,
		})
	}

	if ok {
		channel.Broadcast(data)
	}
	return nil
}

// Unsubscribe 取消訂閱指定的頻道。
func (cm *connectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
