package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	redisAdapter "sokoni/adapters/redis"
)

type schedulerOptions struct {
	logger      *slog.Logger
	lockPrefix  string
	tickTimeout time.Duration
	lockFactory func(name string) redisAdapter.IAutoRenewMutex
}

type SchedulerOption func(*schedulerOptions)

// WithSchedulerLogger 設置日誌記錄器
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		o.logger = logger
	}
}

// WithSchedulerLockPrefix 設置分散式鎖的 key 前綴
func WithSchedulerLockPrefix(prefix string) SchedulerOption {
	return func(o *schedulerOptions) {
		o.lockPrefix = prefix
	}
}

// WithSchedulerTickTimeout 設置單次執行的時間上限，包含等鎖的時間
// 未設置時以任務自己的間隔為上限
func WithSchedulerTickTimeout(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		o.tickTimeout = d
	}
}

// WithSchedulerLockFactory 設置鎖的建構函數，測試時注入假鎖用
func WithSchedulerLockFactory(fn func(name string) redisAdapter.IAutoRenewMutex) SchedulerOption {
	return func(o *schedulerOptions) {
		o.lockFactory = fn
	}
}

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// Scheduler 實現了 IScheduler 介面，在固定間隔執行註冊的任務
// 每次執行前先搶排程鎖，多實例部署時同一輪只有一個實例在跑，
// 鎖被佔用或 redis 暫時斷線就跳過這一輪，等下個間隔再試。
type Scheduler struct {
	logger  *slog.Logger
	options schedulerOptions

	mu      sync.Mutex
	jobs    []job
	started bool
	closed  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 建立一個新的 Scheduler 實例
// client 用於排程鎖，注入自訂 lockFactory 時可以為 nil
func NewScheduler(client *redis.Client, opts ...SchedulerOption) (IScheduler, error) {
	// 默認選項
	options := schedulerOptions{
		logger:     slog.Default(),
		lockPrefix: "scheduler:",
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	if options.lockFactory == nil {
		if client == nil {
			return nil, errors.New("redis client cannot be nil")
		}
		options.lockFactory = func(name string) redisAdapter.IAutoRenewMutex {
			// 搶不到鎖和 redis 通訊失敗都走同一條重試路徑，
			// 排程任務的語義是下一輪總會再來，不需要立刻報錯
			return redisAdapter.NewAutoRenewMutex(client,
				fmt.Sprintf("%s%s:lock", options.lockPrefix, name),
				redisAdapter.WithAutoRenewMutexLogger(options.logger),
				redisAdapter.WithAutoRenewMutexSkipLockError(true),
			)
		}
	}

	return &Scheduler{
		logger:  options.logger.With(slog.String("caller", "Scheduler")),
		options: options,
	}, nil
}

// Register 註冊一個任務，只能在 Start 之前呼叫
func (s *Scheduler) Register(name string, every time.Duration, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	if name == "" {
		return errors.New("job name cannot be empty")
	}
	if every <= 0 {
		return errors.New("job interval must be positive")
	}
	if fn == nil {
		return errors.New("job function cannot be nil")
	}
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}

	s.jobs = append(s.jobs, job{name: name, interval: every, fn: fn})
	return nil
}

// Start 啟動所有已註冊的任務
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.logger.Info("starting scheduler", slog.Int("jobs", len(s.jobs)))

	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j job) {
			defer s.wg.Done()

			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()

			// 先跑一次，把停機期間累積的工作補上，之後照間隔走
			for {
				s.runJob(ctx, j)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}(j)
	}
}

// Close 停止排程器並等待進行中的任務結束
func (s *Scheduler) Close() {
	s.mu.Lock()
	if !s.started || s.closed {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("closing scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler closed")
}

// runJob 執行單次任務: 限時搶鎖，拿到就跑，拿不到跳過這一輪
func (s *Scheduler) runJob(ctx context.Context, j job) {
	logger := s.logger.With(slog.String("job", j.name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", slog.Any("panic", r))
		}
	}()

	timeout := s.options.tickTimeout
	if timeout <= 0 {
		timeout = j.interval
	}
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mutex := s.options.lockFactory(j.name)
	jobCtx, err := mutex.Lock(tickCtx)
	if err != nil {
		logger.Debug("skipping tick, lock not acquired", slog.Any("error", err))
		return
	}
	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			logger.Warn("failed to release job lock", slog.Any("error", err))
		}
	}()

	started := time.Now()
	if err := j.fn(jobCtx); err != nil {
		logger.Error("job failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(started)))
		return
	}
	logger.Debug("job finished", slog.Duration("elapsed", time.Since(started)))
}
