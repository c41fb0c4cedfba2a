package api

import (
	"context"
	"fmt"
	"log/slog"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"sokoni/adapters/ledger"
	"sokoni/adapters/notify"
	redisAdapter "sokoni/adapters/redis"
	internalS3 "sokoni/adapters/s3"
	"sokoni/adapters/scheduler"
	"sokoni/adapters/shipping"
	"sokoni/adapters/sse"
)

type ServerImpl struct {
	sseManager  sse.IConnectionManager[BidEvent]
	publisher   redisAdapter.IPublisher[sse.PublishRequest[BidEvent]]
	subscriber  redisAdapter.ISubscriber[sse.PublishRequest[BidEvent]]
	boardCache  redisAdapter.ICache[[]AuctionResponse]
	rateLimiter redisAdapter.IRateLimiter
	scheduler   scheduler.IScheduler
	ledger      ledger.ILedger
	notifier    notify.INotifier
	shipping    *shipping.Calculator
	s3Operator  *internalS3.S3Operator
	htmlChecker *bluemonday.Policy
	redisClient *redis.Client
	db          *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化出價事件的發布和訂閱端
	publisher, err := redisAdapter.NewPublisher[sse.PublishRequest[BidEvent]](
		redisClient,
		config.Redis.StreamKeys.BidEvents,
		redisAdapter.WithPublisherLogger[sse.PublishRequest[BidEvent]](slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create bid event publisher, err=%w", op, err)
	}
	subscriber, err := redisAdapter.NewSubscriber[sse.PublishRequest[BidEvent]](
		redisClient,
		config.Redis.StreamKeys.BidEvents,
		redisAdapter.WithSubscriberLogger[sse.PublishRequest[BidEvent]](slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create bid event subscriber, err=%w", op, err)
	}

	// 初始化SSE管理器，出價事件經過 stream 繞一圈再廣播，多實例部署時每個實例都收得到
	sseManager, err := sse.NewConnectionManager[BidEvent](
		sse.WithLogger[BidEvent](slog.Default()),
		sse.WithSubscriber[BidEvent](subscriber),
		sse.WithPublisher[BidEvent](publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sse connection manager, err=%w", op, err)
	}

	// 初始化排程器
	jobScheduler, err := scheduler.NewScheduler(
		redisClient,
		scheduler.WithSchedulerLogger(slog.Default()),
		scheduler.WithSchedulerLockPrefix(config.Redis.KeyPrefix+"scheduler:"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create scheduler, err=%w", op, err)
	}

	// 初始化限流器，未啟用時維持nil，中介層會直接放行
	var rateLimiter redisAdapter.IRateLimiter
	if config.RateLimit.Enabled {
		rateLimiter = redisAdapter.NewTokenBucketLimiter(
			redisClient,
			redisAdapter.RateLimitConfig{
				Capacity:   config.RateLimit.Capacity,
				RefillRate: config.RateLimit.RefillRate,
			},
			redisAdapter.WithTokenBucketPrefix(config.Redis.KeyPrefix+"ratelimit:"),
		)
	}

	impl := &ServerImpl{
		sseManager:  sseManager,
		publisher:   publisher,
		subscriber:  subscriber,
		boardCache:  redisAdapter.NewCache[[]AuctionResponse](redisClient),
		rateLimiter: rateLimiter,
		scheduler:   jobScheduler,
		ledger:      ledger.NewLedger(db),
		notifier:    notify.NewNotifier(db),
		shipping:    shipping.NewCalculator(config.Fees.Shipping),
		s3Operator:  s3Operator,
		htmlChecker: bluemonday.UGCPolicy(),
		redisClient: redisClient,
		db:          db,
		config:      config,
	}
	if err := impl.registerJobs(); err != nil {
		return nil, fmt.Errorf("[%s] Fail to register scheduler jobs, err=%w", op, err)
	}
	return impl, nil
}

func (impl *ServerImpl) Start() {
	// 啟動出價事件的發布和訂閱端
	impl.publisher.Start()
	impl.subscriber.Start()
	// 啟動sse connection manager
	impl.sseManager.Start()
	// 啟動排程器，開始跑拍賣的狀態掃描和清除任務
	impl.scheduler.Start()
}

func (impl *ServerImpl) Close() {
	// 關閉排程器，等待進行中的任務結束
	impl.scheduler.Close()
	// 關閉訂閱端，下游通道關閉後sse manager的路由迴圈才會結束
	impl.subscriber.Close()
	// 關閉sse connection manager
	impl.sseManager.Done()
	// 關閉發布端
	impl.publisher.Close()
}

// Routes 註冊所有API路由
func (impl *ServerImpl) Routes(router *gin.Engine) {
	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", impl.PostRegister)
		auth.POST("/login", impl.PostLogin)
		auth.GET("/me", impl.authRequired(), impl.GetAuthMe)
	}

	users := api.Group("/users", impl.authRequired())
	{
		users.GET("/me", impl.GetUsersMe)
		users.PUT("/me", impl.PutUsersMe)
	}

	products := api.Group("/products")
	{
		products.GET("", impl.authOptional(), impl.GetProducts)
		products.GET("/:product_id", impl.authOptional(), impl.GetProductsProductID)
		products.POST("", impl.authRequired(), impl.PostProducts)
		products.PUT("/:product_id", impl.authRequired(), impl.PutProductsProductID)
		products.DELETE("/:product_id", impl.authRequired(), impl.DeleteProductsProductID)
	}

	cart := api.Group("/cart", impl.authRequired())
	{
		cart.GET("", impl.GetCart)
		cart.POST("", impl.PostCart)
		cart.PUT("/:item_id", impl.PutCartItemID)
		cart.DELETE("/:item_id", impl.DeleteCartItemID)
		cart.DELETE("", impl.DeleteCart)
	}

	orders := api.Group("/orders", impl.authRequired())
	{
		orders.GET("", impl.GetOrders)
		orders.GET("/sales", impl.GetOrdersSales)
		orders.GET("/shipping/estimate", impl.GetOrdersShippingEstimate)
		orders.GET("/:order_id", impl.GetOrdersOrderID)
		orders.POST("", impl.PostOrders)
		orders.PUT("/:order_id/status", impl.PutOrdersOrderIDStatus)
		orders.POST("/:order_id/confirm-delivery", impl.PostOrdersOrderIDConfirmDelivery)
	}

	auctions := api.Group("/auctions")
	{
		auctions.GET("/active", impl.authOptional(), impl.GetAuctionsActive)
		auctions.GET("/:product_id", impl.authOptional(), impl.GetAuctionsProductID)
		auctions.GET("/:product_id/bids", impl.authOptional(), impl.GetAuctionsProductIDBids)
		auctions.GET("/:product_id/live", impl.GetAuctionsProductIDLive)
		auctions.POST("/:product_id/bid", impl.authRequired(), impl.rateLimited(), impl.PostAuctionsProductIDBid)
		auctions.POST("/:product_id/complete-payment", impl.authRequired(), impl.PostAuctionsProductIDCompletePayment)
		auctions.POST("/purge", impl.authRequired(), impl.adminRequired(), impl.PostAuctionsPurge)
	}

	wallet := api.Group("/wallet", impl.authRequired())
	{
		wallet.GET("/balance", impl.GetWalletBalance)
		wallet.GET("/transactions", impl.GetWalletTransactions)
		wallet.GET("/reconcile", impl.GetWalletReconcile)
		wallet.POST("/topup/initialize", impl.rateLimited(), impl.PostWalletTopupInitialize)
		wallet.POST("/cashout", impl.rateLimited(), impl.PostWalletCashout)
		wallet.POST("/cashout/cleanup-stuck", impl.PostWalletCashoutCleanupStuck)
	}

	notifications := api.Group("/notifications", impl.authRequired())
	{
		notifications.GET("", impl.GetNotifications)
		notifications.GET("/unread-count", impl.GetNotificationsUnreadCount)
		notifications.PUT("/read-all", impl.PutNotificationsReadAll)
		notifications.PUT("/:notification_id/read", impl.PutNotificationsNotificationIDRead)
		notifications.DELETE("/:notification_id", impl.DeleteNotificationsNotificationID)
		notifications.DELETE("", impl.DeleteNotifications)
	}

	uploads := api.Group("/uploads", impl.authRequired())
	{
		uploads.POST("/upload", impl.rateLimited(), impl.PostUpload)
	}
}
