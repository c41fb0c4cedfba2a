package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"sokoni/models"
)

// 所有成功回應都使用這裡的具名結構，欄位名稱即對外合約
// handler 不直接回傳 model，避免資料庫欄位外洩到 API

type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	IsAdmin         bool      `json:"is_admin"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	LocationAddress string    `json:"location_address"`
	CreatedAt       time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

type ProductResponse struct {
	ID             uuid.UUID `json:"id"`
	SellerID       uuid.UUID `json:"seller_id"`
	SellerUsername string    `json:"seller_username"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Price          float64   `json:"price"`
	LocalPrice     *float64  `json:"local_price"`
	LocalCurrency  *string   `json:"local_currency"`
	ImageURL       string    `json:"image_url"`
	Images         []string  `json:"images"`
	IsSold         bool      `json:"is_sold"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 拍賣欄位，非拍賣商品一律為 null 或 false
	IsAuction              bool                  `json:"is_auction"`
	StartingPrice          *float64              `json:"starting_price"`
	BidIncrement           *float64              `json:"bid_increment"`
	AuctionDurationMinutes *int                  `json:"auction_duration_minutes"`
	AuctionDurationHours   *float64              `json:"auction_duration_hours"`
	AuctionStartTime       *time.Time            `json:"auction_start_time"`
	AuctionEndTime         *time.Time            `json:"auction_end_time"`
	AuctionStatus          *models.AuctionStatus `json:"auction_status"`
	CurrentBid             *float64              `json:"current_bid"`
	CurrentBidderID        *uuid.UUID            `json:"current_bidder_id"`
	CurrentBidderUsername  *string               `json:"current_bidder_username"`
	WinnerID               *uuid.UUID            `json:"winner_id"`
	WinnerPaid             *bool                 `json:"winner_paid"`
	BidCount               *int64                `json:"bid_count"`
	TimeRemainingSeconds   *int                  `json:"time_remaining_seconds"`
}

type BidResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	BidderID       uuid.UUID `json:"bidder_id"`
	BidderUsername string    `json:"bidder_username"`
	BidAmount      float64   `json:"bid_amount"`
	BidTime        time.Time `json:"bid_time"`
	IsWinningBid   bool      `json:"is_winning_bid"`
	IsOutbid       bool      `json:"is_outbid"`
}

// AuctionResponse 拍賣看板與詳情的精簡視圖
type AuctionResponse struct {
	ProductID             uuid.UUID            `json:"product_id"`
	ProductTitle          string               `json:"product_title"`
	ProductImage          string               `json:"product_image"`
	StartingPrice         float64              `json:"starting_price"`
	CurrentBid            *float64             `json:"current_bid"`
	BidIncrement          float64              `json:"bid_increment"`
	AuctionStartTime      time.Time            `json:"auction_start_time"`
	AuctionEndTime        time.Time            `json:"auction_end_time"`
	AuctionStatus         models.AuctionStatus `json:"auction_status"`
	TimeRemainingSeconds  int                  `json:"time_remaining_seconds"`
	BidCount              int64                `json:"bid_count"`
	CurrentBidderID       *uuid.UUID           `json:"current_bidder_id"`
	CurrentBidderUsername *string              `json:"current_bidder_username"`
	WinnerID              *uuid.UUID           `json:"winner_id"`
	WinnerUsername        *string              `json:"winner_username"`
}

type AuctionPaymentResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	OrderID       uuid.UUID `json:"order_id"`
	TotalAmount   float64   `json:"total_amount"`
	ProcessingFee float64   `json:"processing_fee"`
	ShippingFee   float64   `json:"shipping_fee"`
	TotalCharge   float64   `json:"total_charge"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductResponse `json:"product"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type OrderItemResponse struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     float64          `json:"price"`
	Product   *ProductResponse `json:"product"`
}

type OrderResponse struct {
	ID                 uuid.UUID               `json:"id"`
	BuyerID            uuid.UUID               `json:"buyer_id"`
	SellerID           uuid.UUID               `json:"seller_id"`
	BuyerUsername      string                  `json:"buyer_username"`
	SellerUsername     string                  `json:"seller_username"`
	Status             models.OrderStatus      `json:"status"`
	TotalAmount        float64                 `json:"total_amount"`
	ProcessingFee      float64                 `json:"processing_fee"`
	ShippingFee        float64                 `json:"shipping_fee"`
	ShippingDistanceKm *float64                `json:"shipping_distance_km"`
	TotalCharge        float64                 `json:"total_charge"`
	PaymentStatus      models.PaymentStatus    `json:"payment_status"`
	SettlementPolicy   models.SettlementPolicy `json:"settlement_policy"`
	ShippingAddress    string                  `json:"shipping_address"`
	Items              []OrderItemResponse     `json:"items"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

type WalletResponse struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	SokocoinBalance float64   `json:"sokocoin_balance"`
	TotalEarned     float64   `json:"total_earned"`
	TotalSpent      float64   `json:"total_spent"`
	TotalTopup      float64   `json:"total_topup"`
	TotalCashout    float64   `json:"total_cashout"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type WalletTransactionResponse struct {
	ID              uuid.UUID                `json:"id"`
	WalletID        uuid.UUID                `json:"wallet_id"`
	UserID          uuid.UUID                `json:"user_id"`
	TransactionType models.TransactionType   `json:"transaction_type"`
	Status          models.TransactionStatus `json:"status"`
	SokocoinAmount  float64                  `json:"sokocoin_amount"`
	Description     string                   `json:"description"`
	Reference       string                   `json:"reference"`
	ExtraData       *models.TransactionExtra `json:"extra_data"`
	CreatedAt       time.Time                `json:"created_at"`
	CompletedAt     *time.Time               `json:"completed_at"`
}

type NotificationResponse struct {
	ID               uuid.UUID               `json:"id"`
	UserID           uuid.UUID               `json:"user_id"`
	NotificationType models.NotificationType `json:"notification_type"`
	Title            string                  `json:"title"`
	Message          string                  `json:"message"`
	IsRead           bool                    `json:"is_read"`
	RelatedUserID    *uuid.UUID              `json:"related_user_id"`
	RelatedProductID *uuid.UUID              `json:"related_product_id"`
	RelatedOrderID   *uuid.UUID              `json:"related_order_id"`

	// 關聯對象的摘要，對象已不存在時為 null
	RelatedUserUsername *string   `json:"related_user_username"`
	RelatedProductTitle *string   `json:"related_product_title"`
	RelatedProductImage *string   `json:"related_product_image"`
	CreatedAt           time.Time `json:"created_at"`
}

type ShippingEstimateResponse struct {
	DistanceKm     float64 `json:"distance_km"`
	ShippingFeeSok float64 `json:"shipping_fee_sok"`
	Currency       string  `json:"currency"`
	BaseFee        float64 `json:"base_fee"`
	RatePerKm      float64 `json:"rate_per_km"`
}

type TopupResponse struct {
	Success          bool    `json:"success"`
	TransactionID    string  `json:"transaction_id"`
	PaymentURL       *string `json:"payment_url"`
	PaymentReference string  `json:"payment_reference"`
	SokocoinAmount   float64 `json:"sokocoin_amount"`
	LocalAmount      float64 `json:"local_amount"`
	Currency         string  `json:"currency"`
	Message          string  `json:"message"`
}

type CashoutResponse struct {
	Success     bool                      `json:"success"`
	Message     string                    `json:"message"`
	Transaction WalletTransactionResponse `json:"transaction"`
}

type CleanupStuckResponse struct {
	Success               bool    `json:"success"`
	Message               string  `json:"message"`
	RefundedCount         int     `json:"refunded_count"`
	TotalSokocoinRefunded float64 `json:"total_sokocoin_refunded"`
}

func (impl *ServerImpl) toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		FullName:        user.FullName,
		IsAdmin:         user.IsAdmin,
		Latitude:        user.Latitude,
		Longitude:       user.Longitude,
		LocationAddress: user.LocationAddress,
		CreatedAt:       user.CreatedAt,
	}
}

// toProductResponse 組出商品的對外形狀
// 拍賣商品額外帶出目前出價與剩餘秒數，bidCount 為 nil 時不帶出價次數
func (impl *ServerImpl) toProductResponse(product *models.Product, bidCount *int64, now time.Time) ProductResponse {
	resp := ProductResponse{
		ID:          product.ID,
		SellerID:    product.SellerID,
		Title:       product.Title,
		Description: product.Description,
		Category:    product.Category,
		Price:       product.Price,
		ImageURL:    product.ImageURL,
		Images: lo.Map(product.MediaKeys, func(key string, _ int) string {
			return impl.s3Operator.PublicURL(key)
		}),
		IsSold:    product.IsSold,
		IsAuction: product.IsAuction,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
	if product.LocalPrice > 0 {
		resp.LocalPrice = lo.ToPtr(product.LocalPrice)
		resp.LocalCurrency = lo.ToPtr(product.LocalCurrencyCode)
	}
	if product.Seller != nil {
		resp.SellerUsername = product.Seller.Username
	}
	if !product.IsAuction {
		return resp
	}

	resp.StartingPrice = product.StartingPrice
	resp.BidIncrement = product.BidIncrement
	resp.AuctionDurationMinutes = product.AuctionDurationMinutes
	if product.AuctionDurationMinutes != nil {
		resp.AuctionDurationHours = lo.ToPtr(float64(*product.AuctionDurationMinutes) / 60)
	}
	resp.AuctionStartTime = product.AuctionStartTime
	resp.AuctionEndTime = product.AuctionEndTime
	resp.AuctionStatus = product.AuctionStatus
	resp.CurrentBid = product.CurrentBid
	resp.CurrentBidderID = product.CurrentBidderID
	if product.CurrentBidder != nil {
		resp.CurrentBidderUsername = lo.ToPtr(product.CurrentBidder.Username)
	}
	resp.WinnerID = product.WinnerID
	resp.WinnerPaid = lo.ToPtr(product.WinnerPaid)
	resp.BidCount = bidCount
	resp.TimeRemainingSeconds = lo.ToPtr(product.TimeRemainingSeconds(now))
	return resp
}

func (impl *ServerImpl) toBidResponse(bid *models.Bid) BidResponse {
	resp := BidResponse{
		ID:           bid.ID,
		ProductID:    bid.ProductID,
		BidderID:     bid.BidderID,
		BidAmount:    bid.Amount,
		BidTime:      bid.BidTime,
		IsWinningBid: bid.IsWinning,
		IsOutbid:     bid.IsOutbid,
	}
	if bid.Bidder != nil {
		resp.BidderUsername = bid.Bidder.Username
	}
	return resp
}

func (impl *ServerImpl) toAuctionResponse(product *models.Product, bidCount int64, now time.Time) AuctionResponse {
	resp := AuctionResponse{
		ProductID:            product.ID,
		ProductTitle:         product.Title,
		ProductImage:         product.ImageURL,
		CurrentBid:           product.CurrentBid,
		TimeRemainingSeconds: product.TimeRemainingSeconds(now),
		BidCount:             bidCount,
		CurrentBidderID:      product.CurrentBidderID,
		WinnerID:             product.WinnerID,
		AuctionStartTime:     product.CreatedAt,
		AuctionEndTime:       product.CreatedAt,
	}
	if resp.ProductImage == "" && len(product.MediaKeys) > 0 {
		resp.ProductImage = impl.s3Operator.PublicURL(product.MediaKeys[0])
	}
	if product.StartingPrice != nil {
		resp.StartingPrice = *product.StartingPrice
	}
	if product.BidIncrement != nil {
		resp.BidIncrement = *product.BidIncrement
	}
	if product.AuctionStartTime != nil {
		resp.AuctionStartTime = *product.AuctionStartTime
	}
	if product.AuctionEndTime != nil {
		resp.AuctionEndTime = *product.AuctionEndTime
	}
	if product.AuctionStatus != nil {
		resp.AuctionStatus = *product.AuctionStatus
	}
	if product.CurrentBidder != nil {
		resp.CurrentBidderUsername = lo.ToPtr(product.CurrentBidder.Username)
	}
	if product.Winner != nil {
		resp.WinnerUsername = lo.ToPtr(product.Winner.Username)
	}
	return resp
}

func (impl *ServerImpl) toCartItemResponse(item *models.CartItem, now time.Time) CartItemResponse {
	resp := CartItemResponse{
		ID:        item.ID,
		UserID:    item.UserID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Product != nil {
		resp.Product = impl.toProductResponse(item.Product, nil, now)
	}
	return resp
}

func (impl *ServerImpl) toOrderResponse(order *models.Order, now time.Time) OrderResponse {
	resp := OrderResponse{
		ID:                 order.ID,
		BuyerID:            order.BuyerID,
		SellerID:           order.SellerID,
		Status:             order.Status,
		TotalAmount:        order.TotalAmount,
		ProcessingFee:      order.ProcessingFee,
		ShippingFee:        order.ShippingFee,
		ShippingDistanceKm: order.ShippingDistanceKm,
		TotalCharge:        order.TotalCharge(),
		PaymentStatus:      order.PaymentStatus,
		SettlementPolicy:   order.SettlementPolicy,
		ShippingAddress:    order.ShippingAddress,
		Items:              []OrderItemResponse{},
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if order.Buyer != nil {
		resp.BuyerUsername = order.Buyer.Username
	}
	if order.Seller != nil {
		resp.SellerUsername = order.Seller.Username
	}
	for _, item := range order.Items {
		itemResp := OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		}
		if item.Product != nil {
			itemResp.Product = lo.ToPtr(impl.toProductResponse(item.Product, nil, now))
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp
}

func (impl *ServerImpl) toWalletResponse(wallet *models.Wallet) WalletResponse {
	return WalletResponse{
		ID:              wallet.ID,
		UserID:          wallet.UserID,
		SokocoinBalance: wallet.Balance,
		TotalEarned:     wallet.TotalEarned,
		TotalSpent:      wallet.TotalSpent,
		TotalTopup:      wallet.TotalTopup,
		TotalCashout:    wallet.TotalCashout,
		CreatedAt:       wallet.CreatedAt,
		UpdatedAt:       wallet.UpdatedAt,
	}
}

func (impl *ServerImpl) toTransactionResponse(entry *models.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:              entry.ID,
		WalletID:        entry.WalletID,
		UserID:          entry.UserID,
		TransactionType: entry.Type,
		Status:          entry.Status,
		SokocoinAmount:  entry.Amount,
		Description:     entry.Description,
		Reference:       entry.Reference,
		ExtraData:       entry.Extra,
		CreatedAt:       entry.CreatedAt,
		CompletedAt:     entry.CompletedAt,
	}
}

// toNotificationResponse 組出通知的對外形狀
// 關聯的使用者與商品由呼叫端整批撈出後傳入
func (impl *ServerImpl) toNotificationResponse(notification *models.Notification,
	users map[uuid.UUID]models.User, products map[uuid.UUID]models.Product) NotificationResponse {
	resp := NotificationResponse{
		ID:               notification.ID,
		UserID:           notification.UserID,
		NotificationType: notification.Type,
		Title:            notification.Title,
		Message:          notification.Message,
		IsRead:           notification.IsRead,
		RelatedUserID:    notification.RelatedUserID,
		RelatedProductID: notification.RelatedProductID,
		RelatedOrderID:   notification.RelatedOrderID,
		CreatedAt:        notification.CreatedAt,
	}
	if notification.RelatedUserID != nil {
		if user, ok := users[*notification.RelatedUserID]; ok {
			resp.RelatedUserUsername = lo.ToPtr(user.Username)
		}
	}
	if notification.RelatedProductID != nil {
		if product, ok := products[*notification.RelatedProductID]; ok {
			resp.RelatedProductTitle = lo.ToPtr(product.Title)
			image := product.ImageURL
			if image == "" && len(product.MediaKeys) > 0 {
				image = impl.s3Operator.PublicURL(product.MediaKeys[0])
			}
			if image != "" {
				resp.RelatedProductImage = lo.ToPtr(image)
			}
		}
	}
	return resp
}
