package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"sokoni/adapters/ledger"
	"sokoni/models"
)

// CheckoutRequest 結帳參數，商品清單取自購物車
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	IncludeShipping bool   `json:"include_shipping"`
}

// orderStatusMessages 買家通知中各狀態的措辭
var orderStatusMessages = map[models.OrderStatus]string{
	models.OrderPending:    "is pending",
	models.OrderConfirmed:  "has been confirmed",
	models.OrderProcessing: "is being processed",
	models.OrderShipped:    "has been shipped",
	models.OrderDelivered:  "has been delivered",
	models.OrderCancelled:  "has been cancelled",
}

func parseOrderStatus(value string) (models.OrderStatus, error) {
	status := models.OrderStatus(value)
	switch status {
	case models.OrderPending, models.OrderConfirmed, models.OrderProcessing,
		models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return status, nil
	}
	return "", models.Errorf(models.ErrValidation, "Invalid order status: %s", value)
}

// Estimate the shipping fee between the current user and a seller
// (GET /api/orders/shipping/estimate)
func (impl *ServerImpl) GetOrdersShippingEstimate(c *gin.Context) {
	const op = "GetOrdersShippingEstimate"
	ctx := c.Request.Context()
	user := currentUser(c)
	sellerID, err := uuid.Parse(c.Query("seller_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Seller not found")
		return
	}
	seller := models.User{ID: sellerID}
	if result := impl.db.WithContext(ctx).First(&seller); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Seller not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find seller, err=%w", op, result.Error))
		return
	}
	if !user.HasLocation() {
		abortWithMessage(c, http.StatusPreconditionFailed, "Set your address with location details first.")
		return
	}
	if !seller.HasLocation() {
		abortWithMessage(c, http.StatusPreconditionFailed, "Seller has not provided a pickup location yet.")
		return
	}

	distance := impl.shipping.Distance(*user.Latitude, *user.Longitude, *seller.Latitude, *seller.Longitude)
	c.JSON(http.StatusOK, ShippingEstimateResponse{
		DistanceKm:     distance,
		ShippingFeeSok: impl.shipping.Fee(distance),
		Currency:       "SOK",
		BaseFee:        impl.config.Fees.Shipping.BaseFee,
		RatePerKm:      impl.config.Fees.Shipping.PerKmRate,
	})
}

// Checkout the cart into a held-settlement order
// (POST /api/orders)
func (impl *ServerImpl) PostOrders(c *gin.Context) {
	const op = "PostOrders"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body CheckoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Shipping address is required")
		return
	}

	cartItems := []models.CartItem{}
	if result := impl.db.WithContext(ctx).
		Preload("Product").Preload("Product.Seller").
		Where("user_id = ?", user.ID).
		Find(&cartItems); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load cart, err=%w", op, result.Error))
		return
	}
	if len(cartItems) == 0 {
		abortWithMessage(c, http.StatusBadRequest, "Cart is empty")
		return
	}
	// 已下架的商品跳過不結帳；拍賣商品只能走得標付款流程，一併跳過
	validItems := lo.Filter(cartItems, func(item models.CartItem, _ int) bool {
		return item.Product != nil && !item.Product.IsAuction
	})
	if len(validItems) == 0 {
		abortWithMessage(c, http.StatusBadRequest, "No valid products in cart")
		return
	}

	// 訂單歸屬第一個商品的賣家
	seller := validItems[0].Product.Seller
	if seller == nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to resolve seller of product %s", op, validItems[0].ProductID))
		return
	}

	subtotal := lo.SumBy(validItems, func(item models.CartItem) float64 {
		return item.Product.Price * float64(item.Quantity)
	})
	processingFee := round2(subtotal * impl.config.Fees.ProcessingRate)

	var shippingFee float64
	var distance *float64
	if body.IncludeShipping {
		if !user.HasLocation() {
			abortWithMessage(c, http.StatusPreconditionFailed, "Add your address with location details before selecting Sokoni Africa logistics.")
			return
		}
		if !seller.HasLocation() {
			abortWithMessage(c, http.StatusPreconditionFailed, "Seller has not provided a pickup location yet. Contact the seller for delivery arrangements.")
			return
		}
		distance = impl.shipping.DistanceBetween(user.Latitude, user.Longitude, seller.Latitude, seller.Longitude)
		shippingFee = impl.shipping.FeeForDistance(distance)
	}

	order := models.Order{
		BuyerID:            user.ID,
		SellerID:           seller.ID,
		TotalAmount:        subtotal,
		ProcessingFee:      processingFee,
		ShippingFee:        shippingFee,
		ShippingDistanceKm: distance,
		Status:             models.OrderPending,
		PaymentStatus:      models.PaymentHeld,
		SettlementPolicy:   models.HeldSettlement,
		ShippingAddress:    body.ShippingAddress,
	}
	err := impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create order, err=%w", op, err)
		}
		items := lo.Map(validItems, func(item models.CartItem, _ int) models.OrderItem {
			return models.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.Product.Price,
			}
		})
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("[%s] Fail to create order items, err=%w", op, err)
		}
		order.Items = items

		// 買家先付全額，賣家收入保留到買家確認收貨
		txLedger := impl.ledger.WithTx(tx)
		_, err := txLedger.Debit(ctx, ledger.EntryParams{
			UserID:      user.ID,
			Amount:      order.TotalCharge(),
			Type:        models.TransactionPurchase,
			Description: fmt.Sprintf("Purchase - Order #%s", order.ID),
			Reference:   order.ReleaseReference(),
			Extra: &models.TransactionExtra{
				OrderID:            &order.ID,
				Subtotal:           lo.ToPtr(subtotal),
				ProcessingFee:      lo.ToPtr(processingFee),
				ShippingFee:        lo.ToPtr(shippingFee),
				ShippingDistanceKm: distance,
			},
		})
		if err != nil {
			return err
		}
		_, err = txLedger.RecordPendingEarn(ctx, ledger.EntryParams{
			UserID:      seller.ID,
			Amount:      order.SellerProceeds(),
			Type:        models.TransactionEarn,
			Description: fmt.Sprintf("Sale pending release - Order #%s from %s.", order.ID, user.Username),
			Reference:   order.ReleaseReference(),
			Extra: &models.TransactionExtra{
				OrderID:   &order.ID,
				Subtotal:  lo.ToPtr(subtotal),
				ReleaseOn: "delivery_confirmation",
			},
		})
		if err != nil {
			return err
		}

		fees := []models.FeeRecord{}
		if processingFee > 0 {
			fees = append(fees, models.FeeRecord{OrderID: order.ID, Kind: models.FeeProcessing, Amount: processingFee})
		}
		if shippingFee > 0 {
			fees = append(fees, models.FeeRecord{OrderID: order.ID, Kind: models.FeeShipping, Amount: shippingFee})
		}
		if len(fees) > 0 {
			if err := tx.Create(&fees).Error; err != nil {
				return fmt.Errorf("[%s] Fail to record fees, err=%w", op, err)
			}
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("[%s] Fail to clear cart, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	order.Buyer = user
	order.Seller = seller
	for i := range order.Items {
		order.Items[i].Product = validItems[i].Product
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:         seller.ID,
		Type:           models.NotificationOrder,
		Title:          "New Order",
		Message:        fmt.Sprintf("%s placed an order for %d item(s). %.2f SOK will be released once the buyer confirms delivery.", user.Username, len(order.Items), order.SellerProceeds()),
		RelatedUserID:  &user.ID,
		RelatedOrderID: &order.ID,
	})
	impl.notifier.Notify(ctx, &models.Notification{
		UserID:         user.ID,
		Type:           models.NotificationOrder,
		Title:          "Order Placed",
		Message:        fmt.Sprintf("Your order #%s has been placed successfully. %.2f SOK deducted from your wallet (includes %.2f SOK processing fee). Confirm delivery once you receive your items to release payment to the seller.", order.ID, order.TotalCharge(), processingFee),
		RelatedOrderID: &order.ID,
	})

	c.Header("Location", order.ID.String())
	c.JSON(http.StatusCreated, impl.toOrderResponse(&order, time.Now()))
}

// List orders the current user placed as a buyer
// (GET /api/orders)
func (impl *ServerImpl) GetOrders(c *gin.Context) {
	impl.listOrders(c, "buyer_id")
}

// List orders where the current user is the seller
// (GET /api/orders/sales)
func (impl *ServerImpl) GetOrdersSales(c *gin.Context) {
	impl.listOrders(c, "seller_id")
}

func (impl *ServerImpl) listOrders(c *gin.Context, column string) {
	const op = "listOrders"
	ctx := c.Request.Context()
	user := currentUser(c)
	orders := []models.Order{}
	if result := impl.db.WithContext(ctx).
		Preload("Items.Product").Preload("Buyer").Preload("Seller").
		Where(column+" = ?", user.ID).
		Order("created_at DESC").
		Find(&orders); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list orders, err=%w", op, result.Error))
		return
	}
	now := time.Now()
	c.JSON(http.StatusOK, lo.Map(orders, func(order models.Order, _ int) OrderResponse {
		return impl.toOrderResponse(&order, now)
	}))
}

// Get a single order, visible to its buyer and seller only
// (GET /api/orders/:order_id)
func (impl *ServerImpl) GetOrdersOrderID(c *gin.Context) {
	const op = "GetOrdersOrderID"
	ctx := c.Request.Context()
	user := currentUser(c)
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Order not found")
		return
	}
	order := models.Order{ID: orderID}
	if result := impl.db.WithContext(ctx).
		Preload("Items.Product").Preload("Buyer").Preload("Seller").
		First(&order); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Order not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find order, err=%w", op, result.Error))
		return
	}
	if order.BuyerID != user.ID && order.SellerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You don't have permission to view this order")
		return
	}
	c.JSON(http.StatusOK, impl.toOrderResponse(&order, time.Now()))
}

// Update the shipping status of an order, reversing funds on cancellation
// (PUT /api/orders/:order_id/status)
func (impl *ServerImpl) PutOrdersOrderIDStatus(c *gin.Context) {
	const op = "PutOrdersOrderIDStatus"
	ctx := c.Request.Context()
	user := currentUser(c)
	newStatus, err := parseOrderStatus(c.Query("new_status"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Order not found")
		return
	}
	order := models.Order{ID: orderID}
	if result := impl.db.WithContext(ctx).
		Preload("Items.Product").Preload("Buyer").Preload("Seller").
		First(&order); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Order not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find order, err=%w", op, result.Error))
		return
	}
	if order.SellerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "Only seller can update order status")
		return
	}
	// 收貨確認是買家的動作，賣家不能直接標成已送達
	if newStatus == models.OrderDelivered {
		abortWithMessage(c, http.StatusBadRequest, "Only the buyer can mark an order as delivered")
		return
	}
	if order.Status == models.OrderCancelled {
		if newStatus == models.OrderCancelled {
			c.JSON(http.StatusOK, impl.toOrderResponse(&order, time.Now()))
			return
		}
		abortWithMessage(c, http.StatusBadRequest, "Cannot update a cancelled order")
		return
	}
	if order.Status == models.OrderDelivered {
		abortWithMessage(c, http.StatusBadRequest, "Cannot update an order that has already been delivered")
		return
	}

	if newStatus == models.OrderCancelled {
		if order.PaymentStatus == models.PaymentPaid || order.PaymentStatus == models.PaymentReleased {
			abortWithMessage(c, http.StatusBadRequest, "Cannot cancel an order after payment has been released to the seller")
			return
		}
		err = impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if order.PaymentStatus == models.PaymentHeld {
				// 退還買家全額並取消賣家的待撥付收入，平台不留存已取消訂單的費用
				txLedger := impl.ledger.WithTx(tx)
				_, err := txLedger.Credit(ctx, ledger.EntryParams{
					UserID:      order.BuyerID,
					Amount:      order.TotalCharge(),
					Type:        models.TransactionRefund,
					Description: fmt.Sprintf("Refund - Order #%s cancelled", order.ID),
					Reference:   order.RefundReference(),
					Extra: &models.TransactionExtra{
						OrderID:       &order.ID,
						Subtotal:      lo.ToPtr(order.TotalAmount),
						ProcessingFee: lo.ToPtr(order.ProcessingFee),
						ShippingFee:   lo.ToPtr(order.ShippingFee),
					},
				})
				if err != nil {
					return err
				}
				if _, err := txLedger.CancelPendingEarn(ctx, order.ReleaseReference()); err != nil {
					return err
				}
				if err := tx.Where("order_id = ?", order.ID).Delete(&models.FeeRecord{}).Error; err != nil {
					return fmt.Errorf("[%s] Fail to void fee records, err=%w", op, err)
				}
				order.PaymentStatus = models.PaymentPending
			}
			order.Status = models.OrderCancelled
			err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
				Updates(map[string]any{"status": order.Status, "payment_status": order.PaymentStatus}).Error
			if err != nil {
				return fmt.Errorf("[%s] Fail to update order, err=%w", op, err)
			}
			return nil
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
	} else {
		order.Status = newStatus
		err := impl.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", order.Status).Error
		if err != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to update order, err=%w", op, err))
			return
		}
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:         order.BuyerID,
		Type:           models.NotificationOrder,
		Title:          "Order Status Updated",
		Message:        fmt.Sprintf("Your order #%s %s", order.ID, orderStatusMessages[order.Status]),
		RelatedOrderID: &order.ID,
	})
	c.JSON(http.StatusOK, impl.toOrderResponse(&order, time.Now()))
}

// Confirm delivery as the buyer, releasing the escrowed payment to the seller
// (POST /api/orders/:order_id/confirm-delivery)
func (impl *ServerImpl) PostOrdersOrderIDConfirmDelivery(c *gin.Context) {
	const op = "PostOrdersOrderIDConfirmDelivery"
	ctx := c.Request.Context()
	user := currentUser(c)
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Order not found")
		return
	}
	order := models.Order{ID: orderID}
	if result := impl.db.WithContext(ctx).
		Preload("Items.Product").Preload("Buyer").Preload("Seller").
		First(&order); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Order not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find order, err=%w", op, result.Error))
		return
	}
	if order.BuyerID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "Only the buyer can confirm delivery for this order")
		return
	}
	if order.Status == models.OrderCancelled {
		abortWithMessage(c, http.StatusBadRequest, "This order was cancelled and cannot be confirmed")
		return
	}
	// 已確認過的訂單直接回傳現狀
	if order.Status == models.OrderDelivered {
		c.JSON(http.StatusOK, impl.toOrderResponse(&order, time.Now()))
		return
	}
	if !lo.Contains([]models.OrderStatus{models.OrderShipped, models.OrderConfirmed, models.OrderProcessing}, order.Status) {
		abortWithMessage(c, http.StatusBadRequest, "Order cannot be confirmed yet. Please wait for the seller to ship it.")
		return
	}

	var released *models.WalletTransaction
	err = impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		released, err = impl.ledger.WithTx(tx).ReleasePendingEarn(ctx, order.ReleaseReference())
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Sale released - Order #%s confirmed by %s", order.ID, user.Username)
		if err := tx.Model(released).Update("description", description).Error; err != nil {
			return fmt.Errorf("[%s] Fail to update release description, err=%w", op, err)
		}
		order.Status = models.OrderDelivered
		order.PaymentStatus = models.PaymentReleased
		err = tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Updates(map[string]any{"status": order.Status, "payment_status": order.PaymentStatus}).Error
		if err != nil {
			return fmt.Errorf("[%s] Fail to update order, err=%w", op, err)
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	impl.notifier.Notify(ctx, &models.Notification{
		UserID:         order.SellerID,
		Type:           models.NotificationOrder,
		Title:          "Payment Released",
		Message:        fmt.Sprintf("Buyer %s confirmed delivery for order #%s. %.2f SOK has been added to your wallet.", user.Username, order.ID, released.Amount),
		RelatedUserID:  &user.ID,
		RelatedOrderID: &order.ID,
	})
	impl.notifier.Notify(ctx, &models.Notification{
		UserID:         user.ID,
		Type:           models.NotificationOrder,
		Title:          "Delivery Confirmed",
		Message:        fmt.Sprintf("Thank you! You confirmed delivery for order #%s. Payment has been released to the seller.", order.ID),
		RelatedOrderID: &order.ID,
	})
	c.JSON(http.StatusOK, impl.toOrderResponse(&order, time.Now()))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
