package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sokoni/models"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// upsertCartItem 將商品放進購物車，已存在時累加數量
// 拍賣結標後得標商品也是經由這裡進到得標者的購物車
func upsertCartItem(tx *gorm.DB, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	item := models.CartItem{}
	err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	if err == nil {
		item.Quantity += quantity
		if result := tx.Save(&item); result.Error != nil {
			return nil, result.Error
		}
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	item = models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if result := tx.Create(&item); result.Error != nil {
		return nil, result.Error
	}
	return &item, nil
}

// Get the authenticated user's cart
// (GET /api/cart)
func (impl *ServerImpl) GetCart(c *gin.Context) {
	const op = "GetCart"
	ctx := c.Request.Context()
	user := currentUser(c)
	var items []models.CartItem
	if result := impl.db.WithContext(ctx).
		Preload("Product").Preload("Product.Seller").
		Where("user_id = ?", user.ID).
		Find(&items); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list cart items, err=%w", op, result.Error))
		return
	}
	now := time.Now()
	responses := make([]CartItemResponse, 0, len(items))
	for i := range items {
		// 商品下架後留在購物車裡的項目不再顯示
		if items[i].Product == nil {
			continue
		}
		responses = append(responses, impl.toCartItemResponse(&items[i], now))
	}
	c.JSON(http.StatusOK, responses)
}

// Add a product to the cart
// (POST /api/cart)
func (impl *ServerImpl) PostCart(c *gin.Context) {
	const op = "PostCart"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body AddCartItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Product id is required")
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}
	product := models.Product{ID: body.ProductID}
	if result := impl.db.WithContext(ctx).Preload("Seller").First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Product not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find product, err=%w", op, result.Error))
		return
	}
	item, err := upsertCartItem(impl.db.WithContext(ctx), user.ID, product.ID, body.Quantity)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to add cart item, err=%w", op, err))
		return
	}
	item.Product = &product
	c.JSON(http.StatusCreated, impl.toCartItemResponse(item, time.Now()))
}

// Update the quantity of a cart item
// (PUT /api/cart/:item_id)
func (impl *ServerImpl) PutCartItemID(c *gin.Context) {
	const op = "PutCartItemID"
	ctx := c.Request.Context()
	user := currentUser(c)
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Cart item not found")
		return
	}
	var body UpdateCartItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Quantity is required")
		return
	}
	item := models.CartItem{ID: itemID}
	if result := impl.db.WithContext(ctx).First(&item); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Cart item not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find cart item, err=%w", op, result.Error))
		return
	}
	if item.UserID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You don't have permission to update this cart item")
		return
	}
	// 數量歸零視同移除
	if body.Quantity <= 0 {
		if result := impl.db.WithContext(ctx).Delete(&item); result.Error != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to remove cart item, err=%w", op, result.Error))
			return
		}
		c.JSON(http.StatusOK, nil)
		return
	}
	item.Quantity = body.Quantity
	if result := impl.db.WithContext(ctx).Save(&item); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to update cart item, err=%w", op, result.Error))
		return
	}
	product := models.Product{ID: item.ProductID}
	if result := impl.db.WithContext(ctx).Preload("Seller").First(&product); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load cart product, err=%w", op, result.Error))
		return
	}
	item.Product = &product
	c.JSON(http.StatusOK, impl.toCartItemResponse(&item, time.Now()))
}

// Remove a cart item
// (DELETE /api/cart/:item_id)
func (impl *ServerImpl) DeleteCartItemID(c *gin.Context) {
	const op = "DeleteCartItemID"
	ctx := c.Request.Context()
	user := currentUser(c)
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Cart item not found")
		return
	}
	item := models.CartItem{ID: itemID}
	if result := impl.db.WithContext(ctx).First(&item); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Cart item not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find cart item, err=%w", op, result.Error))
		return
	}
	if item.UserID != user.ID {
		abortWithMessage(c, http.StatusForbidden, "You don't have permission to remove this cart item")
		return
	}
	if result := impl.db.WithContext(ctx).Delete(&item); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to remove cart item, err=%w", op, result.Error))
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear the cart
// (DELETE /api/cart)
func (impl *ServerImpl) DeleteCart(c *gin.Context) {
	const op = "DeleteCart"
	ctx := c.Request.Context()
	user := currentUser(c)
	if result := impl.db.WithContext(ctx).Where("user_id = ?", user.ID).Delete(&models.CartItem{}); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to clear cart, err=%w", op, result.Error))
		return
	}
	c.Status(http.StatusNoContent)
}
