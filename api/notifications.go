package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"sokoni/models"
)

// UnreadCountResponse 未讀通知數
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// ReadAllResponse 批次標記已讀的結果
type ReadAllResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// DeleteAllResponse 批次刪除通知的結果
type DeleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// notificationRelations 一次撈出通知關聯的使用者與商品摘要
func (impl *ServerImpl) notificationRelations(c *gin.Context, notifications []models.Notification) (map[uuid.UUID]models.User, map[uuid.UUID]models.Product, error) {
	userIDs := lo.Uniq(lo.FilterMap(notifications, func(n models.Notification, _ int) (uuid.UUID, bool) {
		if n.RelatedUserID == nil {
			return uuid.Nil, false
		}
		return *n.RelatedUserID, true
	}))
	productIDs := lo.Uniq(lo.FilterMap(notifications, func(n models.Notification, _ int) (uuid.UUID, bool) {
		if n.RelatedProductID == nil {
			return uuid.Nil, false
		}
		return *n.RelatedProductID, true
	}))

	users := map[uuid.UUID]models.User{}
	if len(userIDs) > 0 {
		rows := []models.User{}
		if result := impl.db.WithContext(c.Request.Context()).Where("id IN ?", userIDs).Find(&rows); result.Error != nil {
			return nil, nil, result.Error
		}
		users = lo.SliceToMap(rows, func(user models.User) (uuid.UUID, models.User) { return user.ID, user })
	}
	products := map[uuid.UUID]models.Product{}
	if len(productIDs) > 0 {
		rows := []models.Product{}
		if result := impl.db.WithContext(c.Request.Context()).Where("id IN ?", productIDs).Find(&rows); result.Error != nil {
			return nil, nil, result.Error
		}
		products = lo.SliceToMap(rows, func(product models.Product) (uuid.UUID, models.Product) { return product.ID, product })
	}
	return users, products, nil
}

// List notifications for the current user
// (GET /api/notifications)
func (impl *ServerImpl) GetNotifications(c *gin.Context) {
	const op = "GetNotifications"
	ctx := c.Request.Context()
	user := currentUser(c)

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))

	query := impl.db.WithContext(ctx).Where("user_id = ?", user.ID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	notifications := []models.Notification{}
	if result := query.Order("created_at DESC").Offset(skip).Limit(limit).
		Find(&notifications); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list notifications, err=%w", op, result.Error))
		return
	}

	users, products, err := impl.notificationRelations(c, notifications)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load notification relations, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, lo.Map(notifications, func(notification models.Notification, _ int) NotificationResponse {
		return impl.toNotificationResponse(&notification, users, products)
	}))
}

// Count unread notifications
// (GET /api/notifications/unread-count)
func (impl *ServerImpl) GetNotificationsUnreadCount(c *gin.Context) {
	const op = "GetNotificationsUnreadCount"
	ctx := c.Request.Context()
	user := currentUser(c)

	var count int64
	result := impl.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&count)
	if result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to count unread notifications, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// Mark a notification as read
// (PUT /api/notifications/:notification_id/read)
func (impl *ServerImpl) PutNotificationsNotificationIDRead(c *gin.Context) {
	const op = "PutNotificationsNotificationIDRead"
	ctx := c.Request.Context()
	user := currentUser(c)
	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Notification not found")
		return
	}

	notification := models.Notification{}
	result := impl.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, user.ID).
		First(&notification)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Notification not found")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find notification, err=%w", op, result.Error))
		return
	}
	if !notification.IsRead {
		result := impl.db.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ?", notification.ID).
			Update("is_read", true)
		if result.Error != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to update notification, err=%w", op, result.Error))
			return
		}
		notification.IsRead = true
	}

	users, products, err := impl.notificationRelations(c, []models.Notification{notification})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to load notification relations, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, impl.toNotificationResponse(&notification, users, products))
}

// Mark all notifications as read
// (PUT /api/notifications/read-all)
func (impl *ServerImpl) PutNotificationsReadAll(c *gin.Context) {
	const op = "PutNotificationsReadAll"
	ctx := c.Request.Context()
	user := currentUser(c)

	result := impl.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)
	if result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to update notifications, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, ReadAllResponse{UpdatedCount: result.RowsAffected})
}

// Delete a notification
// (DELETE /api/notifications/:notification_id)
func (impl *ServerImpl) DeleteNotificationsNotificationID(c *gin.Context) {
	const op = "DeleteNotificationsNotificationID"
	ctx := c.Request.Context()
	user := currentUser(c)
	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		abortWithMessage(c, http.StatusNotFound, "Notification not found")
		return
	}

	result := impl.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, user.ID).
		Delete(&models.Notification{})
	if result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to delete notification, err=%w", op, result.Error))
		return
	}
	if result.RowsAffected == 0 {
		abortWithMessage(c, http.StatusNotFound, "Notification not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete all notifications for the current user
// (DELETE /api/notifications)
func (impl *ServerImpl) DeleteNotifications(c *gin.Context) {
	const op = "DeleteNotifications"
	ctx := c.Request.Context()
	user := currentUser(c)

	result := impl.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Delete(&models.Notification{})
	if result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to delete notifications, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, DeleteAllResponse{
		Message:      fmt.Sprintf("Deleted %d notification(s)", result.RowsAffected),
		DeletedCount: result.RowsAffected,
	})
}
