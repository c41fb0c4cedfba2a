package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sokoni/models"
)

type UpdateProfileRequest struct {
	Username        *string  `json:"username"`
	FullName        *string  `json:"full_name"`
	Email           *string  `json:"email"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	LocationAddress *string  `json:"location_address"`
}

// Get the authenticated user's profile
// (GET /api/users/me)
func (impl *ServerImpl) GetUsersMe(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, impl.toUserResponse(user))
}

// Update the authenticated user's profile
// (PUT /api/users/me)
func (impl *ServerImpl) PutUsersMe(c *gin.Context) {
	const op = "PutUsersMe"
	ctx := c.Request.Context()
	user := currentUser(c)
	var body UpdateProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	// 換帳號名稱前先確認沒有被其他人使用
	if body.Username != nil && *body.Username != user.Username {
		var count int64
		if result := impl.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ? AND id <> ?", *body.Username, user.ID).
			Count(&count); result.Error != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to check username, err=%w", op, result.Error))
			return
		}
		if count > 0 {
			abortWithMessage(c, http.StatusBadRequest, "Username already taken")
			return
		}
		user.Username = *body.Username
	}
	if body.FullName != nil {
		user.FullName = *body.FullName
	}
	if body.Email != nil {
		user.Email = *body.Email
	}
	// 座標成對更新，只給一半時另一半維持原值
	if body.Latitude != nil {
		user.Latitude = body.Latitude
	}
	if body.Longitude != nil {
		user.Longitude = body.Longitude
	}
	if body.LocationAddress != nil {
		user.LocationAddress = *body.LocationAddress
	}
	if result := impl.db.WithContext(ctx).Save(user); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to update user, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, impl.toUserResponse(user))
}
