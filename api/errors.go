package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sokoni/models"
)

// ErrorResponse 所有失敗回應的共同格式
type ErrorResponse struct {
	Message string `json:"message"`
}

// statusFromError 將核心錯誤分類對應到 HTTP 狀態碼
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidBid),
		errors.Is(err, models.ErrInvalidOperation),
		errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 將錯誤轉成對外回應
// 分類過的錯誤帶原始訊息回傳，未分類的錯誤只記錄在日誌，對外回覆固定訊息
func abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		slog.Error("Unhandled error", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.AbortWithStatusJSON(status, ErrorResponse{Message: "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: err.Error()})
}

// abortWithMessage 以指定狀態碼回覆錯誤訊息
func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}
