package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// rateLimited 以令牌桶限制單一呼叫端的請求頻率
// 已登入的請求以使用者編號分桶，匿名請求以來源位址分桶
// 限制器故障時放行並記錄，流量控制失效不應該擋下正常交易
func (impl *ServerImpl) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if impl.rateLimiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if user := currentUser(c); user != nil {
			key = user.ID.String()
		}
		allowed, err := impl.rateLimiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Warn("Rate limiter unavailable, allowing request", slog.String("key", key), slog.Any("error", err))
			c.Next()
			return
		}
		if !allowed {
			abortWithMessage(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
