package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/pkg/redis"
	"hydrofix/backend/pkg/response"
)

// RateLimit 接口限流中间件，按 客户端 IP + 路由 计数
// 窗口逻辑在 pkg/redis.CheckRateLimit；主要挡的是公开下单口的刷单。
// rdb 为 nil 或 Redis 出错时降级放行，与 JWTAuth 黑名单策略一致
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
