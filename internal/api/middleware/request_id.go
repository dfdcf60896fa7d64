package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// 外部传入的 X-Request-ID 超过此长度视为不可信，直接换新
const requestIDMaxLen = 64

// RequestID 为每个请求挂上追踪 ID
// 优先沿用调用方传来的 X-Request-ID，便于从客户下单到派单落库
// 串起整条链路；缺失或超长时生成新 UUID，并回写响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

// RequestIDFrom 取出当前请求的追踪 ID，供访问日志复用
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
