package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全响应头中间件
// 本服务是纯 JSON API（外加 xlsx/ics 附件下载），不渲染页面，
// CSP 直接全关；其余头防止嗅探、内嵌与点击劫持
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-Download-Options", "noopen")

		c.Next()
	}
}
