package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetTokenInfo 提取当前 Token 的 JTI 与过期时间（登出黑名单用）。
func MustGetTokenInfo(c *gin.Context) (string, time.Time, bool) {
	jti, jtiOK := c.Get("jti")
	exp, expOK := c.Get("token_expires_at")
	if !jtiOK || !expOK {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	jtiStr, ok1 := jti.(string)
	expTime, ok2 := exp.(time.Time)
	if !ok1 || !ok2 || jtiStr == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	return jtiStr, expTime, true
}
