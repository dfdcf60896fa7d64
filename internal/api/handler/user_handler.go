package handler

import (
	"github.com/gin-gonic/gin"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/service"
	"hydrofix/backend/pkg/response"
)

// UserHandler 员工模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListEmployees 员工名录（OWNER）
// GET /api/v1/users/employees
func (h *UserHandler) ListEmployees(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.ListEmployees(c.Request.Context(), &page)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, users, total, page.GetPage(), page.GetPageSize())
}
