package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/service"
	"hydrofix/backend/pkg/response"
)

// LeaveHandler 请假模块 HTTP 处理器
type LeaveHandler struct {
	leaveSvc service.LeaveService
}

// NewLeaveHandler 创建 LeaveHandler
func NewLeaveHandler(leaveSvc service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveSvc: leaveSvc}
}

// Create 提交请假申请
// POST /api/v1/leaves
func (h *LeaveHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.leaveSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.Created(c, result)
}

// ListPending 待审批申请（OWNER）
// GET /api/v1/leaves/pending
func (h *LeaveHandler) ListPending(c *gin.Context) {
	leaves, err := h.leaveSvc.ListPending(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, leaves)
}

// Review 审批请假申请（OWNER）
// POST /api/v1/leaves/:id/review
func (h *LeaveHandler) Review(c *gin.Context) {
	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.leaveSvc.Review(c.Request.Context(), c.Param("id"), reviewerID, req.Action)
	if err != nil {
		h.handleLeaveError(c, err)
		return
	}

	response.OK(c, result)
}

// handleLeaveError 请假模块业务错误到响应码的映射
func (h *LeaveHandler) handleLeaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLeaveNotFound):
		response.NotFound(c, 15001, "请假申请不存在")
	case errors.Is(err, service.ErrLeaveDateInPast):
		response.BadRequest(c, 15002, "不能为过去的日期请假")
	case errors.Is(err, service.ErrLeaveNotWorkday):
		response.BadRequest(c, 15003, "只能为工作日请假")
	case errors.Is(err, service.ErrLeaveDayNotFree):
		response.Conflict(c, 15004, "该日已有预约或已请假")
	case errors.Is(err, service.ErrLeaveAlreadyRequested):
		response.Conflict(c, 15005, "该日已提交过请假申请")
	case errors.Is(err, service.ErrLeaveAlreadyReviewed):
		response.Conflict(c, 15006, "该申请已审批过")
	default:
		response.InternalError(c)
	}
}
