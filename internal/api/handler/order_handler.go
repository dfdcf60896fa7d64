package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/service"
	"hydrofix/backend/pkg/response"
)

// OrderHandler 工单模块 HTTP 处理器
type OrderHandler struct {
	orderSvc service.OrderService
}

// NewOrderHandler 创建 OrderHandler
func NewOrderHandler(orderSvc service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// Create 客户下单（公开接口）
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.orderSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMine 师傅名下进行中的工单
// GET /api/v1/orders/mine
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	orders, err := h.orderSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, orders)
}

// List 全部工单（OWNER）
// GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	orders, total, err := h.orderSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, orders, total, req.GetPage(), req.GetPageSize())
}

// Get 单个工单
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.GetByID(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// Update 工单字段修正（OWNER）
// PUT /api/v1/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	order, err := h.orderSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// Finish 完结工单（完成或取消）
// POST /api/v1/orders/:id/finish
func (h *OrderHandler) Finish(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.FinishOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.orderSvc.Finish(c.Request.Context(), c.Param("id"), userID, role, req.Action); err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, nil)
}

// History 同地址历史工单
// GET /api/v1/orders/history
func (h *OrderHandler) History(c *gin.Context) {
	var req dto.OrderHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	orders, err := h.orderSvc.History(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, orders)
}

// Cities 已覆盖城市清单（OWNER）
// GET /api/v1/orders/cities
func (h *OrderHandler) Cities(c *gin.Context) {
	cities, err := h.orderSvc.Cities(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, cities)
}

// handleOrderError 工单模块业务错误到响应码的映射
func (h *OrderHandler) handleOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.NotFound(c, 13001, "工单不存在")
	case errors.Is(err, service.ErrInvalidCustomerName):
		response.BadRequest(c, 13002, "客户姓名格式不正确")
	case errors.Is(err, service.ErrInvalidPhone):
		response.BadRequest(c, 13003, "电话号码格式不正确")
	case errors.Is(err, service.ErrInvalidPostCode):
		response.BadRequest(c, 13004, "邮编格式不正确")
	case errors.Is(err, service.ErrInvalidHouseNumber):
		response.BadRequest(c, 13005, "门牌号格式不正确")
	case errors.Is(err, service.ErrInvalidNIP):
		response.BadRequest(c, 13006, "NIP 税号校验失败")
	case errors.Is(err, service.ErrInvalidDescription):
		response.BadRequest(c, 13007, "报修描述无效，请补充细节")
	case errors.Is(err, service.ErrOrderNotInProgress):
		response.Conflict(c, 13008, "工单非进行中状态")
	case errors.Is(err, service.ErrNotOrderWorker):
		response.Forbidden(c, 13009, "只能操作派给自己的工单")
	default:
		response.InternalError(c)
	}
}
