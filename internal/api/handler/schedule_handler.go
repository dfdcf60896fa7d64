package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/internal/service"
	"hydrofix/backend/pkg/response"
)

// ScheduleHandler 排班模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// WorkingDays 本人未来仍满额的工作日（请假资格）
// GET /api/v1/schedule/working-days
func (h *ScheduleHandler) WorkingDays(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	days, err := h.scheduleSvc.GetWorkingDays(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, days)
}

// Calendar 本人预约日历下载 (.ics)
// GET /api/v1/schedule/calendar.ics
func (h *ScheduleHandler) Calendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.scheduleSvc.BuildCalendar(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrWorkerNotFound) {
			response.NotFound(c, 14001, "师傅不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.File(c, filename, "text/calendar", buf.Bytes())
}
