package handler

import "hydrofix/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Order    *OrderHandler
	Schedule *ScheduleHandler
	Leave    *LeaveHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth, svc.User),
		User:     NewUserHandler(svc.User),
		Order:    NewOrderHandler(svc.Order),
		Schedule: NewScheduleHandler(svc.Schedule),
		Leave:    NewLeaveHandler(svc.Leave),
		Export:   NewExportHandler(svc.Export),
	}
}
