package service

import (
	"go.uber.org/zap"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/repository"
	"hydrofix/backend/pkg/jwt"
	"hydrofix/backend/pkg/mailer"
	"hydrofix/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	User     UserService
	Schedule ScheduleService
	Assign   AssignService
	Order    OrderService
	Leave    LeaveService
	Export   ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	mail mailer.Sender,
	logger *zap.Logger,
) *Service {
	schedule := NewScheduleService(&cfg.Schedule, repo, logger)
	assign := NewAssignService(&cfg.Schedule, repo, schedule, logger)

	return &Service{
		Auth:     NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:     NewUserService(repo, logger),
		Schedule: schedule,
		Assign:   assign,
		Order:    NewOrderService(repo, assign, NewRuleClassifier(), mail, rdb, logger),
		Leave:    NewLeaveService(&cfg.Schedule, repo, schedule, rdb, logger),
		Export:   NewExportService(repo, logger),
	}
}
