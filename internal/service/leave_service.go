package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/model"
	"hydrofix/backend/internal/repository"
	"hydrofix/backend/pkg/redis"
)

// ── 请假模块业务错误 ──

var (
	ErrLeaveNotFound         = errors.New("请假申请不存在")
	ErrLeaveDateInPast       = errors.New("不能为过去的日期请假")
	ErrLeaveNotWorkday       = errors.New("只能为工作日请假")
	ErrLeaveDayNotFree       = errors.New("该日已有预约或已请假，不能请假")
	ErrLeaveAlreadyRequested = errors.New("该日已提交过请假申请")
	ErrLeaveAlreadyReviewed  = errors.New("该申请已审批过")
)

// LeaveService 请假业务接口
type LeaveService interface {
	// Create 提交请假申请：只允许未来的、名额仍满的工作日
	Create(ctx context.Context, workerID string, req *dto.CreateLeaveRequest) (*dto.LeaveResponse, error)
	// ListPending 待审批申请（OWNER）
	ListPending(ctx context.Context) ([]dto.LeaveResponse, error)
	// Review 审批：approve 封掉当日名额并触发对账，reject 仅记录
	Review(ctx context.Context, leaveID, reviewerID, action string) (*dto.LeaveResponse, error)
}

type leaveService struct {
	cfg      *config.ScheduleConfig
	repo     *repository.Repository
	schedule ScheduleService
	rdb      *redis.Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewLeaveService 创建 LeaveService 实例
func NewLeaveService(
	cfg *config.ScheduleConfig,
	repo *repository.Repository,
	schedule ScheduleService,
	rdb *redis.Client,
	logger *zap.Logger,
) LeaveService {
	return &leaveService{
		cfg:      cfg,
		repo:     repo,
		schedule: schedule,
		rdb:      rdb,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Create — 提交请假申请
// ════════════════════════════════════════════════════════════

func (s *leaveService) Create(ctx context.Context, workerID string, req *dto.CreateLeaveRequest) (*dto.LeaveResponse, error) {
	day, err := time.ParseInLocation("2006-01-02", req.WorkDate, time.UTC)
	if err != nil {
		return nil, ErrLeaveNotWorkday
	}
	day = model.DateOnly(day)

	today := model.DateOnly(s.now())
	if day.Before(today) {
		return nil, ErrLeaveDateInPast
	}
	if !model.IsWeekday(day) {
		return nil, ErrLeaveNotWorkday
	}

	// 先补齐视野，再看当天名额是否仍满：已有预约或已封日的不能请假
	if err := s.schedule.EnsureSchedule(ctx, workerID); err != nil {
		return nil, err
	}
	slot, err := s.repo.ScheduleSlot.Get(ctx, workerID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaveDayNotFree
		}
		s.logger.Error("查询档期失败", zap.Error(err))
		return nil, err
	}
	if slot.AvailableSlots != s.cfg.SlotsPerDay {
		return nil, ErrLeaveDayNotFree
	}

	exists, err := s.repo.Leave.HasOpenRequest(ctx, workerID, day)
	if err != nil {
		s.logger.Error("查询请假申请失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrLeaveAlreadyRequested
	}

	leave := &model.LeaveRequest{
		WorkerID: workerID,
		WorkDate: day,
		Reason:   req.Reason,
		Status:   model.LeaveStatusPending,
	}
	if err := s.repo.Leave.Create(ctx, leave); err != nil {
		s.logger.Error("创建请假申请失败", zap.Error(err))
		return nil, err
	}

	resp := toLeaveResponse(leave)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ListPending — 待审批申请
// ════════════════════════════════════════════════════════════

func (s *leaveService) ListPending(ctx context.Context) ([]dto.LeaveResponse, error) {
	leaves, err := s.repo.Leave.ListPending(ctx)
	if err != nil {
		s.logger.Error("查询待审批申请失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.LeaveResponse, 0, len(leaves))
	for i := range leaves {
		result = append(result, toLeaveResponse(&leaves[i]))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Review — 审批
// ════════════════════════════════════════════════════════════

func (s *leaveService) Review(ctx context.Context, leaveID, reviewerID, action string) (*dto.LeaveResponse, error) {
	leave, err := s.repo.Leave.GetByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaveNotFound
		}
		s.logger.Error("查询请假申请失败", zap.Error(err))
		return nil, err
	}
	if leave.Status != model.LeaveStatusPending {
		return nil, ErrLeaveAlreadyReviewed
	}

	if action == "approve" {
		leave.Status = model.LeaveStatusApproved
	} else {
		leave.Status = model.LeaveStatusRejected
	}
	leave.ReviewedBy = &reviewerID

	if err := s.repo.Leave.Update(ctx, leave); err != nil {
		s.logger.Error("更新请假申请失败", zap.Error(err))
		return nil, err
	}

	if leave.Status == model.LeaveStatusApproved {
		if err := s.schedule.ApplyApprovedLeave(ctx, leave.WorkerID, leave.WorkDate); err != nil {
			// 封日失败不回滚审批：重复批准封日是幂等的，人工或重试可补
			s.logger.Error("请假封日失败，需重试", zap.String("leave_id", leaveID), zap.Error(err))
			return nil, err
		}
		// 当天名额归零，让对账把没抢到档期的待派工单重排
		if s.rdb != nil {
			if err := s.rdb.PublishEvent(ctx, redis.ChannelWorkerFreed, leave.WorkerID); err != nil {
				s.logger.Warn("发布师傅变动事件失败", zap.Error(err))
			}
		}
	}

	resp := toLeaveResponse(leave)
	return &resp, nil
}

// ── 响应转换 ──

func toLeaveResponse(l *model.LeaveRequest) dto.LeaveResponse {
	resp := dto.LeaveResponse{
		ID:        l.LeaveID,
		WorkerID:  l.WorkerID,
		WorkDate:  model.DateOnly(l.WorkDate).Format("2006-01-02"),
		Reason:    l.Reason,
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if l.Worker != nil {
		resp.WorkerName = l.Worker.Name
	}
	return resp
}
