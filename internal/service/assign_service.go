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
	pkgerrors "hydrofix/backend/pkg/errors"
)

// ── 派单模块业务错误 ──

var (
	ErrOrderNotFound       = errors.New("工单不存在")
	ErrOrderNotAssignable  = errors.New("工单已完结，不可派单")
	ErrNoWorkersInArea     = errors.New("该城市暂无服务师傅")
	ErrNoCapacityAvailable = errors.New("该城市暂无可用名额")
)

// Unassignable 判断错误是否为"暂时派不出去"
// 这两种情况工单保持待派状态，等待下一次触发重试；不算故障
func Unassignable(err error) bool {
	return errors.Is(err, ErrNoWorkersInArea) || errors.Is(err, ErrNoCapacityAvailable)
}

// assignMaxAttempts 竞态落败后的重选上限
// 每次落败说明刚选中的档期被并发预约清空，重选会自然跳过它
const assignMaxAttempts = 5

// AssignService 派单业务接口
// 所有触发路径（下单、事件监听、启动对账）都走同一份实现，策略只此一处
type AssignService interface {
	// Assign 为工单选择师傅与日期并原子落位
	// 已是进行中的工单直接返回现有结果（触发至少一次投递，必须幂等）
	Assign(ctx context.Context, orderID string) (*dto.AssignmentResponse, error)
	// ReassignPending 电平触发的全量对账：把所有待派工单按先到先派重试一遍
	ReassignPending(ctx context.Context) error
}

type assignService struct {
	cfg      *config.ScheduleConfig
	repo     *repository.Repository
	schedule ScheduleService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssignService 创建 AssignService 实例
func NewAssignService(
	cfg *config.ScheduleConfig,
	repo *repository.Repository,
	schedule ScheduleService,
	logger *zap.Logger,
) AssignService {
	return &assignService{
		cfg:      cfg,
		repo:     repo,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Assign — 选人、选日、原子落位
// ════════════════════════════════════════════════════════════
//
// 策略：
//  1. 城市过滤出候选师傅，没有就暂不可派
//  2. 先为每位候选补齐排班视野
//  3. 按角色分两档：OWNER 档找完才轮到 WORKER 档
//  4. 紧急工单地板日 = 今天；普通工单 = 今天 + 排期缓冲
//  5. 档内取地板日之后最早的有名额日期，同日并列按 worker_id 升序
//  6. 普通工单两档都落空时放宽地板日到今天重找一遍——缓冲尽量守，
//     但只要还有任何名额就不让工单悬着
//  7. 条件扣减 + 工单落位在同一事务内提交；扣减未命中说明名额刚被
//     并发预约抢走，重新选下一个候选

func (s *assignService) Assign(ctx context.Context, orderID string) (*dto.AssignmentResponse, error) {
	order, err := s.repo.Order.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("查询工单失败", zap.Error(err))
		return nil, err
	}

	// 幂等：重复触发直接返回已有结果
	if order.OrderStatus == model.OrderStatusInProgress &&
		order.AssignedWorkerID != nil && order.AppointmentDate != nil {
		return &dto.AssignmentResponse{
			WorkerID:        *order.AssignedWorkerID,
			AppointmentDate: model.DateOnly(*order.AppointmentDate).Format("2006-01-02"),
		}, nil
	}
	if order.OrderStatus.Terminal() {
		return nil, ErrOrderNotAssignable
	}

	employees, err := s.repo.User.ListActiveByCity(ctx, order.City)
	if err != nil {
		s.logger.Error("查询城市师傅失败", zap.Error(err))
		return nil, err
	}
	if len(employees) == 0 {
		return nil, ErrNoWorkersInArea
	}

	for i := range employees {
		if err := s.schedule.EnsureSchedule(ctx, employees[i].UserID); err != nil {
			return nil, err
		}
	}

	// 角色分档。ListActiveByCity 已过滤未知角色，这里只做分组
	var owners, workers []string
	for i := range employees {
		switch employees[i].Role.Tier() {
		case 1:
			owners = append(owners, employees[i].UserID)
		case 2:
			workers = append(workers, employees[i].UserID)
		}
	}

	today := model.DateOnly(s.now())
	floor := today
	if !order.Urgency.IsUrgent() {
		floor = today.AddDate(0, 0, s.cfg.LowPriorityDelayDays)
	}

	for attempt := 0; attempt < assignMaxAttempts; attempt++ {
		slot, err := s.pickSlot(ctx, owners, workers, floor, today)
		if err != nil {
			s.logger.Error("查询候选档期失败", zap.Error(err))
			return nil, err
		}
		if slot == nil {
			return nil, ErrNoCapacityAvailable
		}

		workDate := model.DateOnly(slot.WorkDate)
		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.ScheduleSlot.Reserve(ctx, slot.WorkerID, workDate); err != nil {
				return err
			}
			return tx.Order.MarkAssigned(ctx, order.OrderID, slot.WorkerID, workDate)
		})

		switch {
		case errors.Is(err, pkgerrors.ErrSlotExhausted):
			// 竞态落败：该档期已被并发预约清空，重选下一个候选
			s.logger.Debug("档期被抢占，重新选择",
				zap.String("order_id", orderID),
				zap.String("worker_id", slot.WorkerID),
				zap.String("work_date", workDate.Format("2006-01-02")))
			continue
		case errors.Is(err, pkgerrors.ErrOrderStateChanged):
			// 工单已被并发触发派出，读回现有结果
			current, gerr := s.repo.Order.GetByID(ctx, orderID)
			if gerr != nil {
				return nil, gerr
			}
			if current.AssignedWorkerID != nil && current.AppointmentDate != nil {
				return &dto.AssignmentResponse{
					WorkerID:        *current.AssignedWorkerID,
					AppointmentDate: model.DateOnly(*current.AppointmentDate).Format("2006-01-02"),
				}, nil
			}
			return nil, ErrOrderNotAssignable
		case err != nil:
			s.logger.Error("派单事务提交失败", zap.Error(err), zap.String("order_id", orderID))
			return nil, err
		}

		s.logger.Info("工单已派出",
			zap.String("order_id", orderID),
			zap.String("worker_id", slot.WorkerID),
			zap.String("work_date", workDate.Format("2006-01-02")),
			zap.String("urgency", string(order.Urgency)))
		return &dto.AssignmentResponse{
			WorkerID:        slot.WorkerID,
			AppointmentDate: workDate.Format("2006-01-02"),
		}, nil
	}

	return nil, ErrNoCapacityAvailable
}

// pickSlot 按分档策略找候选档期；找不到返回 (nil, nil)
func (s *assignService) pickSlot(
	ctx context.Context,
	owners, workers []string,
	floor, today time.Time,
) (*model.ScheduleSlot, error) {
	for _, tier := range [][]string{owners, workers} {
		slot, err := s.repo.ScheduleSlot.FindEarliestAvailable(ctx, tier, floor)
		if err != nil {
			return nil, err
		}
		if slot != nil {
			return slot, nil
		}
	}

	// 普通工单放宽地板日重找一遍；紧急工单地板日本来就是今天，无可放宽
	if floor.After(today) {
		for _, tier := range [][]string{owners, workers} {
			slot, err := s.repo.ScheduleSlot.FindEarliestAvailable(ctx, tier, today)
			if err != nil {
				return nil, err
			}
			if slot != nil {
				return slot, nil
			}
		}
	}

	return nil, nil
}

// ════════════════════════════════════════════════════════════
// ReassignPending — 全量对账
// ════════════════════════════════════════════════════════════
//
// 电平触发：不管消息内容是什么、重复几次，都把当前待派集合重扫一遍。
// 单个工单派不出去不影响其他工单

func (s *assignService) ReassignPending(ctx context.Context) error {
	orders, err := s.repo.Order.ListReadyToAssign(ctx)
	if err != nil {
		s.logger.Error("查询待派工单失败", zap.Error(err))
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	assigned := 0
	for i := range orders {
		if _, err := s.Assign(ctx, orders[i].OrderID); err != nil {
			if Unassignable(err) {
				s.logger.Debug("工单暂不可派，保持待派",
					zap.String("order_id", orders[i].OrderID),
					zap.String("reason", err.Error()))
				continue
			}
			s.logger.Error("对账派单失败",
				zap.String("order_id", orders[i].OrderID),
				zap.Error(err))
			continue
		}
		assigned++
	}

	s.logger.Info("待派工单对账完成",
		zap.Int("pending", len(orders)),
		zap.Int("assigned", assigned))
	return nil
}
