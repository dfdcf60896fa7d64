package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/model"
	"hydrofix/backend/internal/repository"
)

// ── 排班模块业务错误 ──

var (
	ErrWorkerNotFound = errors.New("师傅不存在")
)

// ScheduleService 排班业务接口
// 容量账本（schedule_slots）的维护方：向前补齐排班视野、请假封日。
// 名额扣减不在这里，由派单侧在事务内完成
type ScheduleService interface {
	// EnsureSchedule 保证师傅从今天起有 days_required 个满额工作日
	// 幂等：满额天数够了就直接返回，可以在每次触发时便宜地调用
	EnsureSchedule(ctx context.Context, workerID string) error
	// GetWorkingDays 返回师傅未来仍满额的工作日（请假资格判断用）
	GetWorkingDays(ctx context.Context, workerID string) (*dto.WorkingDaysResponse, error)
	// BuildCalendar 把师傅名下进行中的预约导出为 iCalendar (.ics)
	BuildCalendar(ctx context.Context, workerID string) (*bytes.Buffer, string, error)
	// ApplyApprovedLeave 请假批准生效：当天名额直接清零（封日，不是扣减）。
	// 幂等，重复批准无副作用。
	// 已知缺口：封日不会迁移当天已被预约占用的工单，已占名额随之作废；
	// 与原派单流程保持一致，审批方需自行联系客户改期
	ApplyApprovedLeave(ctx context.Context, workerID string, workDate time.Time) error
}

type scheduleService struct {
	cfg    *config.ScheduleConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.ScheduleConfig, repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// EnsureSchedule — 向前补齐排班视野
// ════════════════════════════════════════════════════════════
//
// 算法：
//  1. 统计今天起仍满额的工作日数量，不够 days_required 才继续
//  2. 取出今天起已有档期行的所有日期（满额与否都算，避免重复建行）
//  3. 从今天开始逐日向后走，跳过周末和已有行的日期，补够缺口为止
//  4. 批量插入，唯一键冲突静默跳过 → 并发补齐同一师傅也安全
//
// 只插行、不改行、不删行；中途失败已落库的行保留，重跑会按当前状态重算缺口

func (s *scheduleService) EnsureSchedule(ctx context.Context, workerID string) error {
	today := model.DateOnly(s.now())

	full, err := s.repo.ScheduleSlot.CountFullDays(ctx, workerID, today, s.cfg.SlotsPerDay)
	if err != nil {
		return fmt.Errorf("统计满额工作日失败: %w", err)
	}

	missing := s.cfg.DaysRequired - int(full)
	if missing <= 0 {
		return nil
	}

	dates, err := s.repo.ScheduleSlot.ListDates(ctx, workerID, today)
	if err != nil {
		return fmt.Errorf("查询已有档期日期失败: %w", err)
	}
	existing := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		existing[model.DateOnly(d)] = true
	}

	slots := make([]model.ScheduleSlot, 0, missing)
	for day := today; len(slots) < missing; day = day.AddDate(0, 0, 1) {
		if !model.IsWeekday(day) || existing[day] {
			continue
		}
		slots = append(slots, model.ScheduleSlot{
			WorkerID:       workerID,
			WorkDate:       day,
			AvailableSlots: s.cfg.SlotsPerDay,
		})
	}

	if err := s.repo.ScheduleSlot.BatchInsert(ctx, slots); err != nil {
		return fmt.Errorf("补齐排班失败: %w", err)
	}

	s.logger.Debug("排班视野已补齐",
		zap.String("worker_id", workerID),
		zap.Int("inserted", len(slots)))
	return nil
}

// ════════════════════════════════════════════════════════════
// GetWorkingDays — 未来满额工作日
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GetWorkingDays(ctx context.Context, workerID string) (*dto.WorkingDaysResponse, error) {
	// 先补齐视野，新入职的师傅第一次查询也能拿到完整列表
	if err := s.EnsureSchedule(ctx, workerID); err != nil {
		return nil, err
	}

	today := model.DateOnly(s.now())
	dates, err := s.repo.ScheduleSlot.ListFullDays(ctx, workerID, today, s.cfg.SlotsPerDay)
	if err != nil {
		s.logger.Error("查询满额工作日失败", zap.Error(err))
		return nil, err
	}

	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, model.DateOnly(d).Format("2006-01-02"))
	}
	return &dto.WorkingDaysResponse{WorkingDays: days}, nil
}

// ════════════════════════════════════════════════════════════
// BuildCalendar — 预约日历导出 (.ics)
// ════════════════════════════════════════════════════════════

func (s *scheduleService) BuildCalendar(ctx context.Context, workerID string) (*bytes.Buffer, string, error) {
	worker, err := s.repo.User.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrWorkerNotFound
		}
		s.logger.Error("查询师傅失败", zap.Error(err))
		return nil, "", err
	}

	orders, err := s.repo.Order.ListAssignedToWorker(ctx, workerID)
	if err != nil {
		s.logger.Error("查询师傅工单失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//HydroFix//Dispatch//PL")
	cal.SetName(fmt.Sprintf("%s 的预约", worker.Name))

	for i := range orders {
		o := &orders[i]
		if o.AppointmentDate == nil {
			continue
		}
		day := model.DateOnly(*o.AppointmentDate)

		event := cal.AddEvent(o.OrderID)
		event.SetDtStampTime(s.now())
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("维修 - %s", o.CustomerName))
		event.SetLocation(fmt.Sprintf("%s, %s %s, %s", o.City, o.Street, o.HouseNumber, o.PostCode))
		event.SetDescription(o.Description)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("calendar_%s.ics", model.DateOnly(s.now()).Format("20060102"))
	return buf, filename, nil
}

// ════════════════════════════════════════════════════════════
// ApplyApprovedLeave — 请假封日
// ════════════════════════════════════════════════════════════

func (s *scheduleService) ApplyApprovedLeave(ctx context.Context, workerID string, workDate time.Time) error {
	day := model.DateOnly(workDate)
	if err := s.repo.ScheduleSlot.ZeroDay(ctx, workerID, day); err != nil {
		return fmt.Errorf("请假封日失败: %w", err)
	}

	s.logger.Info("请假已生效，当日名额清零",
		zap.String("worker_id", workerID),
		zap.String("work_date", day.Format("2006-01-02")))
	return nil
}
