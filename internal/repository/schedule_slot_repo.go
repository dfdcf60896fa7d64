package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hydrofix/backend/internal/model"
	pkgerrors "hydrofix/backend/pkg/errors"
)

// ScheduleSlotRepository 排班档期数据访问接口
// 这是容量账本的唯一写入口：排班补齐只插行、派单只做条件扣减、请假只清零，
// 三种写法互不越界，账本才守得住 [0, slots_per_day] 的区间不变式
type ScheduleSlotRepository interface {
	// CountFullDays 统计 from（含）之后仍满额的工作日数量
	CountFullDays(ctx context.Context, workerID string, from time.Time, capacity int) (int64, error)
	// ListDates 列出 from（含）之后已有档期行的日期，满额与否都算
	ListDates(ctx context.Context, workerID string, from time.Time) ([]time.Time, error)
	// BatchInsert 批量插入档期行；撞上 (worker_id, work_date) 唯一键时静默跳过，
	// 并发补齐同一位师傅的排班因此是安全的
	BatchInsert(ctx context.Context, slots []model.ScheduleSlot) error
	// FindEarliestAvailable 在一组师傅中找 from（含）之后最早的有名额档期，
	// 同一天并列按 worker_id 升序取首个；无候选时返回 (nil, nil)
	FindEarliestAvailable(ctx context.Context, workerIDs []string, from time.Time) (*model.ScheduleSlot, error)
	// Reserve 条件扣减一个名额，仅当 available_slots > 0 时生效；
	// 未命中任何行返回 ErrSlotExhausted，说明名额已被并发预约抢光
	Reserve(ctx context.Context, workerID string, date time.Time) error
	// ZeroDay 把某天名额清零（请假封日）。行不存在则插入零名额行，重复调用无副作用
	ZeroDay(ctx context.Context, workerID string, date time.Time) error
	// ListFullDays 列出 from（含）之后仍满额的日期，升序
	ListFullDays(ctx context.Context, workerID string, from time.Time, capacity int) ([]time.Time, error)
	// Get 取单行档期；不存在返回 gorm.ErrRecordNotFound
	Get(ctx context.Context, workerID string, date time.Time) (*model.ScheduleSlot, error)
}

// scheduleSlotRepo ScheduleSlotRepository 的 GORM 实现
type scheduleSlotRepo struct {
	db *gorm.DB
}

// NewScheduleSlotRepo 创建 ScheduleSlotRepository 实例
func NewScheduleSlotRepo(db *gorm.DB) ScheduleSlotRepository {
	return &scheduleSlotRepo{db: db}
}

func (r *scheduleSlotRepo) CountFullDays(ctx context.Context, workerID string, from time.Time, capacity int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("worker_id = ? AND work_date >= ? AND available_slots = ?", workerID, from, capacity).
		Count(&count).Error
	return count, err
}

func (r *scheduleSlotRepo) ListDates(ctx context.Context, workerID string, from time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("worker_id = ? AND work_date >= ?", workerID, from).
		Order("work_date ASC").
		Pluck("work_date", &dates).Error
	return dates, err
}

func (r *scheduleSlotRepo) BatchInsert(ctx context.Context, slots []model.ScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "worker_id"}, {Name: "work_date"}},
			DoNothing: true,
		}).
		Create(&slots).Error
}

func (r *scheduleSlotRepo) FindEarliestAvailable(ctx context.Context, workerIDs []string, from time.Time) (*model.ScheduleSlot, error) {
	if len(workerIDs) == 0 {
		return nil, nil
	}

	var slot model.ScheduleSlot
	err := r.db.WithContext(ctx).
		Where("worker_id IN ? AND work_date >= ? AND available_slots > 0", workerIDs, from).
		Order("work_date ASC, worker_id ASC").
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *scheduleSlotRepo) Reserve(ctx context.Context, workerID string, date time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("worker_id = ? AND work_date = ? AND available_slots > 0", workerID, date).
		Update("available_slots", gorm.Expr("available_slots - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrSlotExhausted
	}
	return nil
}

func (r *scheduleSlotRepo) ZeroDay(ctx context.Context, workerID string, date time.Time) error {
	slot := model.ScheduleSlot{
		WorkerID:       workerID,
		WorkDate:       date,
		AvailableSlots: 0,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "worker_id"}, {Name: "work_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"available_slots": 0}),
		}).
		Create(&slot).Error
}

func (r *scheduleSlotRepo) ListFullDays(ctx context.Context, workerID string, from time.Time, capacity int) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("worker_id = ? AND work_date >= ? AND available_slots = ?", workerID, from, capacity).
		Order("work_date ASC").
		Pluck("work_date", &dates).Error
	return dates, err
}

func (r *scheduleSlotRepo) Get(ctx context.Context, workerID string, date time.Time) (*model.ScheduleSlot, error) {
	var slot model.ScheduleSlot
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND work_date = ?", workerID, date).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
