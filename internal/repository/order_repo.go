package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hydrofix/backend/internal/model"
	pkgerrors "hydrofix/backend/pkg/errors"
)

// OrderRepository 工单数据访问接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	// ListReadyToAssign 返回全部待派工单，先到先派
	ListReadyToAssign(ctx context.Context) ([]model.Order, error)
	// ListAssignedToWorker 返回师傅名下进行中的工单，按预约日期升序
	ListAssignedToWorker(ctx context.Context, workerID string) ([]model.Order, error)
	List(ctx context.Context, status, city string, offset, limit int) ([]model.Order, int64, error)
	ListByAddress(ctx context.Context, city, street, houseNumber string) ([]model.Order, error)
	DistinctCities(ctx context.Context) ([]string, error)
	Update(ctx context.Context, order *model.Order) error
	// MarkAssigned 把待派工单落位到师傅与日期，并推进为进行中；
	// 仅当状态仍为 Ready to Assign 时生效，未命中返回 ErrOrderStateChanged。
	// 必须与 ScheduleSlot.Reserve 在同一事务中调用
	MarkAssigned(ctx context.Context, orderID, workerID string, date time.Time) error
	// Finish 把进行中的工单推进到终态；未命中返回 ErrOrderStateChanged
	Finish(ctx context.Context, orderID string, status model.OrderStatus) error
}

// orderRepo OrderRepository 的 GORM 实现
type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepo 创建 OrderRepository 实例
func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("AssignedWorker").
		Where("order_id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) ListReadyToAssign(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("order_status = ?", model.OrderStatusReadyToAssign).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) ListAssignedToWorker(ctx context.Context, workerID string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("assigned_worker_id = ? AND order_status = ?", workerID, model.OrderStatusInProgress).
		Order("appointment_date ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) List(ctx context.Context, status, city string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{})
	if status != "" {
		db = db.Where("order_status = ?", status)
	}
	if city != "" {
		db = db.Where("city = ?", city)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("AssignedWorker").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepo) ListByAddress(ctx context.Context, city, street, houseNumber string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("city = ? AND street = ? AND house_number = ?", city, street, houseNumber).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) DistinctCities(ctx context.Context) ([]string, error) {
	var cities []string
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Distinct("city").
		Order("city ASC").
		Pluck("city", &cities).Error
	return cities, err
}

func (r *orderRepo) Update(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepo) MarkAssigned(ctx context.Context, orderID, workerID string, date time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ? AND order_status = ?", orderID, model.OrderStatusReadyToAssign).
		Updates(map[string]interface{}{
			"assigned_worker_id": workerID,
			"appointment_date":   date,
			"order_status":       model.OrderStatusInProgress,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOrderStateChanged
	}
	return nil
}

func (r *orderRepo) Finish(ctx context.Context, orderID string, status model.OrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ? AND order_status = ?", orderID, model.OrderStatusInProgress).
		Update("order_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOrderStateChanged
	}
	return nil
}
