package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"hydrofix/backend/internal/model"
)

// LeaveRepository 请假申请数据访问接口
type LeaveRepository interface {
	Create(ctx context.Context, req *model.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*model.LeaveRequest, error)
	// ListPending 返回全部待审批申请，先到先审
	ListPending(ctx context.Context) ([]model.LeaveRequest, error)
	// HasOpenRequest 检查同一师傅同一天是否已有未被驳回的申请
	HasOpenRequest(ctx context.Context, workerID string, date time.Time) (bool, error)
	Update(ctx context.Context, req *model.LeaveRequest) error
}

// leaveRepo LeaveRepository 的 GORM 实现
type leaveRepo struct {
	db *gorm.DB
}

// NewLeaveRepo 创建 LeaveRepository 实例
func NewLeaveRepo(db *gorm.DB) LeaveRepository {
	return &leaveRepo{db: db}
}

func (r *leaveRepo) Create(ctx context.Context, req *model.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *leaveRepo) GetByID(ctx context.Context, id string) (*model.LeaveRequest, error) {
	var req model.LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("leave_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *leaveRepo) ListPending(ctx context.Context) ([]model.LeaveRequest, error) {
	var reqs []model.LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Worker").
		Where("status = ?", model.LeaveStatusPending).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *leaveRepo) HasOpenRequest(ctx context.Context, workerID string, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.LeaveRequest{}).
		Where("worker_id = ? AND work_date = ? AND status IN ?", workerID, date,
			[]model.LeaveStatus{model.LeaveStatusPending, model.LeaveStatusApproved}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *leaveRepo) Update(ctx context.Context, req *model.LeaveRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}
