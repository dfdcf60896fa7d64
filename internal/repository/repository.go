package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db           *gorm.DB
	User         UserRepository
	ScheduleSlot ScheduleSlotRepository
	Order        OrderRepository
	Leave        LeaveRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		ScheduleSlot: NewScheduleSlotRepo(db),
		Order:        NewOrderRepo(db),
		Leave:        NewLeaveRepo(db),
	}
}

// Transaction 在单个数据库事务内执行 fn，fn 返回错误即整体回滚
// 名额扣减与工单落位必须作为一个原子单元提交，派单侧统一走这里。
// 未持有数据库连接时（内存实现）退化为直接执行，一致性由各操作自身的条件更新保证
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
