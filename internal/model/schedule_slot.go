package model

import "time"

// ScheduleSlot 排班档期表 — 对应 schedule_slots
// 每行代表一位师傅在某个工作日的剩余接单名额，(worker_id, work_date) 唯一。
// 行只增不删：过期的行由查询条件 work_date >= today 自然排除。
// available_slots 由三方共同维护：排班补齐时整行写满、派单时条件扣减、
// 请假批准时清零，任何时刻都落在 [0, slots_per_day] 区间内
type ScheduleSlot struct {
	SlotID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"              json:"slot_id"`
	WorkerID       string    `gorm:"type:uuid;not null;uniqueIndex:uq_schedule_slots_worker_date" json:"worker_id"`
	WorkDate       time.Time `gorm:"type:date;not null;uniqueIndex:uq_schedule_slots_worker_date" json:"work_date"`
	AvailableSlots int       `gorm:"not null"                                                     json:"available_slots"`
	BaseModel

	// 关联
	Worker *User `gorm:"foreignKey:WorkerID;references:UserID" json:"worker,omitempty"`
}

// TableName 指定表名
func (ScheduleSlot) TableName() string { return "schedule_slots" }
