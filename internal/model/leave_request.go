package model

import "time"

// LeaveStatus 请假申请状态
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// LeaveRequest 请假申请表 — 对应 leave_requests
// 批准后由排班侧把当天名额清零，申请行本身只记录审批轨迹
type LeaveRequest struct {
	LeaveID    string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"leave_id"`
	WorkerID   string      `gorm:"type:uuid;not null"                             json:"worker_id"`
	WorkDate   time.Time   `gorm:"type:date;not null"                             json:"work_date"`
	Reason     string      `gorm:"type:text;not null;default:''"                  json:"reason"`
	Status     LeaveStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ReviewedBy *string     `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	BaseModel

	// 关联
	Worker *User `gorm:"foreignKey:WorkerID;references:UserID" json:"worker,omitempty"`
}

// TableName 指定表名
func (LeaveRequest) TableName() string { return "leave_requests" }
