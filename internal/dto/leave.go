package dto

// ── 请假模块 DTO ──

// CreateLeaveRequest 创建请假申请
type CreateLeaveRequest struct {
	WorkDate string `json:"work_date" binding:"required,datetime=2006-01-02"`
	Reason   string `json:"reason"    binding:"omitempty,max=500"`
}

// ReviewLeaveRequest 审批请假申请（OWNER）
type ReviewLeaveRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
}

// LeaveResponse 请假申请响应
type LeaveResponse struct {
	ID         string `json:"id"`
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name,omitempty"`
	WorkDate   string `json:"work_date"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}
