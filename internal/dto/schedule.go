package dto

// ── 排班模块响应 ──

// WorkingDaysResponse 可请假的工作日列表
// 只返回名额仍满的未来工作日：已有预约或已被请假封掉的日子不能再请假
type WorkingDaysResponse struct {
	WorkingDays []string `json:"working_days"` // 格式 2006-01-02
}

// AssignmentResponse 派单结果
type AssignmentResponse struct {
	WorkerID        string `json:"worker_id"`
	AppointmentDate string `json:"appointment_date"`
}
