package dto

// ── 员工模块响应 ──

// UserResponse 员工信息响应（脱敏）
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	City      string `json:"city"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}
