package model

// Role 员工角色，闭合枚举
// 派单只认这两个值，其他取值一律不进入候选
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleWorker Role = "WORKER"
)

// Valid 判断是否为已知角色
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleWorker
}

// Tier 返回派单优先级档位，数字越小越先被派
// 未知角色返回 0，调用方应事先用 Valid 过滤
func (r Role) Tier() int {
	switch r {
	case RoleOwner:
		return 1
	case RoleWorker:
		return 2
	default:
		return 0
	}
}

// User 员工表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null;unique"              json:"email"`
	Phone        string `gorm:"type:varchar(20);not null;default:''"           json:"phone"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'WORKER'"     json:"role"`
	City         string `gorm:"type:varchar(100);not null"                     json:"city"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
