package model

import (
	"strings"
	"time"
)

// OrderStatus 工单生命周期状态
// Ready to Assign -> In progress -> Completed | Deleted
type OrderStatus string

const (
	OrderStatusReadyToAssign OrderStatus = "Ready to Assign"
	OrderStatusInProgress    OrderStatus = "In progress"
	OrderStatusCompleted     OrderStatus = "Completed"
	OrderStatusDeleted       OrderStatus = "Deleted"
)

// Terminal 判断状态是否为终态
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusDeleted
}

// Urgency 工单紧急程度，闭合枚举
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyNormal Urgency = "normal"
)

// IsUrgent 紧急工单从今天起找最早档期，不吃排期缓冲
func (u Urgency) IsUrgent() bool { return u == UrgencyUrgent }

// ParseUrgency 将自由文本归一化为闭合枚举
// 兼容历史客户端：大小写不敏感，只要求 urgent 前缀；无法识别按普通处理
func ParseUrgency(raw string) Urgency {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "urgent") {
		return UrgencyUrgent
	}
	return UrgencyNormal
}

// Order 工单表 — 对应 orders
type Order struct {
	OrderID          string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"       json:"order_id"`
	CustomerName     string      `gorm:"type:varchar(100);not null"                           json:"customer_name"`
	CustomerEmail    string      `gorm:"type:varchar(255);not null"                           json:"customer_email"`
	Telephone        string      `gorm:"type:varchar(20);not null"                            json:"telephone"`
	City             string      `gorm:"type:varchar(100);not null"                           json:"city"`
	Street           string      `gorm:"type:varchar(255);not null"                           json:"street"`
	HouseNumber      string      `gorm:"type:varchar(20);not null"                            json:"house_number"`
	PostCode         string      `gorm:"type:varchar(10);not null"                            json:"post_code"`
	NIP              string      `gorm:"type:varchar(10);not null;default:''"                 json:"nip"`
	Description      string      `gorm:"type:text;not null"                                   json:"description"`
	PhotoURL         string      `gorm:"type:text;not null;default:''"                        json:"photo_url"`
	Urgency          Urgency     `gorm:"type:varchar(10);not null;default:'normal'"           json:"urgency"`
	Difficulty       string      `gorm:"type:varchar(20);not null;default:''"                 json:"difficulty"`
	PriceRange       string      `gorm:"type:varchar(50);not null;default:''"                 json:"price_range"`
	OrderStatus      OrderStatus `gorm:"type:varchar(20);not null;default:'Ready to Assign'"  json:"order_status"`
	AssignedWorkerID *string     `gorm:"type:uuid"                                            json:"assigned_worker_id,omitempty"`
	AppointmentDate  *time.Time  `gorm:"type:date"                                            json:"appointment_date,omitempty"`
	BaseModel

	// 关联
	AssignedWorker *User `gorm:"foreignKey:AssignedWorkerID;references:UserID" json:"assigned_worker,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }
