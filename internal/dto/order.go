package dto

// ── 工单模块 DTO ──

// CreateOrderRequest 客户下单请求（公开接口）
// 字段格式校验（电话、邮编、NIP 等）在 Service 层完成，binding 只管必填与长度
type CreateOrderRequest struct {
	CustomerName  string `json:"customer_name"  binding:"required,min=2,max=100"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	Telephone     string `json:"telephone"      binding:"required,max=20"`
	City          string `json:"city"           binding:"required,min=2,max=100"`
	Street        string `json:"street"         binding:"required,max=255"`
	HouseNumber   string `json:"house_number"   binding:"required,max=20"`
	PostCode      string `json:"post_code"      binding:"required,max=10"`
	NIP           string `json:"nip"            binding:"omitempty,max=10"`
	Description   string `json:"description"    binding:"required,min=10"`
	PhotoURL      string `json:"photo_url"      binding:"omitempty,url"`
	Urgency       string `json:"urgency"        binding:"omitempty,max=30"`
}

// CreateOrderResponse 下单结果
// AppointmentDate 为空表示暂未派出，工单保留待派状态等待后台重试
type CreateOrderResponse struct {
	OrderID         string  `json:"order_id"`
	OrderStatus     string  `json:"order_status"`
	AppointmentDate *string `json:"appointment_date,omitempty"`
	Difficulty      string  `json:"difficulty"`
	PriceRange      string  `json:"price_range"`
	ClientResponse  string  `json:"client_response"`
}

// OrderResponse 工单详情响应
type OrderResponse struct {
	ID               string  `json:"id"`
	CustomerName     string  `json:"customer_name"`
	CustomerEmail    string  `json:"customer_email"`
	Telephone        string  `json:"telephone"`
	City             string  `json:"city"`
	Street           string  `json:"street"`
	HouseNumber      string  `json:"house_number"`
	PostCode         string  `json:"post_code"`
	NIP              string  `json:"nip,omitempty"`
	Description      string  `json:"description"`
	PhotoURL         string  `json:"photo_url,omitempty"`
	Urgency          string  `json:"urgency"`
	Difficulty       string  `json:"difficulty,omitempty"`
	PriceRange       string  `json:"price_range,omitempty"`
	OrderStatus      string  `json:"order_status"`
	AssignedWorkerID *string `json:"assigned_worker_id,omitempty"`
	AssignedWorker   string  `json:"assigned_worker,omitempty"`
	AppointmentDate  *string `json:"appointment_date,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// OrderListRequest 工单列表查询（OWNER）
type OrderListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,max=30"`
	City   string `form:"city"   binding:"omitempty,max=100"`
}

// OrderHistoryRequest 按地址查询历史工单
type OrderHistoryRequest struct {
	City        string `form:"city"         binding:"required,max=100"`
	Street      string `form:"street"       binding:"required,max=255"`
	HouseNumber string `form:"house_number" binding:"required,max=20"`
}

// UpdateOrderRequest 工单字段修正（OWNER）
// 只开放录入类字段，派单结果与状态由引擎维护
type UpdateOrderRequest struct {
	CustomerName  *string `json:"customer_name"  binding:"omitempty,min=2,max=100"`
	CustomerEmail *string `json:"customer_email" binding:"omitempty,email"`
	Telephone     *string `json:"telephone"      binding:"omitempty,max=20"`
	Street        *string `json:"street"         binding:"omitempty,max=255"`
	HouseNumber   *string `json:"house_number"   binding:"omitempty,max=20"`
	PostCode      *string `json:"post_code"      binding:"omitempty,max=10"`
	Description   *string `json:"description"    binding:"omitempty,min=10"`
	PriceRange    *string `json:"price_range"    binding:"omitempty,max=50"`
}

// FinishOrderRequest 完结工单请求
// complete = 维修完成；delete = 取消工单。两者都会释放师傅名额
type FinishOrderRequest struct {
	Action string `json:"action" binding:"required,oneof=complete delete"`
}
