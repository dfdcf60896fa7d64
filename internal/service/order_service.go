package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/model"
	"hydrofix/backend/internal/repository"
	"hydrofix/backend/pkg/mailer"
	"hydrofix/backend/pkg/redis"
)

// ── 工单模块业务错误 ──

var (
	ErrInvalidCustomerName = errors.New("客户姓名格式不正确")
	ErrInvalidPhone        = errors.New("电话号码格式不正确")
	ErrInvalidPostCode     = errors.New("邮编格式不正确")
	ErrInvalidHouseNumber  = errors.New("门牌号格式不正确")
	ErrInvalidNIP          = errors.New("NIP 税号校验失败")
	ErrInvalidDescription  = errors.New("报修描述无效")
	ErrOrderNotInProgress  = errors.New("工单非进行中状态")
	ErrNotOrderWorker      = errors.New("只能操作派给自己的工单")
)

// ── 入参格式校验（波兰市场格式）──

var (
	// 姓名：字母（含波兰语变音）、空格、连字符
	namePattern = regexp.MustCompile(`^[A-Za-zżźćńółęąśŻŹĆĄŚĘŁÓŃ\s-]+$`)
	// 邮编：XX-XXX
	postCodePattern = regexp.MustCompile(`^\d{2}-\d{3}$`)
	// 门牌号：12、12A、A12
	houseNumberPattern = regexp.MustCompile(`^[0-9]+[A-Za-z]?$|^[A-Za-z][0-9]+$`)
	// 本地号码去掉前缀与分隔符后必须是 9 位数字
	phoneDigitsPattern = regexp.MustCompile(`^\d{9}$`)
	nipPattern         = regexp.MustCompile(`^\d{10}$`)
)

// normalizePhone 归一化电话号码：去掉 +48/48 前缀与分隔符，校验 9 位
func normalizePhone(phone string) (string, bool) {
	p := strings.TrimSpace(phone)
	if strings.HasPrefix(p, "+48") {
		p = p[3:]
	} else if strings.HasPrefix(p, "48") && len(p) > 9 {
		p = p[2:]
	}
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	p = replacer.Replace(p)
	if !phoneDigitsPattern.MatchString(p) {
		return "", false
	}
	return "+48" + p, true
}

// validateNIP 波兰 NIP 税号加权校验
// 权重 [6 5 7 2 3 4 5 6 7]，加权和模 11 等于末位校验码
func validateNIP(nip string) bool {
	if !nipPattern.MatchString(nip) {
		return false
	}
	weights := []int{6, 5, 7, 2, 3, 4, 5, 6, 7}
	sum := 0
	for i, w := range weights {
		sum += w * int(nip[i]-'0')
	}
	return sum%11 == int(nip[9]-'0')
}

// OrderService 工单业务接口
type OrderService interface {
	// Create 客户下单：校验 → 分类报价 → 建单 → 立即尝试派单 → 通知
	Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error)
	// GetByID 查询单个工单；WORKER 只能看派给自己的
	GetByID(ctx context.Context, orderID, callerID, callerRole string) (*dto.OrderResponse, error)
	// ListMine 师傅名下进行中的工单，按预约日期升序
	ListMine(ctx context.Context, workerID string) ([]dto.OrderResponse, error)
	// List 全部工单（OWNER），可按状态/城市过滤
	List(ctx context.Context, req *dto.OrderListRequest) ([]dto.OrderResponse, int64, error)
	// Update 修正录入类字段（OWNER）
	Update(ctx context.Context, orderID string, req *dto.UpdateOrderRequest) (*dto.OrderResponse, error)
	// Finish 完结工单：complete 完成 / delete 取消，释放触发对账
	Finish(ctx context.Context, orderID, callerID, callerRole, action string) error
	// History 同一地址的历史工单
	History(ctx context.Context, req *dto.OrderHistoryRequest) ([]dto.OrderResponse, error)
	// Cities 已有工单覆盖的城市清单
	Cities(ctx context.Context) ([]string, error)
}

type orderService struct {
	repo       *repository.Repository
	assign     AssignService
	classifier Classifier
	mail       mailer.Sender
	rdb        *redis.Client
	logger     *zap.Logger
}

// NewOrderService 创建 OrderService 实例
func NewOrderService(
	repo *repository.Repository,
	assign AssignService,
	classifier Classifier,
	mail mailer.Sender,
	rdb *redis.Client,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		repo:       repo,
		assign:     assign,
		classifier: classifier,
		mail:       mail,
		rdb:        rdb,
		logger:     logger,
	}
}

// ════════════════════════════════════════════════════════════
// Create — 客户下单
// ════════════════════════════════════════════════════════════
//
// 派单失败不是下单失败：选不出人时工单保持待派，发布事件等后台重试

func (s *orderService) Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	// 1. 格式校验
	if !namePattern.MatchString(req.CustomerName) {
		return nil, ErrInvalidCustomerName
	}
	phone, ok := normalizePhone(req.Telephone)
	if !ok {
		return nil, ErrInvalidPhone
	}
	if !postCodePattern.MatchString(req.PostCode) {
		return nil, ErrInvalidPostCode
	}
	if !houseNumberPattern.MatchString(req.HouseNumber) {
		return nil, ErrInvalidHouseNumber
	}
	if req.NIP != "" && !validateNIP(req.NIP) {
		return nil, ErrInvalidNIP
	}

	// 2. 缺陷分类与报价；分类器故障不阻塞收单，报价留空
	var cls *Classification
	cls, err := s.classifier.Classify(ctx, req.Description, req.PhotoURL)
	if err != nil {
		s.logger.Warn("缺陷分类失败，报价留空", zap.Error(err))
		cls = &Classification{Valid: true}
	}
	if !cls.Valid {
		return nil, ErrInvalidDescription
	}

	// 3. 建单
	order := &model.Order{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Telephone:     phone,
		City:          strings.TrimSpace(req.City),
		Street:        strings.TrimSpace(req.Street),
		HouseNumber:   req.HouseNumber,
		PostCode:      req.PostCode,
		NIP:           req.NIP,
		Description:   req.Description,
		PhotoURL:      req.PhotoURL,
		Urgency:       model.ParseUrgency(req.Urgency),
		Difficulty:    cls.Difficulty,
		PriceRange:    cls.PriceRange,
		OrderStatus:   model.OrderStatusReadyToAssign,
	}
	if err := s.repo.Order.Create(ctx, order); err != nil {
		s.logger.Error("创建工单失败", zap.Error(err))
		return nil, err
	}

	// 4. 立即尝试派单；派不出去不算错，保持待派
	resp := &dto.CreateOrderResponse{
		OrderID:        order.OrderID,
		OrderStatus:    string(model.OrderStatusReadyToAssign),
		Difficulty:     cls.Difficulty,
		PriceRange:     cls.PriceRange,
		ClientResponse: cls.ClientResponse,
	}
	if result, err := s.assign.Assign(ctx, order.OrderID); err != nil {
		if !Unassignable(err) {
			s.logger.Error("下单即时派单失败", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	} else {
		resp.OrderStatus = string(model.OrderStatusInProgress)
		resp.AppointmentDate = &result.AppointmentDate
	}

	// 5. 事件与邮件都是尽力而为
	if s.rdb != nil {
		if err := s.rdb.PublishEvent(ctx, redis.ChannelOrderArrived, order.OrderID); err != nil {
			s.logger.Warn("发布新工单事件失败", zap.Error(err))
		}
	}
	if err := s.mail.SendOrderConfirmation(order.CustomerEmail, order.OrderID); err != nil {
		s.logger.Warn("发送确认邮件失败", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 查询类操作
// ════════════════════════════════════════════════════════════

func (s *orderService) GetByID(ctx context.Context, orderID, callerID, callerRole string) (*dto.OrderResponse, error) {
	order, err := s.repo.Order.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("查询工单失败", zap.Error(err))
		return nil, err
	}

	if callerRole != string(model.RoleOwner) {
		if order.AssignedWorkerID == nil || *order.AssignedWorkerID != callerID {
			return nil, ErrNotOrderWorker
		}
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *orderService) ListMine(ctx context.Context, workerID string) ([]dto.OrderResponse, error) {
	orders, err := s.repo.Order.ListAssignedToWorker(ctx, workerID)
	if err != nil {
		s.logger.Error("查询名下工单失败", zap.Error(err))
		return nil, err
	}
	return toOrderResponses(orders), nil
}

func (s *orderService) List(ctx context.Context, req *dto.OrderListRequest) ([]dto.OrderResponse, int64, error) {
	orders, total, err := s.repo.Order.List(ctx, req.Status, req.City, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询工单列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toOrderResponses(orders), total, nil
}

func (s *orderService) History(ctx context.Context, req *dto.OrderHistoryRequest) ([]dto.OrderResponse, error) {
	orders, err := s.repo.Order.ListByAddress(ctx, req.City, req.Street, req.HouseNumber)
	if err != nil {
		s.logger.Error("查询地址历史工单失败", zap.Error(err))
		return nil, err
	}
	return toOrderResponses(orders), nil
}

func (s *orderService) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.repo.Order.DistinctCities(ctx)
	if err != nil {
		s.logger.Error("查询城市清单失败", zap.Error(err))
		return nil, err
	}
	return cities, nil
}

// ════════════════════════════════════════════════════════════
// Update — 字段修正（OWNER）
// ════════════════════════════════════════════════════════════

func (s *orderService) Update(ctx context.Context, orderID string, req *dto.UpdateOrderRequest) (*dto.OrderResponse, error) {
	order, err := s.repo.Order.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if req.CustomerName != nil {
		if !namePattern.MatchString(*req.CustomerName) {
			return nil, ErrInvalidCustomerName
		}
		order.CustomerName = *req.CustomerName
	}
	if req.CustomerEmail != nil {
		order.CustomerEmail = *req.CustomerEmail
	}
	if req.Telephone != nil {
		phone, ok := normalizePhone(*req.Telephone)
		if !ok {
			return nil, ErrInvalidPhone
		}
		order.Telephone = phone
	}
	if req.Street != nil {
		order.Street = *req.Street
	}
	if req.HouseNumber != nil {
		if !houseNumberPattern.MatchString(*req.HouseNumber) {
			return nil, ErrInvalidHouseNumber
		}
		order.HouseNumber = *req.HouseNumber
	}
	if req.PostCode != nil {
		if !postCodePattern.MatchString(*req.PostCode) {
			return nil, ErrInvalidPostCode
		}
		order.PostCode = *req.PostCode
	}
	if req.Description != nil {
		order.Description = *req.Description
	}
	if req.PriceRange != nil {
		order.PriceRange = *req.PriceRange
	}

	if err := s.repo.Order.Update(ctx, order); err != nil {
		s.logger.Error("更新工单失败", zap.Error(err))
		return nil, err
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// Finish — 完结工单
// ════════════════════════════════════════════════════════════

func (s *orderService) Finish(ctx context.Context, orderID, callerID, callerRole, action string) error {
	order, err := s.repo.Order.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if order.OrderStatus != model.OrderStatusInProgress {
		return ErrOrderNotInProgress
	}
	// WORKER 只能完结派给自己的工单；OWNER 不受限
	if callerRole != string(model.RoleOwner) {
		if order.AssignedWorkerID == nil || *order.AssignedWorkerID != callerID {
			return ErrNotOrderWorker
		}
	}

	status := model.OrderStatusCompleted
	if action == "delete" {
		status = model.OrderStatusDeleted
	}
	if err := s.repo.Order.Finish(ctx, orderID, status); err != nil {
		s.logger.Error("完结工单失败", zap.Error(err))
		return err
	}

	// 客户通知，尽力而为
	if status == model.OrderStatusCompleted {
		if err := s.mail.SendOrderCompleted(order.CustomerEmail, orderID); err != nil {
			s.logger.Warn("发送完工邮件失败", zap.Error(err))
		}
	} else {
		if err := s.mail.SendOrderRejection(order.CustomerEmail, orderID); err != nil {
			s.logger.Warn("发送取消邮件失败", zap.Error(err))
		}
	}

	// 师傅腾出档期，触发待派工单对账
	if s.rdb != nil && order.AssignedWorkerID != nil {
		if err := s.rdb.PublishEvent(ctx, redis.ChannelWorkerFreed, *order.AssignedWorkerID); err != nil {
			s.logger.Warn("发布师傅释放事件失败", zap.Error(err))
		}
	}

	s.logger.Info("工单已完结",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// ── 响应转换 ──

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:               o.OrderID,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		Telephone:        o.Telephone,
		City:             o.City,
		Street:           o.Street,
		HouseNumber:      o.HouseNumber,
		PostCode:         o.PostCode,
		NIP:              o.NIP,
		Description:      o.Description,
		PhotoURL:         o.PhotoURL,
		Urgency:          string(o.Urgency),
		Difficulty:       o.Difficulty,
		PriceRange:       o.PriceRange,
		OrderStatus:      string(o.OrderStatus),
		AssignedWorkerID: o.AssignedWorkerID,
		CreatedAt:        o.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if o.AppointmentDate != nil {
		d := model.DateOnly(*o.AppointmentDate).Format("2006-01-02")
		resp.AppointmentDate = &d
	}
	if o.AssignedWorker != nil {
		resp.AssignedWorker = o.AssignedWorker.Name
	}
	return resp
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	result := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result
}
