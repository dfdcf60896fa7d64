package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/model"
	"hydrofix/backend/internal/repository"
	pkgerrors "hydrofix/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id，另以 "email:"+email 建索引
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	if user.Email != "" {
		m.users["email:"+user.Email] = user
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListActiveByCity(_ context.Context, city string) ([]model.User, error) {
	var result []model.User
	for key, u := range m.users {
		if strings.HasPrefix(key, "email:") {
			continue
		}
		if u.City == city && u.IsActive && u.Role.Valid() {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for key, u := range m.users {
		if strings.HasPrefix(key, "email:") {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock ScheduleSlotRepository ──

type mockSlotRepo struct {
	slots map[string]*model.ScheduleSlot // key: worker_id|2006-01-02
	// failReserves 大于 0 时，接下来的 N 次 Reserve 模拟竞态落败
	failReserves int
	reserveCalls int
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[string]*model.ScheduleSlot)}
}

func slotKey(workerID string, date time.Time) string {
	return workerID + "|" + model.DateOnly(date).Format("2006-01-02")
}

func (m *mockSlotRepo) CountFullDays(_ context.Context, workerID string, from time.Time, capacity int) (int64, error) {
	var count int64
	for _, s := range m.slots {
		if s.WorkerID == workerID && !s.WorkDate.Before(from) && s.AvailableSlots == capacity {
			count++
		}
	}
	return count, nil
}

func (m *mockSlotRepo) ListDates(_ context.Context, workerID string, from time.Time) ([]time.Time, error) {
	var dates []time.Time
	for _, s := range m.slots {
		if s.WorkerID == workerID && !s.WorkDate.Before(from) {
			dates = append(dates, s.WorkDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (m *mockSlotRepo) BatchInsert(_ context.Context, slots []model.ScheduleSlot) error {
	for i := range slots {
		key := slotKey(slots[i].WorkerID, slots[i].WorkDate)
		if _, exists := m.slots[key]; exists {
			continue // 唯一键冲突静默跳过
		}
		s := slots[i]
		s.WorkDate = model.DateOnly(s.WorkDate)
		m.slots[key] = &s
	}
	return nil
}

func (m *mockSlotRepo) FindEarliestAvailable(_ context.Context, workerIDs []string, from time.Time) (*model.ScheduleSlot, error) {
	idSet := make(map[string]bool, len(workerIDs))
	for _, id := range workerIDs {
		idSet[id] = true
	}

	var best *model.ScheduleSlot
	for _, s := range m.slots {
		if !idSet[s.WorkerID] || s.WorkDate.Before(from) || s.AvailableSlots <= 0 {
			continue
		}
		if best == nil ||
			s.WorkDate.Before(best.WorkDate) ||
			(s.WorkDate.Equal(best.WorkDate) && s.WorkerID < best.WorkerID) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *mockSlotRepo) Reserve(_ context.Context, workerID string, date time.Time) error {
	m.reserveCalls++
	if m.failReserves > 0 {
		m.failReserves--
		return pkgerrors.ErrSlotExhausted
	}
	s, ok := m.slots[slotKey(workerID, date)]
	if !ok || s.AvailableSlots <= 0 {
		return pkgerrors.ErrSlotExhausted
	}
	s.AvailableSlots--
	return nil
}

func (m *mockSlotRepo) ZeroDay(_ context.Context, workerID string, date time.Time) error {
	key := slotKey(workerID, date)
	if s, ok := m.slots[key]; ok {
		s.AvailableSlots = 0
		return nil
	}
	m.slots[key] = &model.ScheduleSlot{
		WorkerID:       workerID,
		WorkDate:       model.DateOnly(date),
		AvailableSlots: 0,
	}
	return nil
}

func (m *mockSlotRepo) ListFullDays(_ context.Context, workerID string, from time.Time, capacity int) ([]time.Time, error) {
	var dates []time.Time
	for _, s := range m.slots {
		if s.WorkerID == workerID && !s.WorkDate.Before(from) && s.AvailableSlots == capacity {
			dates = append(dates, s.WorkDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (m *mockSlotRepo) Get(_ context.Context, workerID string, date time.Time) (*model.ScheduleSlot, error) {
	if s, ok := m.slots[slotKey(workerID, date)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock OrderRepository ──

type mockOrderRepo struct {
	orders map[string]*model.Order
	seq    int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*model.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	if order.OrderID == "" {
		m.seq++
		order.OrderID = fmt.Sprintf("order-%03d", m.seq)
	}
	order.CreatedAt = time.Now()
	m.orders[order.OrderID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrderRepo) ListReadyToAssign(_ context.Context) ([]model.Order, error) {
	var result []model.Order
	for _, o := range m.orders {
		if o.OrderStatus == model.OrderStatusReadyToAssign {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	return result, nil
}

func (m *mockOrderRepo) ListAssignedToWorker(_ context.Context, workerID string) ([]model.Order, error) {
	var result []model.Order
	for _, o := range m.orders {
		if o.OrderStatus == model.OrderStatusInProgress &&
			o.AssignedWorkerID != nil && *o.AssignedWorkerID == workerID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AppointmentDate == nil || result[j].AppointmentDate == nil {
			return result[i].OrderID < result[j].OrderID
		}
		return result[i].AppointmentDate.Before(*result[j].AppointmentDate)
	})
	return result, nil
}

func (m *mockOrderRepo) List(_ context.Context, status, city string, offset, limit int) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range m.orders {
		if status != "" && string(o.OrderStatus) != status {
			continue
		}
		if city != "" && o.City != city {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderID < all[j].OrderID })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockOrderRepo) ListByAddress(_ context.Context, city, street, houseNumber string) ([]model.Order, error) {
	var result []model.Order
	for _, o := range m.orders {
		if o.City == city && o.Street == street && o.HouseNumber == houseNumber {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	return result, nil
}

func (m *mockOrderRepo) DistinctCities(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var cities []string
	for _, o := range m.orders {
		if !seen[o.City] {
			seen[o.City] = true
			cities = append(cities, o.City)
		}
	}
	sort.Strings(cities)
	return cities, nil
}

func (m *mockOrderRepo) Update(_ context.Context, order *model.Order) error {
	cp := *order
	m.orders[order.OrderID] = &cp
	return nil
}

func (m *mockOrderRepo) MarkAssigned(_ context.Context, orderID, workerID string, date time.Time) error {
	o, ok := m.orders[orderID]
	if !ok || o.OrderStatus != model.OrderStatusReadyToAssign {
		return pkgerrors.ErrOrderStateChanged
	}
	d := model.DateOnly(date)
	o.OrderStatus = model.OrderStatusInProgress
	o.AssignedWorkerID = &workerID
	o.AppointmentDate = &d
	return nil
}

func (m *mockOrderRepo) Finish(_ context.Context, orderID string, status model.OrderStatus) error {
	o, ok := m.orders[orderID]
	if !ok || o.OrderStatus != model.OrderStatusInProgress {
		return pkgerrors.ErrOrderStateChanged
	}
	o.OrderStatus = status
	return nil
}

// ── Mock LeaveRepository ──

type mockLeaveRepo struct {
	leaves map[string]*model.LeaveRequest
	seq    int
}

func newMockLeaveRepo() *mockLeaveRepo {
	return &mockLeaveRepo{leaves: make(map[string]*model.LeaveRequest)}
}

func (m *mockLeaveRepo) Create(_ context.Context, req *model.LeaveRequest) error {
	if req.LeaveID == "" {
		m.seq++
		req.LeaveID = fmt.Sprintf("leave-%03d", m.seq)
	}
	req.CreatedAt = time.Now()
	m.leaves[req.LeaveID] = req
	return nil
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id string) (*model.LeaveRequest, error) {
	if l, ok := m.leaves[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLeaveRepo) ListPending(_ context.Context) ([]model.LeaveRequest, error) {
	var result []model.LeaveRequest
	for _, l := range m.leaves {
		if l.Status == model.LeaveStatusPending {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LeaveID < result[j].LeaveID })
	return result, nil
}

func (m *mockLeaveRepo) HasOpenRequest(_ context.Context, workerID string, date time.Time) (bool, error) {
	day := model.DateOnly(date)
	for _, l := range m.leaves {
		if l.WorkerID == workerID && model.DateOnly(l.WorkDate).Equal(day) &&
			(l.Status == model.LeaveStatusPending || l.Status == model.LeaveStatusApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLeaveRepo) Update(_ context.Context, req *model.LeaveRequest) error {
	cp := *req
	m.leaves[req.LeaveID] = &cp
	return nil
}

// ── Mock Mailer ──

type mockMailer struct {
	confirmations []string
	completions   []string
	rejections    []string
}

func (m *mockMailer) SendOrderConfirmation(_, orderID string) error {
	m.confirmations = append(m.confirmations, orderID)
	return nil
}

func (m *mockMailer) SendOrderCompleted(_, orderID string) error {
	m.completions = append(m.completions, orderID)
	return nil
}

func (m *mockMailer) SendOrderRejection(_, orderID string) error {
	m.rejections = append(m.rejections, orderID)
	return nil
}

// ── 测试辅助 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	user  *mockUserRepo
	slot  *mockSlotRepo
	order *mockOrderRepo
	leave *mockLeaveRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		user:  newMockUserRepo(),
		slot:  newMockSlotRepo(),
		order: newMockOrderRepo(),
		leave: newMockLeaveRepo(),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		User:         r.user,
		ScheduleSlot: r.slot,
		Order:        r.order,
		Leave:        r.leave,
	}
}

// testToday 固定测试基准日：2025-03-03 周一
var testToday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func testNow() time.Time {
	return time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC)
}

// testScheduleConfig 默认排班策略：30 个工作日视野、每日 6 个名额、普通工单缓冲 1 天
func testScheduleConfig() *config.ScheduleConfig {
	return &config.ScheduleConfig{
		DaysRequired:         30,
		SlotsPerDay:          6,
		LowPriorityDelayDays: 1,
	}
}

// seedWorker 种一位师傅
func (r *testRepos) seedWorker(id, name string, role model.Role, city string) {
	r.user.users[id] = &model.User{
		UserID:   id,
		Name:     name,
		Email:    id + "@hydrofix.pl",
		Role:     role,
		City:     city,
		IsActive: true,
	}
	r.user.users["email:"+id+"@hydrofix.pl"] = r.user.users[id]
}

// seedSlot 种一行档期
func (r *testRepos) seedSlot(workerID string, date time.Time, available int) {
	day := model.DateOnly(date)
	r.slot.slots[slotKey(workerID, day)] = &model.ScheduleSlot{
		WorkerID:       workerID,
		WorkDate:       day,
		AvailableSlots: available,
	}
}
