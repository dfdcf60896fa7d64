package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/model"
)

func setupAssignService(repos *testRepos, cfg *config.ScheduleConfig) *assignService {
	schedule := &scheduleService{
		cfg:    cfg,
		repo:   repos.toRepository(),
		logger: zap.NewNop(),
		now:    testNow,
	}
	return &assignService{
		cfg:      cfg,
		repo:     repos.toRepository(),
		schedule: schedule,
		logger:   zap.NewNop(),
		now:      testNow,
	}
}

func seedReadyOrder(repos *testRepos, id, city string, urgency model.Urgency) {
	repos.order.orders[id] = &model.Order{
		OrderID:      id,
		CustomerName: "Anna Nowak",
		City:         city,
		Street:       "Długa",
		HouseNumber:  "5",
		PostCode:     "00-001",
		Urgency:      urgency,
		OrderStatus:  model.OrderStatusReadyToAssign,
	}
}

func TestAssign_UrgentGoesToOwnerToday(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("o-1", "Piotr Szef", model.RoleOwner, "Warszawa")
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}

	if result.WorkerID != "o-1" {
		t.Errorf("紧急工单应派给 OWNER, 实际 %s", result.WorkerID)
	}
	if result.AppointmentDate != "2025-03-03" {
		t.Errorf("紧急工单应排在今天, 实际 %s", result.AppointmentDate)
	}

	order := repos.order.orders["order-1"]
	if order.OrderStatus != model.OrderStatusInProgress {
		t.Errorf("派出后状态应为 In progress, 实际 %s", order.OrderStatus)
	}
	if repos.slot.slots[slotKey("o-1", testToday)].AvailableSlots != 5 {
		t.Error("派出后当日名额应扣减 1")
	}
}

func TestAssign_UrgentDrainsOwnerBeforeWorker(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("o-1", "Piotr Szef", model.RoleOwner, "Warszawa")
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	svc := setupAssignService(repos, testScheduleConfig())

	// 连续 6 单紧急工单应全部落在 OWNER 今天的档期上，名额 6→0
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("order-%d", i)
		seedReadyOrder(repos, id, "Warszawa", model.UrgencyUrgent)

		result, err := svc.Assign(context.Background(), id)
		if err != nil {
			t.Fatalf("第 %d 单应派出: %v", i, err)
		}
		if result.WorkerID != "o-1" || result.AppointmentDate != "2025-03-03" {
			t.Fatalf("第 %d 单应派给 OWNER 当天, 实际 %+v", i, result)
		}
		if got := repos.slot.slots[slotKey("o-1", testToday)].AvailableSlots; got != 6-i {
			t.Fatalf("第 %d 单后 OWNER 当日名额应为 %d, 实际 %d", i, 6-i, got)
		}
	}

	// OWNER 当天满额后仍优先 OWNER 的次日，WORKER 今天的名额不动
	seedReadyOrder(repos, "order-7", "Warszawa", model.UrgencyUrgent)
	result, err := svc.Assign(context.Background(), "order-7")
	if err != nil {
		t.Fatalf("第 7 单应派出: %v", err)
	}
	if result.WorkerID != "o-1" || result.AppointmentDate != "2025-03-04" {
		t.Errorf("第 7 单应顺延到 OWNER 次日, 实际 %+v", result)
	}
	if repos.slot.slots[slotKey("w-1", testToday)].AvailableSlots != 6 {
		t.Error("WORKER 的名额不应被占用")
	}
}

func TestAssign_NormalOrderKeepsBufferDay(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("o-1", "Piotr Szef", model.RoleOwner, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyNormal)
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}

	// 普通工单吃 1 天排期缓冲，最早排明天
	if result.AppointmentDate != "2025-03-04" {
		t.Errorf("普通工单应排在缓冲日之后, 实际 %s", result.AppointmentDate)
	}
	if repos.slot.slots[slotKey("o-1", testToday)].AvailableSlots != 6 {
		t.Error("今天的名额不应被普通工单占用")
	}
}

func TestAssign_WorkerTierWhenNoOwner(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}
	if result.WorkerID != "w-1" {
		t.Errorf("城市无 OWNER 时应派给 WORKER, 实际 %s", result.WorkerID)
	}
}

func TestAssign_SameDayTieBreaksByWorkerID(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-2", "Marek Wilk", model.RoleWorker, "Warszawa")
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}
	if result.WorkerID != "w-1" {
		t.Errorf("同日并列应按 worker_id 升序取第一位, 实际 %s", result.WorkerID)
	}
}

func TestAssign_RelaxesBufferWhenOnlyTodayFree(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	// 视野只要求 1 个满额日且今天已满额 → 补齐不会追加新行
	cfg := &config.ScheduleConfig{DaysRequired: 1, SlotsPerDay: 6, LowPriorityDelayDays: 1}
	repos.seedSlot("w-1", testToday, 6)
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyNormal)
	svc := setupAssignService(repos, cfg)

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}

	// 缓冲日之后无名额时放宽到今天，不让工单悬着
	if result.AppointmentDate != "2025-03-03" {
		t.Errorf("仅今天有名额时应放宽到今天, 实际 %s", result.AppointmentDate)
	}
}

func TestAssign_NoWorkersInArea(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Kraków")
	seedReadyOrder(repos, "order-1", "Gdańsk", model.UrgencyUrgent)
	svc := setupAssignService(repos, testScheduleConfig())

	_, err := svc.Assign(context.Background(), "order-1")
	if !errors.Is(err, ErrNoWorkersInArea) {
		t.Fatalf("应返回 ErrNoWorkersInArea, 实际 %v", err)
	}
	if repos.order.orders["order-1"].OrderStatus != model.OrderStatusReadyToAssign {
		t.Error("派不出去的工单应保持待派状态")
	}
	if !Unassignable(err) {
		t.Error("ErrNoWorkersInArea 应被视为暂不可派")
	}
}

func TestAssign_NoCapacityAvailable(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	// 视野要求为 0 → 补齐不创建任何行；仅有的档期已被请假封零
	cfg := &config.ScheduleConfig{DaysRequired: 0, SlotsPerDay: 6, LowPriorityDelayDays: 1}
	repos.seedSlot("w-1", testToday, 0)
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	svc := setupAssignService(repos, cfg)

	_, err := svc.Assign(context.Background(), "order-1")
	if !errors.Is(err, ErrNoCapacityAvailable) {
		t.Fatalf("应返回 ErrNoCapacityAvailable, 实际 %v", err)
	}
}

func TestAssign_IdempotentForInProgressOrder(t *testing.T) {
	repos := newTestRepos()
	workerID := "w-1"
	appointment := testToday.AddDate(0, 0, 1)
	repos.order.orders["order-1"] = &model.Order{
		OrderID:          "order-1",
		City:             "Warszawa",
		OrderStatus:      model.OrderStatusInProgress,
		AssignedWorkerID: &workerID,
		AppointmentDate:  &appointment,
	}
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("重复触发应成功: %v", err)
	}
	if result.WorkerID != "w-1" || result.AppointmentDate != "2025-03-04" {
		t.Errorf("应返回现有派单结果, 实际 %+v", result)
	}
	if repos.slot.reserveCalls != 0 {
		t.Error("重复触发不应再次扣减名额")
	}
}

func TestAssign_TerminalOrderNotAssignable(t *testing.T) {
	repos := newTestRepos()
	repos.order.orders["order-1"] = &model.Order{
		OrderID:     "order-1",
		City:        "Warszawa",
		OrderStatus: model.OrderStatusCompleted,
	}
	svc := setupAssignService(repos, testScheduleConfig())

	_, err := svc.Assign(context.Background(), "order-1")
	if !errors.Is(err, ErrOrderNotAssignable) {
		t.Fatalf("终态工单应返回 ErrOrderNotAssignable, 实际 %v", err)
	}
}

func TestAssign_OrderNotFound(t *testing.T) {
	repos := newTestRepos()
	svc := setupAssignService(repos, testScheduleConfig())

	_, err := svc.Assign(context.Background(), "ghost")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("应返回 ErrOrderNotFound, 实际 %v", err)
	}
}

func TestAssign_RetriesAfterRaceLoss(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	// 第一次扣减模拟被并发预约抢走
	repos.slot.failReserves = 1
	svc := setupAssignService(repos, testScheduleConfig())

	result, err := svc.Assign(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("竞态落败后重选应成功: %v", err)
	}
	if result.WorkerID != "w-1" {
		t.Errorf("重选后仍应派出, 实际 %+v", result)
	}
	if repos.slot.reserveCalls != 2 {
		t.Errorf("应经过一次落败 + 一次成功共 2 次扣减, 实际 %d", repos.slot.reserveCalls)
	}
}

func TestReassignPending_SweepsAllPendingOrders(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	seedReadyOrder(repos, "order-1", "Warszawa", model.UrgencyUrgent)
	seedReadyOrder(repos, "order-2", "Warszawa", model.UrgencyNormal)
	// 没有师傅的城市：保持待派，不报错
	seedReadyOrder(repos, "order-3", "Gdańsk", model.UrgencyUrgent)
	svc := setupAssignService(repos, testScheduleConfig())

	if err := svc.ReassignPending(context.Background()); err != nil {
		t.Fatalf("对账应成功: %v", err)
	}

	if repos.order.orders["order-1"].OrderStatus != model.OrderStatusInProgress {
		t.Error("order-1 应已派出")
	}
	if repos.order.orders["order-2"].OrderStatus != model.OrderStatusInProgress {
		t.Error("order-2 应已派出")
	}
	if repos.order.orders["order-3"].OrderStatus != model.OrderStatusReadyToAssign {
		t.Error("order-3 无师傅可派, 应保持待派")
	}
}
