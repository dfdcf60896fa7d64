package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/model"
)

func setupOrderService(repos *testRepos) (*orderService, *mockMailer) {
	mail := &mockMailer{}
	svc := &orderService{
		repo:       repos.toRepository(),
		assign:     setupAssignService(repos, testScheduleConfig()),
		classifier: NewRuleClassifier(),
		mail:       mail,
		logger:     zap.NewNop(),
	}
	return svc, mail
}

func validCreateRequest() *dto.CreateOrderRequest {
	return &dto.CreateOrderRequest{
		CustomerName:  "Anna Nowak",
		CustomerEmail: "anna@example.pl",
		Telephone:     "+48 123 456 789",
		City:          "Warszawa",
		Street:        "Marszałkowska",
		HouseNumber:   "12A",
		PostCode:      "00-590",
		Description:   "cieknący kran w kuchni, kapie cały dzień",
		Urgency:       "normal",
	}
}

// ── 入参格式校验 ──

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"+48 123 456 789", "+48123456789", true},
		{"48123456789", "+48123456789", true},
		{"123-456-789", "+48123456789", true},
		{"(12) 345 67 89", "+48123456789", true},
		{"12345678", "", false},   // 8 位
		{"1234567890", "", false}, // 10 位且无国家前缀
		{"abc456789", "", false},
	}
	for _, c := range cases {
		got, ok := normalizePhone(c.in)
		if ok != c.valid {
			t.Errorf("normalizePhone(%q) 有效性应为 %v", c.in, c.valid)
			continue
		}
		if ok && got != c.want {
			t.Errorf("normalizePhone(%q) = %q, 期望 %q", c.in, got, c.want)
		}
	}
}

func TestValidateNIP(t *testing.T) {
	// 加权和 225 mod 11 = 5 = 末位
	if !validateNIP("5260250995") {
		t.Error("合法 NIP 应通过校验")
	}
	if validateNIP("5260250996") {
		t.Error("校验位错误的 NIP 应被拒绝")
	}
	if validateNIP("526025099") {
		t.Error("位数不足的 NIP 应被拒绝")
	}
	if validateNIP("52602509a5") {
		t.Error("含字母的 NIP 应被拒绝")
	}
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	repos := newTestRepos()
	svc, _ := setupOrderService(repos)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*dto.CreateOrderRequest)
		want   error
	}{
		{"非法姓名", func(r *dto.CreateOrderRequest) { r.CustomerName = "Anna123" }, ErrInvalidCustomerName},
		{"非法电话", func(r *dto.CreateOrderRequest) { r.Telephone = "12345" }, ErrInvalidPhone},
		{"非法邮编", func(r *dto.CreateOrderRequest) { r.PostCode = "00590" }, ErrInvalidPostCode},
		{"非法门牌号", func(r *dto.CreateOrderRequest) { r.HouseNumber = "12AB" }, ErrInvalidHouseNumber},
		{"非法 NIP", func(r *dto.CreateOrderRequest) { r.NIP = "5260250996" }, ErrInvalidNIP},
		{"描述过短", func(r *dto.CreateOrderRequest) { r.Description = "krótko" }, ErrInvalidDescription},
	}
	for _, c := range cases {
		req := validCreateRequest()
		c.mutate(req)
		if _, err := svc.Create(ctx, req); !errors.Is(err, c.want) {
			t.Errorf("%s: 应返回 %v, 实际 %v", c.name, c.want, err)
		}
	}

	if len(repos.order.orders) != 0 {
		t.Error("校验失败时不应建单")
	}
}

func TestCreateOrder_AssignsAndNotifies(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	svc, mail := setupOrderService(repos)

	resp, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if resp.OrderStatus != string(model.OrderStatusInProgress) {
		t.Errorf("有师傅可派时状态应为 In progress, 实际 %s", resp.OrderStatus)
	}
	if resp.AppointmentDate == nil || *resp.AppointmentDate != "2025-03-04" {
		t.Errorf("普通工单应排在缓冲日之后, 实际 %v", resp.AppointmentDate)
	}
	if resp.Difficulty != DifficultyLow {
		t.Errorf("滴漏类描述应分类为 %s, 实际 %s", DifficultyLow, resp.Difficulty)
	}
	if resp.PriceRange != "150-250 zł" {
		t.Errorf("报价区间不符: %s", resp.PriceRange)
	}

	order := repos.order.orders[resp.OrderID]
	if order.Telephone != "+48123456789" {
		t.Errorf("电话应归一化存储, 实际 %s", order.Telephone)
	}
	if len(mail.confirmations) != 1 || mail.confirmations[0] != resp.OrderID {
		t.Error("应发送下单确认邮件")
	}
}

func TestCreateOrder_StaysPendingWithoutWorkers(t *testing.T) {
	repos := newTestRepos()
	svc, _ := setupOrderService(repos)

	resp, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("派不出去不应算下单失败: %v", err)
	}

	if resp.OrderStatus != string(model.OrderStatusReadyToAssign) {
		t.Errorf("无师傅可派时状态应保持待派, 实际 %s", resp.OrderStatus)
	}
	if resp.AppointmentDate != nil {
		t.Error("未派出的工单不应有预约日期")
	}
	if repos.order.orders[resp.OrderID] == nil {
		t.Error("工单本身应已落库")
	}
}

func TestCreateOrder_UrgentSchedulesToday(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	svc, _ := setupOrderService(repos)

	req := validCreateRequest()
	req.Urgency = "URGENT - woda leje się na podłogę"

	resp, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.AppointmentDate == nil || *resp.AppointmentDate != "2025-03-03" {
		t.Errorf("紧急前缀应识别为紧急并排今天, 实际 %v", resp.AppointmentDate)
	}
}

// ── 查询与权限 ──

func TestGetByID_WorkerOnlySeesOwnOrders(t *testing.T) {
	repos := newTestRepos()
	workerID := "w-1"
	repos.order.orders["order-1"] = &model.Order{
		OrderID:          "order-1",
		OrderStatus:      model.OrderStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	svc, _ := setupOrderService(repos)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "order-1", "w-1", string(model.RoleWorker)); err != nil {
		t.Errorf("师傅应能查看自己的工单: %v", err)
	}
	if _, err := svc.GetByID(ctx, "order-1", "w-2", string(model.RoleWorker)); !errors.Is(err, ErrNotOrderWorker) {
		t.Errorf("师傅不应看到别人的工单, 实际 %v", err)
	}
	if _, err := svc.GetByID(ctx, "order-1", "boss", string(model.RoleOwner)); err != nil {
		t.Errorf("OWNER 应能查看任意工单: %v", err)
	}
	if _, err := svc.GetByID(ctx, "ghost", "boss", string(model.RoleOwner)); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("不存在的工单应返回 ErrOrderNotFound, 实际 %v", err)
	}
}

// ── 更新 ──

func TestUpdate_NormalizesAndValidates(t *testing.T) {
	repos := newTestRepos()
	repos.order.orders["order-1"] = &model.Order{
		OrderID:     "order-1",
		OrderStatus: model.OrderStatusReadyToAssign,
	}
	svc, _ := setupOrderService(repos)
	ctx := context.Background()

	phone := "48 600 700 800"
	resp, err := svc.Update(ctx, "order-1", &dto.UpdateOrderRequest{Telephone: &phone})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Telephone != "+48600700800" {
		t.Errorf("更新电话应归一化, 实际 %s", resp.Telephone)
	}

	badCode := "XX-000"
	if _, err := svc.Update(ctx, "order-1", &dto.UpdateOrderRequest{PostCode: &badCode}); !errors.Is(err, ErrInvalidPostCode) {
		t.Errorf("非法邮编应被拒绝, 实际 %v", err)
	}
}

// ── 完结 ──

func TestFinish_CompleteAndDelete(t *testing.T) {
	repos := newTestRepos()
	workerID := "w-1"
	repos.order.orders["order-1"] = &model.Order{
		OrderID:          "order-1",
		CustomerEmail:    "anna@example.pl",
		OrderStatus:      model.OrderStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repos.order.orders["order-2"] = &model.Order{
		OrderID:          "order-2",
		CustomerEmail:    "anna@example.pl",
		OrderStatus:      model.OrderStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	svc, mail := setupOrderService(repos)
	ctx := context.Background()

	if err := svc.Finish(ctx, "order-1", "w-1", string(model.RoleWorker), "complete"); err != nil {
		t.Fatalf("complete 应成功: %v", err)
	}
	if repos.order.orders["order-1"].OrderStatus != model.OrderStatusCompleted {
		t.Error("complete 后状态应为 Completed")
	}
	if len(mail.completions) != 1 {
		t.Error("应发送完工邮件")
	}

	if err := svc.Finish(ctx, "order-2", "boss", string(model.RoleOwner), "delete"); err != nil {
		t.Fatalf("delete 应成功: %v", err)
	}
	if repos.order.orders["order-2"].OrderStatus != model.OrderStatusDeleted {
		t.Error("delete 后状态应为 Deleted")
	}
	if len(mail.rejections) != 1 {
		t.Error("应发送取消邮件")
	}
}

func TestFinish_Permissions(t *testing.T) {
	repos := newTestRepos()
	workerID := "w-1"
	repos.order.orders["order-1"] = &model.Order{
		OrderID:          "order-1",
		OrderStatus:      model.OrderStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repos.order.orders["order-2"] = &model.Order{
		OrderID:     "order-2",
		OrderStatus: model.OrderStatusReadyToAssign,
	}
	svc, _ := setupOrderService(repos)
	ctx := context.Background()

	if err := svc.Finish(ctx, "order-1", "w-2", string(model.RoleWorker), "complete"); !errors.Is(err, ErrNotOrderWorker) {
		t.Errorf("别人的工单不可完结, 实际 %v", err)
	}
	if err := svc.Finish(ctx, "order-2", "boss", string(model.RoleOwner), "complete"); !errors.Is(err, ErrOrderNotInProgress) {
		t.Errorf("待派工单不可完结, 实际 %v", err)
	}
	if err := svc.Finish(ctx, "ghost", "boss", string(model.RoleOwner), "complete"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("不存在的工单应返回 ErrOrderNotFound, 实际 %v", err)
	}
}

// ── 历史与城市 ──

func TestHistoryAndCities(t *testing.T) {
	repos := newTestRepos()
	repos.order.orders["order-1"] = &model.Order{
		OrderID: "order-1", City: "Warszawa", Street: "Długa", HouseNumber: "5",
		OrderStatus: model.OrderStatusCompleted,
	}
	repos.order.orders["order-2"] = &model.Order{
		OrderID: "order-2", City: "Kraków", Street: "Floriańska", HouseNumber: "1",
		OrderStatus: model.OrderStatusInProgress,
	}
	svc, _ := setupOrderService(repos)
	ctx := context.Background()

	history, err := svc.History(ctx, &dto.OrderHistoryRequest{City: "Warszawa", Street: "Długa", HouseNumber: "5"})
	if err != nil {
		t.Fatalf("History 应成功: %v", err)
	}
	if len(history) != 1 || history[0].ID != "order-1" {
		t.Errorf("应命中同地址的 1 条历史工单, 实际 %d 条", len(history))
	}

	cities, err := svc.Cities(ctx)
	if err != nil {
		t.Fatalf("Cities 应成功: %v", err)
	}
	if len(cities) != 2 {
		t.Errorf("应返回 2 个城市, 实际 %v", cities)
	}
}
