package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hydrofix/backend/internal/dto"
	"hydrofix/backend/internal/model"
)

func TestUserGetByID(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	svc := &userService{repo: repos.toRepository(), logger: zap.NewNop()}

	resp, err := svc.GetByID(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if resp.Name != "Jan Kowalski" || resp.Role != string(model.RoleWorker) {
		t.Errorf("返回信息不符: %+v", resp)
	}

	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("未知用户应返回 ErrUserNotFound, 实际 %v", err)
	}
}

func TestListEmployees_Pagination(t *testing.T) {
	repos := newTestRepos()
	repos.seedWorker("w-1", "Jan Kowalski", model.RoleWorker, "Warszawa")
	repos.seedWorker("w-2", "Marek Wilk", model.RoleWorker, "Kraków")
	repos.seedWorker("w-3", "Piotr Szef", model.RoleOwner, "Warszawa")
	svc := &userService{repo: repos.toRepository(), logger: zap.NewNop()}

	page1, total, err := svc.ListEmployees(context.Background(), &dto.PaginationRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListEmployees 应成功: %v", err)
	}
	if total != 3 {
		t.Errorf("总数应为 3, 实际 %d", total)
	}
	if len(page1) != 2 {
		t.Errorf("第一页应有 2 条, 实际 %d", len(page1))
	}

	page2, _, err := svc.ListEmployees(context.Background(), &dto.PaginationRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("第二页查询应成功: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("第二页应有 1 条, 实际 %d", len(page2))
	}
}
