package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"hydrofix/backend/internal/model"
	"hydrofix/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoOrders = errors.New("暂无工单可导出")
)

// exportMaxRows 单次导出上限，防止内存打爆
const exportMaxRows = 10000

// ExportService 报表导出业务接口
//
// 设计说明：
//   - 面向 OWNER 的工单台账导出 (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportOrders 导出全部工单台账为 Excel
	ExportOrders(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ExportOrders — 工单台账导出
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportOrders(ctx context.Context) (*bytes.Buffer, string, error) {
	orders, _, err := s.repo.Order.List(ctx, "", "", 0, exportMaxRows)
	if err != nil {
		s.logger.Error("查询工单失败", zap.Error(err))
		return nil, "", err
	}
	if len(orders) == 0 {
		return nil, "", ErrExportNoOrders
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "工单台账"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"工单号", "客户", "电话", "城市", "地址", "紧急程度", "难度", "价格区间", "状态", "师傅", "预约日期", "创建时间"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, o := range orders {
		appointment := ""
		if o.AppointmentDate != nil {
			appointment = model.DateOnly(*o.AppointmentDate).Format("2006-01-02")
		}
		worker := ""
		if o.AssignedWorker != nil {
			worker = o.AssignedWorker.Name
		}
		values := []interface{}{
			o.OrderID,
			o.CustomerName,
			o.Telephone,
			o.City,
			fmt.Sprintf("%s %s, %s", o.Street, o.HouseNumber, o.PostCode),
			string(o.Urgency),
			o.Difficulty,
			o.PriceRange,
			string(o.OrderStatus),
			worker,
			appointment,
			o.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}
