package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"hydrofix/backend/internal/service"
	"hydrofix/backend/pkg/response"
)

// ExportHandler 报表导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportOrders 工单台账导出 (.xlsx)（OWNER）
// GET /api/v1/exports/orders.xlsx
func (h *ExportHandler) ExportOrders(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportOrders(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrExportNoOrders) {
			response.NotFound(c, 16001, "暂无工单可导出")
			return
		}
		response.InternalError(c)
		return
	}

	response.File(c, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
