package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/service"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkloadHandler 工作量模块 HTTP 处理器
type WorkloadHandler struct {
	workloadSvc service.WorkloadService
	exportSvc   service.ExportService
}

// NewWorkloadHandler 创建 WorkloadHandler
func NewWorkloadHandler(workloadSvc service.WorkloadService, exportSvc service.ExportService) *WorkloadHandler {
	return &WorkloadHandler{workloadSvc: workloadSvc, exportSvc: exportSvc}
}

// CreateWorkload 提交工作量
// POST /api/v1/workloads（JSON 或 multipart: data + attachments）
func (h *WorkloadHandler) CreateWorkload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.WorkloadRequest
	upload, closeUpload, err := bindWithUpload(c, &req)
	defer closeUpload()
	if err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.workloadSvc.Create(c.Request.Context(), actor, &req, upload)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.Created(c, result)
}

// ListWorkloads 工作量列表
// GET /api/v1/workloads?submitted=true
func (h *WorkloadHandler) ListWorkloads(c *gin.Context) {
	var q dto.SubmittedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	intent := workflow.IntentDefault
	if q.Submitted {
		intent = workflow.IntentMine
	}
	h.list(c, intent)
}

// PendingReview 待审核列表
// GET /api/v1/workloads/pending_review
func (h *WorkloadHandler) PendingReview(c *gin.Context) {
	h.list(c, workflow.IntentPendingReview)
}

// Reviewed 已审核列表
// GET /api/v1/workloads/reviewed
func (h *WorkloadHandler) Reviewed(c *gin.Context) {
	h.list(c, workflow.IntentReviewed)
}

// AllWorkloads 全部工作量（教师）
// GET /api/v1/workloads/all_workloads
func (h *WorkloadHandler) AllWorkloads(c *gin.Context) {
	h.list(c, workflow.IntentAll)
}

func (h *WorkloadHandler) list(c *gin.Context, intent workflow.Intent) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	list, err := h.workloadSvc.List(c.Request.Context(), actor, intent)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.List(c, list)
}

// GetWorkload 工作量详情
// GET /api/v1/workloads/:id
func (h *WorkloadHandler) GetWorkload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	result, err := h.workloadSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateWorkload 全量修改
// PUT /api/v1/workloads/:id
func (h *WorkloadHandler) UpdateWorkload(c *gin.Context) {
	h.update(c, false)
}

// PatchWorkload 部分修改
// PATCH /api/v1/workloads/:id
func (h *WorkloadHandler) PatchWorkload(c *gin.Context) {
	h.update(c, true)
}

func (h *WorkloadHandler) update(c *gin.Context, partial bool) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.WorkloadRequest
	upload, closeUpload, err := bindWithUpload(c, &req)
	defer closeUpload()
	if err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.workloadSvc.Update(c.Request.Context(), actor, id, &req, upload, partial)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteWorkload 删除工作量
// DELETE /api/v1/workloads/:id
func (h *WorkloadHandler) DeleteWorkload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	if err := h.workloadSvc.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.OK(c, nil)
}

// ReviewWorkload 审核工作量
// POST /api/v1/workloads/:id/review
func (h *WorkloadHandler) ReviewWorkload(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.workloadSvc.Review(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportWorkloads 导出选中的工作量
// POST /api/v1/workloads/export
func (h *WorkloadHandler) ExportWorkloads(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ExportWorkloadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportWorkloads(c.Request.Context(), actor, req.WorkloadIDs)
	if err != nil {
		h.handleWorkloadError(c, err)
		return
	}
	writeXLSX(c, filename, buf.Bytes())
}

// handleWorkloadError 统一处理工作量模块业务错误
func (h *WorkloadHandler) handleWorkloadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		respondError(c, err)
	}
}

// writeXLSX 设置下载响应头后写入表格
func writeXLSX(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
