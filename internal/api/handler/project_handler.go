package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/service"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
	exportSvc  service.ExportService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService, exportSvc service.ExportService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc, exportSvc: exportSvc}
}

// CreateProject 申报项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.projectSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.Created(c, result)
}

// ListProjects 项目列表
// GET /api/v1/projects?submitted=true
func (h *ProjectHandler) ListProjects(c *gin.Context) {
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

// Declared 本人申报的项目
// GET /api/v1/projects/declared
func (h *ProjectHandler) Declared(c *gin.Context) { h.list(c, workflow.IntentMine) }

// Related 本人参与的项目
// GET /api/v1/projects/related
func (h *ProjectHandler) Related(c *gin.Context) { h.list(c, workflow.IntentRelated) }

// PendingReview GET /api/v1/projects/pending_review
func (h *ProjectHandler) PendingReview(c *gin.Context) { h.list(c, workflow.IntentPendingReview) }

// ApprovedReview GET /api/v1/projects/approved_review
func (h *ProjectHandler) ApprovedReview(c *gin.Context) { h.list(c, workflow.IntentApprovedReview) }

// Reviewed GET /api/v1/projects/reviewed
func (h *ProjectHandler) Reviewed(c *gin.Context) { h.list(c, workflow.IntentReviewed) }

// AllProjects GET /api/v1/projects/all_projects
func (h *ProjectHandler) AllProjects(c *gin.Context) { h.list(c, workflow.IntentAll) }

func (h *ProjectHandler) list(c *gin.Context, intent workflow.Intent) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	list, err := h.projectSvc.List(c.Request.Context(), actor, intent)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.List(c, list)
}

// GetProject 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateProject PUT /api/v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) { h.update(c, false) }

// PatchProject PATCH /api/v1/projects/:id
func (h *ProjectHandler) PatchProject(c *gin.Context) { h.update(c, true) }

func (h *ProjectHandler) update(c *gin.Context, partial bool) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.projectSvc.Update(c.Request.Context(), actor, id, &req, partial)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteProject DELETE /api/v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	if err := h.projectSvc.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, nil)
}

// ReviewProject 教师审核项目
// POST /api/v1/projects/:id/review
func (h *ProjectHandler) ReviewProject(c *gin.Context) {
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

	result, err := h.projectSvc.Review(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportProjects 导出选中的项目
// POST /api/v1/projects/export
func (h *ProjectHandler) ExportProjects(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ExportProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportProjects(c.Request.Context(), actor, req.ProjectIDs)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	writeXLSX(c, filename, buf.Bytes())
}

func (h *ProjectHandler) handleProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		respondError(c, err)
	}
}
