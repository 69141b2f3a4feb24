package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/service"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

// AnnouncementHandler 公告模块 HTTP 处理器（只读）
type AnnouncementHandler struct {
	announcementSvc service.AnnouncementService
}

// NewAnnouncementHandler 创建 AnnouncementHandler
func NewAnnouncementHandler(announcementSvc service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementSvc: announcementSvc}
}

// ListAnnouncements 公告列表
// GET /api/v1/announcements?source=innovation
func (h *AnnouncementHandler) ListAnnouncements(c *gin.Context) {
	var req dto.AnnouncementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	list, err := h.announcementSvc.List(c.Request.Context(), req.Source)
	if err != nil {
		respondError(c, err)
		return
	}
	response.List(c, list)
}

// GetAnnouncement 公告详情
// GET /api/v1/announcements/:id
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	result, err := h.announcementSvc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}
