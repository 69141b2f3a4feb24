package handler

import "github.com/yyw2wyy/workload-system/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Workload     *WorkloadHandler
	Project      *ProjectHandler
	Announcement *AnnouncementHandler
	User         *UserHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Workload:     NewWorkloadHandler(svc.Workload, svc.Export),
		Project:      NewProjectHandler(svc.Project, svc.Export),
		Announcement: NewAnnouncementHandler(svc.Announcement),
		User:         NewUserHandler(svc.User),
	}
}
