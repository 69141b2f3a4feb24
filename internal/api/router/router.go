package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yyw2wyy/workload-system/config"
	"github.com/yyw2wyy/workload-system/internal/api/handler"
	"github.com/yyw2wyy/workload-system/internal/api/middleware"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/pkg/jwt"
	"github.com/yyw2wyy/workload-system/pkg/redis"
)

const (
	roleMentor  = string(model.RoleMentor)
	roleTeacher = string(model.RoleTeacher)
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时令牌黑名单关闭，限流退化为进程内计数
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(gzip.Gzip(
		gzip.DefaultCompression,
		// 已压缩格式不再压缩
		gzip.WithExcludedExtensions([]string{".png", ".jpg", ".jpeg", ".pdf", ".zip", ".xlsx"}),
	))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var (
		blacklist middleware.TokenBlacklist
		counter   middleware.WindowCounter
	)
	if rdb != nil {
		blacklist = rdb
		counter = rdb
	}
	limitWrites := middleware.RateLimit(counter, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, blacklist))
	{
		// 工作量模块
		workloads := v1.Group("/workloads")
		{
			workloads.GET("", h.Workload.ListWorkloads)
			workloads.POST("", limitWrites, h.Workload.CreateWorkload)
			workloads.GET("/pending_review", middleware.RoleAuth(roleMentor, roleTeacher), h.Workload.PendingReview)
			workloads.GET("/reviewed", middleware.RoleAuth(roleMentor, roleTeacher), h.Workload.Reviewed)
			workloads.GET("/all_workloads", middleware.RoleAuth(roleTeacher), h.Workload.AllWorkloads)
			workloads.POST("/export", limitWrites, h.Workload.ExportWorkloads)
			workloads.GET("/:id", h.Workload.GetWorkload)
			workloads.PUT("/:id", limitWrites, h.Workload.UpdateWorkload)
			workloads.PATCH("/:id", limitWrites, h.Workload.PatchWorkload)
			workloads.DELETE("/:id", limitWrites, h.Workload.DeleteWorkload)
			workloads.POST("/:id/review", limitWrites, h.Workload.ReviewWorkload) // 审核人校验在 Service 层
		}

		// 项目模块
		projects := v1.Group("/projects")
		{
			projects.GET("", h.Project.ListProjects)
			projects.POST("", limitWrites, h.Project.CreateProject)
			projects.GET("/declared", h.Project.Declared)
			projects.GET("/related", h.Project.Related)
			projects.GET("/pending_review", h.Project.PendingReview)
			projects.GET("/approved_review", h.Project.ApprovedReview)
			projects.GET("/reviewed", h.Project.Reviewed)
			projects.GET("/all_projects", middleware.RoleAuth(roleTeacher), h.Project.AllProjects)
			projects.POST("/export", limitWrites, h.Project.ExportProjects)
			projects.GET("/:id", h.Project.GetProject)
			projects.PUT("/:id", limitWrites, h.Project.UpdateProject)
			projects.PATCH("/:id", limitWrites, h.Project.PatchProject)
			projects.DELETE("/:id", limitWrites, h.Project.DeleteProject)
			projects.POST("/:id/review", limitWrites, h.Project.ReviewProject)
		}

		// 公告模块（只读）
		announcements := v1.Group("/announcements")
		{
			announcements.GET("", h.Announcement.ListAnnouncements)
			announcements.GET("/:id", h.Announcement.GetAnnouncement)
		}

		// 用户模块
		users := v1.Group("/users")
		{
			users.GET("", h.User.ListUsers)
			users.GET("/me", h.User.GetCurrentUser)
		}
	}

	return r
}
