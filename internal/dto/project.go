package dto

// ── 项目模块 DTO ──

// ProjectRequest 创建 / 修改项目请求
type ProjectRequest struct {
	ID            *uint   `json:"id,omitempty"`
	Name          *string `json:"name"`
	ProjectStatus *string `json:"project_status"`
	StartDate     *string `json:"start_date"`
	// ShareUserIDs 项目参与者，nil 表示不修改
	ShareUserIDs []uint `json:"shares"`
}

// ExportProjectsRequest 导出项目请求
type ExportProjectsRequest struct {
	ProjectIDs []uint `json:"project_ids" binding:"required,min=1"`
}

// ProjectResponse 项目详情
type ProjectResponse struct {
	ID                uint        `json:"id"`
	Name              string      `json:"name"`
	ProjectStatus     string      `json:"project_status"`
	StartDate         string      `json:"start_date"`
	Submitter         *UserBrief  `json:"submitter"`
	TeacherReviewer   *UserBrief  `json:"teacher_reviewer"`
	Shares            []UserBrief `json:"shares"`
	ReviewStatus      string      `json:"review_status"`
	TeacherComment    *string     `json:"teacher_comment"`
	TeacherReviewTime *string     `json:"teacher_review_time"`
	Version           int         `json:"version"`
	CreatedAt         string      `json:"created_at"`
	UpdatedAt         string      `json:"updated_at"`
}
