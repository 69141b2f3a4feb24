package dto

// ── 工作量模块 DTO ──

// ShareRequest 大创参与者占比
type ShareRequest struct {
	UserID     uint    `json:"user_id"    binding:"required"`
	Percentage float64 `json:"percentage"`
}

// WorkloadRequest 创建 / 修改工作量请求
// 指针字段为 nil 表示未提交；PATCH 只修改提交的字段
type WorkloadRequest struct {
	// ID 客户端提交的 id 不会被采用
	ID                  *uint          `json:"id,omitempty"`
	Name                *string        `json:"name"`
	Content             *string        `json:"content"`
	Source              *string        `json:"source"`
	WorkType            *string        `json:"work_type"`
	StartDate           *string        `json:"start_date"` // 2006-01-02
	EndDate             *string        `json:"end_date"`
	IntensityType       *string        `json:"intensity_type"`
	IntensityValue      *float64       `json:"intensity_value"`
	InnovationStage     *string        `json:"innovation_stage"`
	AssistantSalaryPaid *int           `json:"assistant_salary_paid"`
	ProjectID           *uint          `json:"project_id"`
	MentorReviewerID    *uint          `json:"mentor_reviewer_id"`
	TeacherReviewerID   *uint          `json:"teacher_reviewer_id"` // 只读，仅允许原样回传
	Shares              []ShareRequest `json:"shares" binding:"omitempty,dive"`
	// RemoveAttachment 为 true 时删除已有附件
	RemoveAttachment bool `json:"remove_attachment"`
}

// ReviewRequest 审核请求
// status 可为完整状态（mentor_approved 等）或 approved / rejected
type ReviewRequest struct {
	Status         string `json:"status" binding:"required"`
	Comment        string `json:"comment"`
	MentorComment  string `json:"mentor_comment"`
	TeacherComment string `json:"teacher_comment"`
}

// EffectiveComment 取 comment，兼容 mentor_comment / teacher_comment 写法
func (r *ReviewRequest) EffectiveComment() string {
	switch {
	case r.Comment != "":
		return r.Comment
	case r.MentorComment != "":
		return r.MentorComment
	default:
		return r.TeacherComment
	}
}

// ExportWorkloadsRequest 导出工作量请求
type ExportWorkloadsRequest struct {
	WorkloadIDs []uint `json:"workload_ids" binding:"required,min=1"`
}

// ── 工作量模块响应 ──

// ShareResponse 参与者占比
type ShareResponse struct {
	UserID     uint       `json:"user_id"`
	User       *UserBrief `json:"user,omitempty"`
	Percentage float64    `json:"percentage"`
}

// WorkloadResponse 工作量详情
type WorkloadResponse struct {
	ID                  uint            `json:"id"`
	Name                string          `json:"name"`
	Content             string          `json:"content"`
	Source              string          `json:"source"`
	WorkType            string          `json:"work_type"`
	StartDate           string          `json:"start_date"`
	EndDate             string          `json:"end_date"`
	IntensityType       string          `json:"intensity_type"`
	IntensityValue      float64         `json:"intensity_value"`
	InnovationStage     *string         `json:"innovation_stage"`
	AssistantSalaryPaid *int            `json:"assistant_salary_paid"`
	ProjectID           *uint           `json:"project_id"`
	ProjectName         string          `json:"project_name,omitempty"`
	Attachments         *string         `json:"attachments"`
	AttachmentsURL      string          `json:"attachments_url,omitempty"`
	OriginalFilename    *string         `json:"original_filename"`
	Submitter           *UserBrief      `json:"submitter"`
	MentorReviewer      *UserBrief      `json:"mentor_reviewer"`
	TeacherReviewer     *UserBrief      `json:"teacher_reviewer"`
	Shares              []ShareResponse `json:"shares"`
	Status              string          `json:"status"`
	MentorComment       *string         `json:"mentor_comment"`
	MentorReviewTime    *string         `json:"mentor_review_time"`
	TeacherComment      *string         `json:"teacher_comment"`
	TeacherReviewTime   *string         `json:"teacher_review_time"`
	Version             int             `json:"version"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at"`
}
