package model

import "time"

// WorkloadSource 工作量来源
type WorkloadSource string

const (
	SourceHorizontal    WorkloadSource = "horizontal"    // 横向
	SourceInnovation    WorkloadSource = "innovation"    // 大创
	SourceHardware      WorkloadSource = "hardware"      // 硬件小组
	SourceAssessment    WorkloadSource = "assessment"    // 考核小组
	SourceDocumentation WorkloadSource = "documentation" // 材料撰写
	SourceAssistant     WorkloadSource = "assistant"     // 助教
	SourceOther         WorkloadSource = "other"         // 其他
)

// WorkType 工作类型
type WorkType string

const (
	WorkTypeRemote WorkType = "remote"
	WorkTypeOnsite WorkType = "onsite"
)

// Valid 是否为合法工作类型
func (t WorkType) Valid() bool {
	return t == WorkTypeRemote || t == WorkTypeOnsite
}

// IntensityType 工作强度类型
type IntensityType string

const (
	IntensityTotal  IntensityType = "total"
	IntensityDaily  IntensityType = "daily"
	IntensityWeekly IntensityType = "weekly"
)

// Valid 是否为合法强度类型
func (t IntensityType) Valid() bool {
	switch t {
	case IntensityTotal, IntensityDaily, IntensityWeekly:
		return true
	}
	return false
}

// InnovationStage 大创阶段
type InnovationStage string

const (
	InnovationBefore InnovationStage = "before" // 立项前
	InnovationAfter  InnovationStage = "after"  // 立项后
)

// Valid 是否为合法大创阶段
func (s InnovationStage) Valid() bool {
	return s == InnovationBefore || s == InnovationAfter
}

// WorkloadStatus 工作量审核状态
type WorkloadStatus string

const (
	StatusPending         WorkloadStatus = "pending"
	StatusMentorApproved  WorkloadStatus = "mentor_approved"
	StatusMentorRejected  WorkloadStatus = "mentor_rejected"
	StatusTeacherApproved WorkloadStatus = "teacher_approved"
	StatusTeacherRejected WorkloadStatus = "teacher_rejected"
)

// Editable 提交者在该状态下是否仍可修改或删除
func (s WorkloadStatus) Editable() bool {
	switch s {
	case StatusPending, StatusMentorRejected, StatusTeacherRejected:
		return true
	}
	return false
}

// Rejected 是否为驳回状态
func (s WorkloadStatus) Rejected() bool {
	return s == StatusMentorRejected || s == StatusTeacherRejected
}

// Workload 工作量表 — 对应 workloads
type Workload struct {
	ID                  uint             `gorm:"primaryKey"                                   json:"id"`
	Name                string           `gorm:"type:varchar(200);not null"                   json:"name"`
	Content             string           `gorm:"type:text;not null"                           json:"content"`
	Source              WorkloadSource   `gorm:"type:varchar(20);not null;index"              json:"source"`
	WorkType            WorkType         `gorm:"type:varchar(20);not null"                    json:"work_type"`
	StartDate           time.Time        `gorm:"type:date;not null"                           json:"start_date"`
	EndDate             time.Time        `gorm:"type:date;not null"                           json:"end_date"`
	IntensityType       IntensityType    `gorm:"type:varchar(20);not null"                    json:"intensity_type"`
	IntensityValue      float64          `gorm:"not null"                                     json:"intensity_value"`
	InnovationStage     *InnovationStage `gorm:"type:varchar(20)"                             json:"innovation_stage"`
	AssistantSalaryPaid *int             `json:"assistant_salary_paid"`
	ProjectID           *uint            `gorm:"index"                                        json:"project_id"`
	Attachment          *string          `gorm:"type:varchar(500)"                            json:"attachments"`
	OriginalFilename    *string          `gorm:"type:varchar(255)"                            json:"original_filename"`
	SubmitterID         uint             `gorm:"not null;index"                               json:"submitter_id"`
	MentorReviewerID    *uint            `gorm:"index"                                        json:"mentor_reviewer_id"`
	TeacherReviewerID   *uint            `gorm:"index"                                        json:"teacher_reviewer_id"`
	Status              WorkloadStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	MentorComment       *string          `gorm:"type:text"                                    json:"mentor_comment"`
	MentorReviewTime    *time.Time       `json:"mentor_review_time"`
	TeacherComment      *string          `gorm:"type:text"                                    json:"teacher_comment"`
	TeacherReviewTime   *time.Time       `json:"teacher_review_time"`
	VersionedModel

	// 关联
	Submitter       *User           `gorm:"foreignKey:SubmitterID"       json:"submitter,omitempty"`
	MentorReviewer  *User           `gorm:"foreignKey:MentorReviewerID"  json:"mentor_reviewer,omitempty"`
	TeacherReviewer *User           `gorm:"foreignKey:TeacherReviewerID" json:"teacher_reviewer,omitempty"`
	Project         *Project        `gorm:"foreignKey:ProjectID"         json:"project,omitempty"`
	Shares          []WorkloadShare `gorm:"foreignKey:WorkloadID"        json:"shares,omitempty"`
}

// TableName 指定表名
func (Workload) TableName() string { return "workloads" }

// WorkloadShare 大创类工作量的参与者占比 — 对应 workload_shares
type WorkloadShare struct {
	ID         uint    `gorm:"primaryKey"                                    json:"id"`
	WorkloadID uint    `gorm:"not null;uniqueIndex:idx_workload_share_user"  json:"workload_id"`
	UserID     uint    `gorm:"not null;uniqueIndex:idx_workload_share_user"  json:"user_id"`
	Percentage float64 `gorm:"not null"                                      json:"percentage"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (WorkloadShare) TableName() string { return "workload_shares" }
