package model

import "time"

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectPreResearch ProjectStatus = "pre_research" // 预研
	ProjectInResearch  ProjectStatus = "in_research"  // 在研
)

// Valid 是否为合法项目状态
func (s ProjectStatus) Valid() bool {
	return s == ProjectPreResearch || s == ProjectInResearch
}

// ReviewStatus 项目审核状态
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Editable 提交者在该状态下是否仍可修改或删除
func (s ReviewStatus) Editable() bool {
	return s == ReviewPending || s == ReviewRejected
}

// Project 项目表 — 对应 projects
type Project struct {
	ID                uint          `gorm:"primaryKey"                                        json:"id"`
	Name              string        `gorm:"type:varchar(200);not null"                        json:"name"`
	ProjectStatus     ProjectStatus `gorm:"type:varchar(20);not null"                         json:"project_status"`
	StartDate         time.Time     `gorm:"type:date;not null"                                json:"start_date"`
	SubmitterID       uint          `gorm:"not null;index"                                    json:"submitter_id"`
	TeacherReviewerID *uint         `gorm:"index"                                             json:"teacher_reviewer_id"`
	ReviewStatus      ReviewStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"review_status"`
	TeacherComment    *string       `gorm:"type:text"                                         json:"teacher_comment"`
	TeacherReviewTime *time.Time    `json:"teacher_review_time"`
	VersionedModel

	// 关联
	Submitter       *User          `gorm:"foreignKey:SubmitterID"       json:"submitter,omitempty"`
	TeacherReviewer *User          `gorm:"foreignKey:TeacherReviewerID" json:"teacher_reviewer,omitempty"`
	Shares          []ProjectShare `gorm:"foreignKey:ProjectID"         json:"shares,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// ProjectShare 项目参与者 — 对应 project_shares
type ProjectShare struct {
	ID        uint `gorm:"primaryKey"                                  json:"id"`
	ProjectID uint `gorm:"not null;uniqueIndex:idx_project_share_user" json:"project_id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_project_share_user" json:"user_id"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (ProjectShare) TableName() string { return "project_shares" }
