package workflow

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// MaxAttachmentSize 附件大小上限 10 MiB
const MaxAttachmentSize int64 = 10 << 20

// MaxNameLength 名称最大长度（字符）
const MaxNameLength = 200

// WorkloadCandidate 待校验的工作量
// 引用的用户与项目由调用方预先加载，未找到时保持 nil
type WorkloadCandidate struct {
	Workload        *model.Workload
	Details         SourceDetails
	SubmitterRole   model.Role
	MentorReviewer  *model.User
	TeacherReviewer *model.User
	Project         *model.Project
	ShareUsers      map[uint]*model.User
	AttachmentSize  int64
	Now             time.Time
}

// ValidateWorkload 按顺序执行工作量校验规则，汇总所有字段错误
// 同一字段命中第一条规则后不再继续检查该字段
func ValidateWorkload(c *WorkloadCandidate, actor model.Actor) *pkgerrors.ValidationError {
	ve := pkgerrors.NewValidationError()
	w := c.Workload

	// ── 基本字段 ──
	if strings.TrimSpace(w.Name) == "" {
		ve.Add("name", "名称不能为空")
	} else if utf8.RuneCountInString(w.Name) > MaxNameLength {
		ve.Add("name", "名称不能超过 200 个字符")
	}
	if strings.TrimSpace(w.Content) == "" {
		ve.Add("content", "工作内容不能为空")
	}
	if c.Details == nil {
		ve.Add("source", "工作来源不合法")
	}
	if !w.WorkType.Valid() {
		ve.Add("work_type", "工作类型不合法")
	}
	if !w.IntensityType.Valid() {
		ve.Add("intensity_type", "工作强度类型不合法")
	}
	if w.IntensityValue < 0 {
		ve.Add("intensity_value", "工作强度不能为负数")
	}
	if w.StartDate.IsZero() {
		ve.Add("start_date", "开始日期不能为空")
	}
	if w.EndDate.IsZero() {
		ve.Add("end_date", "结束日期不能为空")
	}

	// 1. 日期先后
	if !ve.Has("start_date") && !ve.Has("end_date") && dateOf(w.EndDate).Before(dateOf(w.StartDate)) {
		ve.Add("end_date", "结束日期不能早于开始日期")
	}

	// 2. 学生提交必须指定导师
	studentBound := actor.Role == model.RoleStudent || c.SubmitterRole == model.RoleStudent
	switch {
	case w.MentorReviewerID == nil:
		if studentBound {
			ve.Add("mentor_reviewer", "学生提交工作量必须指定导师审核人")
		}
	case c.MentorReviewer == nil:
		ve.Add("mentor_reviewer", "导师审核人不存在")
	case c.MentorReviewer.Role != model.RoleMentor:
		ve.Add("mentor_reviewer", "导师审核人必须是导师角色")
	}

	// 3. 教师审核人角色
	if w.TeacherReviewerID != nil {
		switch {
		case c.TeacherReviewer == nil:
			ve.Add("teacher_reviewer", "教师审核人不存在")
		case c.TeacherReviewer.Role != model.RoleTeacher:
			ve.Add("teacher_reviewer", "教师审核人必须是教师角色")
		}
	}

	// 4. 附件大小
	if c.AttachmentSize > MaxAttachmentSize {
		ve.Add("attachments", "附件大小不能超过 10MB")
	}

	// 5-8. 来源相关规则
	if c.Details != nil {
		c.Details.validate(c, ve)
	}

	return ve
}

// ProjectCandidate 待校验的项目
type ProjectCandidate struct {
	Project      *model.Project
	ShareUserIDs []uint
	ShareUsers   map[uint]*model.User
}

// ValidateProject 校验项目字段与参与者
func ValidateProject(c *ProjectCandidate) *pkgerrors.ValidationError {
	ve := pkgerrors.NewValidationError()
	p := c.Project

	if strings.TrimSpace(p.Name) == "" {
		ve.Add("name", "项目名称不能为空")
	} else if utf8.RuneCountInString(p.Name) > MaxNameLength {
		ve.Add("name", "项目名称不能超过 200 个字符")
	}
	if !p.ProjectStatus.Valid() {
		ve.Add("project_status", "项目状态不合法")
	}
	if p.StartDate.IsZero() {
		ve.Add("start_date", "开始日期不能为空")
	}

	if msg := CheckProjectShares(c.ShareUserIDs); msg != "" {
		ve.Add("shares", msg)
		return ve
	}
	for _, uid := range c.ShareUserIDs {
		if _, ok := c.ShareUsers[uid]; !ok {
			ve.Add("shares", "参与者不存在")
			break
		}
	}
	return ve
}

// CheckProjectShares 校验项目参与者，合法时返回空串
func CheckProjectShares(userIDs []uint) string {
	if len(userIDs) == 0 {
		return "项目参与者不能为空"
	}
	seen := make(map[uint]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			return "同一参与者不能重复出现"
		}
		seen[uid] = struct{}{}
	}
	return ""
}

// dateOf 取 t 所在时区的日历日期，返回该日期 UTC 零点
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween from 到 to 相隔的自然日数
func daysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}
