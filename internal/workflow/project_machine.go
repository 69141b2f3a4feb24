package workflow

import (
	"time"

	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// ReviewProject 教师审核项目：pending → approved | rejected
func ReviewProject(p *model.Project, actor model.Actor, act ReviewAction, now time.Time) error {
	if actor.Role != model.RoleTeacher {
		return pkgerrors.Denied("只有教师可以审核项目")
	}
	if p.ReviewStatus != model.ReviewPending {
		return pkgerrors.Transition("只能审核待审核状态的项目")
	}

	var target model.ReviewStatus
	switch act.Status {
	case string(model.ReviewApproved):
		target = model.ReviewApproved
	case string(model.ReviewRejected):
		target = model.ReviewRejected
	default:
		return pkgerrors.FieldError("status", "审核状态不合法")
	}
	comment, err := requireComment(act.Comment, "teacher_comment")
	if err != nil {
		return err
	}

	reviewerID := actor.ID
	p.ReviewStatus = target
	p.TeacherComment = &comment
	p.TeacherReviewTime = &now
	p.TeacherReviewerID = &reviewerID
	p.TeacherReviewer = nil
	return nil
}

// CanModifyProject 修改或删除项目的守卫
func CanModifyProject(p *model.Project, actor model.Actor) error {
	if actor.Role == model.RoleTeacher {
		return nil
	}
	if p.SubmitterID != actor.ID {
		return pkgerrors.Denied("只能操作本人提交的项目")
	}
	if !p.ReviewStatus.Editable() {
		return pkgerrors.Denied("已通过审核的项目不能修改或删除")
	}
	return nil
}

// ResetProjectAfterEdit 非教师编辑已驳回的项目后重新进入待审核
func ResetProjectAfterEdit(p *model.Project, actor model.Actor) {
	if actor.Role != model.RoleTeacher && p.ReviewStatus == model.ReviewRejected {
		p.ReviewStatus = model.ReviewPending
	}
}
