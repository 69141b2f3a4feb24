package workflow

import (
	"strings"
	"time"

	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// ReviewAction 审核动作
// Status 可以是完整目标状态，也可以是 approved / rejected 简写
type ReviewAction struct {
	Status  string
	Comment string
}

// 审核简写
const (
	ShortApproved = "approved"
	ShortRejected = "rejected"
)

// MsgMentorApprovalRequired 教师审核学生工作量时的前置条件提示
const MsgMentorApprovalRequired = "学生提交的工作量需要导师审核通过后才能进行教师审核"

// ReviewWorkload 对工作量执行一次审核流转
// 守卫全部通过后才修改 w，失败时 w 保持不变
func ReviewWorkload(w *model.Workload, submitterRole model.Role, actor model.Actor, act ReviewAction, now time.Time) error {
	switch actor.Role {
	case model.RoleMentor:
		return mentorReview(w, submitterRole, actor, act, now)
	case model.RoleTeacher:
		return teacherReview(w, submitterRole, actor, act, now)
	default:
		return pkgerrors.Denied("学生无权审核工作量")
	}
}

func mentorReview(w *model.Workload, submitterRole model.Role, actor model.Actor, act ReviewAction, now time.Time) error {
	if submitterRole != model.RoleStudent {
		return pkgerrors.Denied("导师只能审核学生提交的工作量")
	}
	if !uintPtrEq(w.MentorReviewerID, actor.ID) {
		return pkgerrors.Denied("您不是该工作量的指定导师审核人")
	}
	if w.Status != model.StatusPending {
		return pkgerrors.Transition("该工作量已完成导师审核")
	}

	target, err := resolveTarget(act.Status, model.StatusMentorApproved, model.StatusMentorRejected)
	if err != nil {
		return err
	}
	comment, err := requireComment(act.Comment, "mentor_comment")
	if err != nil {
		return err
	}

	w.Status = target
	w.MentorComment = &comment
	w.MentorReviewTime = &now
	return nil
}

func teacherReview(w *model.Workload, submitterRole model.Role, actor model.Actor, act ReviewAction, now time.Time) error {
	if submitterRole == model.RoleStudent {
		switch w.Status {
		case model.StatusMentorApproved:
		case model.StatusPending, model.StatusMentorRejected:
			return pkgerrors.Denied(MsgMentorApprovalRequired)
		default:
			return pkgerrors.Transition("该工作量已完成教师审核")
		}
	} else {
		if submitterRole != model.RoleMentor {
			return pkgerrors.Denied("只能审核学生或导师提交的工作量")
		}
		if w.Status != model.StatusPending {
			return pkgerrors.Transition("该工作量已完成教师审核")
		}
	}

	target, err := resolveTarget(act.Status, model.StatusTeacherApproved, model.StatusTeacherRejected)
	if err != nil {
		return err
	}
	comment, err := requireComment(act.Comment, "teacher_comment")
	if err != nil {
		return err
	}

	reviewerID := actor.ID
	w.Status = target
	w.TeacherComment = &comment
	w.TeacherReviewTime = &now
	w.TeacherReviewerID = &reviewerID
	w.TeacherReviewer = nil
	return nil
}

// resolveTarget 将请求中的状态解析为当前角色可流转到的目标状态
func resolveTarget(status string, approved, rejected model.WorkloadStatus) (model.WorkloadStatus, error) {
	switch strings.TrimSpace(status) {
	case ShortApproved, string(approved):
		return approved, nil
	case ShortRejected, string(rejected):
		return rejected, nil
	}
	return "", pkgerrors.FieldError("status", "审核状态不合法")
}

func requireComment(comment, field string) (string, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return "", pkgerrors.FieldError(field, "审核意见不能为空")
	}
	return comment, nil
}

// CanModifyWorkload 修改或删除工作量的守卫
// 教师不受可编辑状态限制，其他角色只能操作本人且处于可编辑状态的记录
func CanModifyWorkload(w *model.Workload, actor model.Actor) error {
	if actor.Role == model.RoleTeacher {
		return nil
	}
	if w.SubmitterID != actor.ID {
		return pkgerrors.Denied("只能操作本人提交的工作量")
	}
	if !w.Status.Editable() {
		return pkgerrors.Denied("当前审核状态下不能修改或删除该工作量")
	}
	return nil
}

// ResetAfterEdit 非教师编辑已驳回的工作量后重新进入待审核，审核记录保留
func ResetAfterEdit(w *model.Workload, actor model.Actor) {
	if actor.Role != model.RoleTeacher && w.Status.Rejected() {
		w.Status = model.StatusPending
	}
}
