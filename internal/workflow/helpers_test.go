package workflow

import (
	"time"

	"github.com/yyw2wyy/workload-system/internal/model"
)

var testNow = time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

func uintRef(v uint) *uint { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	student  = &model.User{ID: 1, Username: "stu", Role: model.RoleStudent}
	mentorA  = &model.User{ID: 2, Username: "mentor-a", Role: model.RoleMentor}
	mentorB  = &model.User{ID: 3, Username: "mentor-b", Role: model.RoleMentor}
	teacher  = &model.User{ID: 4, Username: "teacher", Role: model.RoleTeacher}
	student2 = &model.User{ID: 5, Username: "stu2", Role: model.RoleStudent}
)

// newStudentWorkload 学生提交、指定导师 A 的待审核工作量
func newStudentWorkload() *model.Workload {
	return &model.Workload{
		ID:               10,
		Name:             "实验平台维护",
		Content:          "维护实验室服务器",
		Source:           model.SourceHardware,
		WorkType:         model.WorkTypeOnsite,
		StartDate:        date(2025, 3, 1),
		EndDate:          date(2025, 3, 10),
		IntensityType:    model.IntensityTotal,
		IntensityValue:   8,
		SubmitterID:      student.ID,
		MentorReviewerID: uintRef(mentorA.ID),
		Status:           model.StatusPending,
	}
}

func candidateFor(w *model.Workload, in SourceInput) *WorkloadCandidate {
	c := &WorkloadCandidate{
		Workload:      w,
		Details:       NewSourceDetails(w.Source, in),
		SubmitterRole: model.RoleStudent,
		ShareUsers:    map[uint]*model.User{student.ID: student, student2.ID: student2},
		Now:           testNow,
	}
	if w.MentorReviewerID != nil && *w.MentorReviewerID == mentorA.ID {
		c.MentorReviewer = mentorA
	}
	return c
}
