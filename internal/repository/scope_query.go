package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/workflow"
)

// scopeColumns 范围条件对应的列
type scopeColumns struct {
	submitter string
	mentor    string // 为空表示该表没有此列
	teacher   string
	status    string
	// byRole 是否支持按提交者角色过滤
	byRole bool
	// member 参与者子查询，为空表示该表不支持参与者条件
	member string
}

var workloadColumns = scopeColumns{
	submitter: "submitter_id",
	mentor:    "mentor_reviewer_id",
	teacher:   "teacher_reviewer_id",
	status:    "status",
	byRole:    true,
}

var projectColumns = scopeColumns{
	submitter: "submitter_id",
	teacher:   "teacher_reviewer_id",
	status:    "review_status",
	member:    "id IN (SELECT project_id FROM project_shares WHERE user_id = ?)",
}

// applyScope 将可见范围翻译为 WHERE 条件
func applyScope(db *gorm.DB, scope workflow.Scope, cols scopeColumns) *gorm.DB {
	sql, args := scopeSQL(scope, cols)
	if sql == "" {
		return db
	}
	return db.Where(sql, args...)
}

// scopeSQL 生成 (c1 AND c2) OR (c3) 形式的条件；All 返回空串
func scopeSQL(scope workflow.Scope, cols scopeColumns) (string, []interface{}) {
	if scope.All {
		return "", nil
	}
	if scope.None || len(scope.Clauses) == 0 {
		return "1 = 0", nil
	}

	var (
		ors  []string
		args []interface{}
	)
	for _, c := range scope.Clauses {
		sql, cargs, ok := clauseSQL(c, cols)
		if !ok {
			continue
		}
		ors = append(ors, "("+sql+")")
		args = append(args, cargs...)
	}
	if len(ors) == 0 {
		return "1 = 0", nil
	}
	return strings.Join(ors, " OR "), args
}

// clauseSQL 翻译单个合取条件；引用了该表不存在的列时返回 ok=false
func clauseSQL(c workflow.Clause, cols scopeColumns) (string, []interface{}, bool) {
	var (
		ands []string
		args []interface{}
	)

	if c.SubmitterID != nil {
		ands = append(ands, cols.submitter+" = ?")
		args = append(args, *c.SubmitterID)
	}
	if c.MentorID != nil {
		if cols.mentor == "" {
			return "", nil, false
		}
		ands = append(ands, cols.mentor+" = ?")
		args = append(args, *c.MentorID)
	}
	if c.TeacherID != nil {
		ands = append(ands, cols.teacher+" = ?")
		args = append(args, *c.TeacherID)
	}
	if c.SubmitterRole != nil {
		if !cols.byRole {
			return "", nil, false
		}
		ands = append(ands, cols.submitter+" IN (SELECT id FROM users WHERE role = ?)")
		args = append(args, string(*c.SubmitterRole))
	}
	if c.MemberID != nil {
		if cols.member == "" {
			return "", nil, false
		}
		ands = append(ands, cols.member)
		args = append(args, *c.MemberID)
	}
	if len(c.StatusIn) > 0 {
		ands = append(ands, cols.status+" IN ?")
		args = append(args, c.StatusIn)
	}
	if len(c.StatusNotIn) > 0 {
		ands = append(ands, cols.status+" NOT IN ?")
		args = append(args, c.StatusNotIn)
	}

	if len(ands) == 0 {
		return "1 = 1", nil, true
	}
	return strings.Join(ands, " AND "), args, true
}
