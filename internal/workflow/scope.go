package workflow

import (
	"slices"

	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// Intent 查询意图
type Intent string

const (
	IntentMine           Intent = "mine"            // 本人提交
	IntentDefault        Intent = "default"         // 默认可见范围
	IntentRelated        Intent = "related"         // 作为参与者关联（仅项目）
	IntentPendingReview  Intent = "pending_review"  // 待我审核
	IntentApprovedReview Intent = "approved_review" // 已通过（仅项目）
	IntentReviewed       Intent = "reviewed"        // 我已审核
	IntentAll            Intent = "all"             // 全部
)

// Clause 合取条件：所有非空字段须同时满足
type Clause struct {
	SubmitterID   *uint
	MentorID      *uint
	TeacherID     *uint
	MemberID      *uint
	SubmitterRole *model.Role
	StatusIn      []string
	StatusNotIn   []string
}

// Scope 可见范围：若干 Clause 的析取
// All 表示不加限制，None 表示空集
type Scope struct {
	All     bool
	None    bool
	Clauses []Clause
}

// Union 合并两个范围
func (s Scope) Union(o Scope) Scope {
	switch {
	case s.All || o.All:
		return Scope{All: true}
	case s.None:
		return o
	case o.None:
		return s
	}
	clauses := make([]Clause, 0, len(s.Clauses)+len(o.Clauses))
	clauses = append(clauses, s.Clauses...)
	clauses = append(clauses, o.Clauses...)
	return Scope{Clauses: clauses}
}

// MatchWorkload 在内存中判断工作量是否落在范围内
func (s Scope) MatchWorkload(w *model.Workload, submitterRole model.Role) bool {
	if s.All {
		return true
	}
	if s.None {
		return false
	}
	for _, c := range s.Clauses {
		if c.MemberID != nil {
			continue
		}
		if c.SubmitterID != nil && w.SubmitterID != *c.SubmitterID {
			continue
		}
		if c.MentorID != nil && !uintPtrEq(w.MentorReviewerID, *c.MentorID) {
			continue
		}
		if c.TeacherID != nil && !uintPtrEq(w.TeacherReviewerID, *c.TeacherID) {
			continue
		}
		if c.SubmitterRole != nil && submitterRole != *c.SubmitterRole {
			continue
		}
		if !statusMatch(c, string(w.Status)) {
			continue
		}
		return true
	}
	return false
}

// MatchProject 在内存中判断项目是否落在范围内，memberIDs 为项目参与者
func (s Scope) MatchProject(p *model.Project, memberIDs []uint) bool {
	if s.All {
		return true
	}
	if s.None {
		return false
	}
	for _, c := range s.Clauses {
		if c.MentorID != nil || c.SubmitterRole != nil {
			continue
		}
		if c.SubmitterID != nil && p.SubmitterID != *c.SubmitterID {
			continue
		}
		if c.TeacherID != nil && !uintPtrEq(p.TeacherReviewerID, *c.TeacherID) {
			continue
		}
		if c.MemberID != nil && !slices.Contains(memberIDs, *c.MemberID) {
			continue
		}
		if !statusMatch(c, string(p.ReviewStatus)) {
			continue
		}
		return true
	}
	return false
}

func statusMatch(c Clause, status string) bool {
	if len(c.StatusIn) > 0 && !slices.Contains(c.StatusIn, status) {
		return false
	}
	if slices.Contains(c.StatusNotIn, status) {
		return false
	}
	return true
}

func uintPtrEq(p *uint, v uint) bool {
	return p != nil && *p == v
}

// ── 范围表 ──

type scopeRule func(userID uint) Scope

func roleRef(r model.Role) *model.Role { return &r }

func own(userID uint) Scope {
	return Scope{Clauses: []Clause{{SubmitterID: &userID}}}
}

func everything(uint) Scope { return Scope{All: true} }

func nothing(uint) Scope { return Scope{None: true} }

var workloadScopes = map[model.Role]map[Intent]scopeRule{
	model.RoleStudent: {
		IntentMine:    own,
		IntentDefault: own,
	},
	model.RoleMentor: {
		IntentMine: own,
		IntentDefault: func(uid uint) Scope {
			return own(uid).Union(Scope{Clauses: []Clause{
				{MentorID: &uid, SubmitterRole: roleRef(model.RoleStudent)},
			}})
		},
		IntentPendingReview: func(uid uint) Scope {
			return Scope{Clauses: []Clause{{
				MentorID:      &uid,
				SubmitterRole: roleRef(model.RoleStudent),
				StatusIn:      []string{string(model.StatusPending)},
			}}}
		},
		IntentReviewed: func(uid uint) Scope {
			return Scope{Clauses: []Clause{{
				MentorID:      &uid,
				SubmitterRole: roleRef(model.RoleStudent),
				StatusNotIn:   []string{string(model.StatusPending)},
			}}}
		},
	},
	model.RoleTeacher: {
		IntentMine:    own,
		IntentDefault: everything,
		IntentPendingReview: func(uint) Scope {
			return Scope{Clauses: []Clause{
				{StatusIn: []string{string(model.StatusMentorApproved)}},
				{SubmitterRole: roleRef(model.RoleMentor), StatusIn: []string{string(model.StatusPending)}},
			}}
		},
		IntentReviewed: func(uid uint) Scope {
			return Scope{Clauses: []Clause{{TeacherID: &uid}}}
		},
		IntentAll: everything,
	},
}

func related(uid uint) Scope {
	return Scope{Clauses: []Clause{{MemberID: &uid}}}
}

var projectScopes = map[model.Role]map[Intent]scopeRule{
	model.RoleStudent: {
		IntentMine:           own,
		IntentDefault:        own,
		IntentRelated:        related,
		IntentApprovedReview: nothing,
	},
	model.RoleMentor: {
		IntentMine:           own,
		IntentDefault:        own,
		IntentRelated:        related,
		IntentApprovedReview: nothing,
	},
	model.RoleTeacher: {
		IntentMine:    own,
		IntentDefault: everything,
		IntentRelated: related,
		IntentPendingReview: func(uint) Scope {
			return Scope{Clauses: []Clause{{StatusIn: []string{string(model.ReviewPending)}}}}
		},
		IntentApprovedReview: func(uint) Scope {
			return Scope{Clauses: []Clause{{StatusIn: []string{string(model.ReviewApproved)}}}}
		},
		IntentReviewed: func(uint) Scope {
			return Scope{Clauses: []Clause{{
				StatusIn: []string{string(model.ReviewApproved), string(model.ReviewRejected)},
			}}}
		},
		IntentAll: everything,
	},
}

// WorkloadScope 计算某角色在某查询意图下可见的工作量范围
func WorkloadScope(role model.Role, intent Intent, userID uint) (Scope, error) {
	return lookupScope(workloadScopes, role, intent, userID)
}

// ProjectScope 计算某角色在某查询意图下可见的项目范围
func ProjectScope(role model.Role, intent Intent, userID uint) (Scope, error) {
	return lookupScope(projectScopes, role, intent, userID)
}

func lookupScope(table map[model.Role]map[Intent]scopeRule, role model.Role, intent Intent, userID uint) (Scope, error) {
	rule, ok := table[role][intent]
	if !ok {
		return Scope{}, pkgerrors.Denied("当前角色无权访问该列表")
	}
	return rule(userID), nil
}

// WorkloadVisible 单条工作量是否对操作者可见
func WorkloadVisible(w *model.Workload, submitterRole model.Role, actor model.Actor) bool {
	scope, err := WorkloadScope(actor.Role, IntentDefault, actor.ID)
	if err != nil {
		return false
	}
	return scope.MatchWorkload(w, submitterRole)
}

// ProjectVisibleScope 项目单条可见范围（默认 ∪ 关联）
func ProjectVisibleScope(actor model.Actor) (Scope, error) {
	def, err := ProjectScope(actor.Role, IntentDefault, actor.ID)
	if err != nil {
		return Scope{}, err
	}
	rel, err := ProjectScope(actor.Role, IntentRelated, actor.ID)
	if err != nil {
		return Scope{}, err
	}
	return def.Union(rel), nil
}

// ProjectVisible 单个项目是否对操作者可见（本人范围或参与者）
func ProjectVisible(p *model.Project, memberIDs []uint, actor model.Actor) bool {
	scope, err := ProjectVisibleScope(actor)
	if err != nil {
		return false
	}
	return scope.MatchProject(p, memberIDs)
}
