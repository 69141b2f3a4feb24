package workflow

import (
	"fmt"
	"math"

	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// shareSumTolerance 占比之和允许的浮点误差
const shareSumTolerance = 1e-6

// ShareInput 参与者占比输入
type ShareInput struct {
	UserID     uint    `json:"user_id"`
	Percentage float64 `json:"percentage"`
}

// SourceInput 与来源相关的可选字段
type SourceInput struct {
	InnovationStage     *model.InnovationStage
	AssistantSalaryPaid *int
	ProjectID           *uint
	Shares              []ShareInput
}

// SourceDetails 按来源区分的附加字段
// 每种来源自带必填字段、校验规则以及写回记录的方式
type SourceDetails interface {
	Source() model.WorkloadSource
	// Shares 需要落库的参与者占比，非大创来源为空
	Shares() []ShareInput
	// Apply 写回记录，同时清空其他来源的字段
	Apply(w *model.Workload)
	validate(c *WorkloadCandidate, ve *pkgerrors.ValidationError)
}

// NewSourceDetails 根据来源构造附加字段，未知来源返回 nil
func NewSourceDetails(source model.WorkloadSource, in SourceInput) SourceDetails {
	switch source {
	case model.SourceHorizontal:
		return &HorizontalDetails{ProjectID: in.ProjectID}
	case model.SourceInnovation:
		return &InnovationDetails{Stage: in.InnovationStage, Participants: in.Shares}
	case model.SourceAssistant:
		return &AssistantDetails{SalaryPaid: in.AssistantSalaryPaid}
	case model.SourceDocumentation:
		return DocumentationDetails{}
	case model.SourceHardware, model.SourceAssessment, model.SourceOther:
		return PlainDetails{source: source}
	}
	return nil
}

// DetailsOf 从已存储的记录还原附加字段
func DetailsOf(w *model.Workload) SourceDetails {
	in := SourceInput{
		InnovationStage:     w.InnovationStage,
		AssistantSalaryPaid: w.AssistantSalaryPaid,
		ProjectID:           w.ProjectID,
		Shares:              SharesFromModel(w.Shares),
	}
	return NewSourceDetails(w.Source, in)
}

func clearSourceFields(w *model.Workload) {
	w.InnovationStage = nil
	w.AssistantSalaryPaid = nil
	w.ProjectID = nil
	w.Project = nil
}

// PlainDetails 无附加字段的来源：硬件小组、考核小组、其他
type PlainDetails struct {
	source model.WorkloadSource
}

func (d PlainDetails) Source() model.WorkloadSource                          { return d.source }
func (PlainDetails) Shares() []ShareInput                                    { return nil }
func (PlainDetails) Apply(w *model.Workload)                                 { clearSourceFields(w) }
func (PlainDetails) validate(*WorkloadCandidate, *pkgerrors.ValidationError) {}

// DocumentationDetails 材料撰写：结束日期距今不得超过 30 天
type DocumentationDetails struct{}

// DocumentationWindowDays 材料撰写工作量的申报时限（天）
const DocumentationWindowDays = 30

func (DocumentationDetails) Source() model.WorkloadSource { return model.SourceDocumentation }
func (DocumentationDetails) Shares() []ShareInput         { return nil }
func (DocumentationDetails) Apply(w *model.Workload)      { clearSourceFields(w) }

func (DocumentationDetails) validate(c *WorkloadCandidate, ve *pkgerrors.ValidationError) {
	if ve.Has("end_date") || c.Workload.EndDate.IsZero() {
		return
	}
	if daysBetween(c.Workload.EndDate, c.Now) > DocumentationWindowDays {
		ve.Add("end_date", fmt.Sprintf("材料撰写工作量须在结束后 %d 天内申报", DocumentationWindowDays))
	}
}

// HorizontalDetails 横向：必须关联已存在的项目
type HorizontalDetails struct {
	ProjectID *uint
}

func (*HorizontalDetails) Source() model.WorkloadSource { return model.SourceHorizontal }
func (*HorizontalDetails) Shares() []ShareInput         { return nil }

func (d *HorizontalDetails) Apply(w *model.Workload) {
	clearSourceFields(w)
	w.ProjectID = d.ProjectID
}

func (d *HorizontalDetails) validate(c *WorkloadCandidate, ve *pkgerrors.ValidationError) {
	switch {
	case d.ProjectID == nil:
		ve.Add("project_id", "横向工作量必须关联项目")
	case c.Project == nil:
		ve.Add("project_id", "关联的项目不存在")
	}
}

// AssistantDetails 助教：须填写已发放助教工资
type AssistantDetails struct {
	SalaryPaid *int
}

func (*AssistantDetails) Source() model.WorkloadSource { return model.SourceAssistant }
func (*AssistantDetails) Shares() []ShareInput         { return nil }

func (d *AssistantDetails) Apply(w *model.Workload) {
	clearSourceFields(w)
	w.AssistantSalaryPaid = d.SalaryPaid
}

func (d *AssistantDetails) validate(_ *WorkloadCandidate, ve *pkgerrors.ValidationError) {
	switch {
	case d.SalaryPaid == nil:
		ve.Add("assistant_salary_paid", "助教工作量必须填写已发放助教工资")
	case *d.SalaryPaid < 0:
		ve.Add("assistant_salary_paid", "助教工资不能为负数")
	}
}

// InnovationDetails 大创：须填写阶段与参与者占比
type InnovationDetails struct {
	Stage        *model.InnovationStage
	Participants []ShareInput
}

func (*InnovationDetails) Source() model.WorkloadSource { return model.SourceInnovation }
func (d *InnovationDetails) Shares() []ShareInput       { return d.Participants }

func (d *InnovationDetails) Apply(w *model.Workload) {
	clearSourceFields(w)
	w.InnovationStage = d.Stage
}

func (d *InnovationDetails) validate(c *WorkloadCandidate, ve *pkgerrors.ValidationError) {
	switch {
	case d.Stage == nil:
		ve.Add("innovation_stage", "大创工作量必须选择阶段")
	case !d.Stage.Valid():
		ve.Add("innovation_stage", "大创阶段不合法")
	}

	if msg := CheckShares(c.Workload.SubmitterID, d.Participants); msg != "" {
		ve.Add("shares", msg)
		return
	}
	for _, s := range d.Participants {
		if _, ok := c.ShareUsers[s.UserID]; !ok {
			ve.Add("shares", fmt.Sprintf("参与者 %d 不存在", s.UserID))
			return
		}
	}
}

// CheckShares 校验大创参与者占比，返回第一条违规信息，合法时返回空串
// 写事务提交前会对落库数据再校验一次
func CheckShares(submitterID uint, shares []ShareInput) string {
	if len(shares) == 0 {
		return "大创工作量至少需要一名参与者"
	}

	seen := make(map[uint]struct{}, len(shares))
	sum := 0.0
	for _, s := range shares {
		if s.Percentage < 0 || s.Percentage > 100 {
			return "参与者占比必须在 0 到 100 之间"
		}
		if _, dup := seen[s.UserID]; dup {
			return "同一参与者不能重复出现"
		}
		seen[s.UserID] = struct{}{}
		sum += s.Percentage
	}

	if math.Abs(sum-100) > shareSumTolerance {
		return fmt.Sprintf("参与者占比之和必须为 100，当前为 %g", sum)
	}
	if _, ok := seen[submitterID]; !ok {
		return "提交者必须是参与者之一"
	}
	return ""
}

// SharesFromModel 将落库的占比行转为输入结构
func SharesFromModel(rows []model.WorkloadShare) []ShareInput {
	out := make([]ShareInput, 0, len(rows))
	for _, r := range rows {
		out = append(out, ShareInput{UserID: r.UserID, Percentage: r.Percentage})
	}
	return out
}
