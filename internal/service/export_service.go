package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/repository"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/logger"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = pkgerrors.NotFound("没有可导出的记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 只导出操作者可见的记录，不可见或不存在的 id 被跳过
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportWorkloads(ctx context.Context, actor model.Actor, ids []uint) (*bytes.Buffer, string, error)
	ExportProjects(ctx context.Context, actor model.Actor, ids []uint) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

var (
	workloadSourceNames = map[model.WorkloadSource]string{
		model.SourceHorizontal:    "横向项目",
		model.SourceInnovation:    "大创",
		model.SourceHardware:      "硬件小组",
		model.SourceAssessment:    "考核",
		model.SourceDocumentation: "文档撰写",
		model.SourceAssistant:     "助教",
		model.SourceOther:         "其他",
	}
	workloadStatusNames = map[model.WorkloadStatus]string{
		model.StatusPending:         "待审核",
		model.StatusMentorApproved:  "导师审核通过",
		model.StatusMentorRejected:  "导师审核未通过",
		model.StatusTeacherApproved: "教师审核通过",
		model.StatusTeacherRejected: "教师审核未通过",
	}
	reviewStatusNames = map[model.ReviewStatus]string{
		model.ReviewPending:  "待审核",
		model.ReviewApproved: "审核通过",
		model.ReviewRejected: "审核未通过",
	}
	projectStatusNames = map[model.ProjectStatus]string{
		model.ProjectPreResearch: "预研",
		model.ProjectInResearch:  "在研",
	}
)

// ═══════════════════════════════════════════════════════════
// ExportWorkloads 导出工作量为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportWorkloads(ctx context.Context, actor model.Actor, ids []uint) (*bytes.Buffer, string, error) {
	scope, err := workflow.WorkloadScope(actor.Role, workflow.IntentDefault, actor.ID)
	if err != nil {
		return nil, "", err
	}
	list, err := s.repo.Workload.ListByIDs(ctx, ids, scope)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("查询导出工作量失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportEmpty
	}

	headers := []string{
		"ID", "名称", "内容", "来源", "工作类型", "开始日期", "结束日期", "强度类型", "强度值",
		"提交人", "导师审核人", "教师审核人", "状态", "导师意见", "教师意见", "关联项目", "大创参与者",
	}
	rows := make([][]interface{}, 0, len(list))
	for i := range list {
		w := &list[i]
		project := ""
		if w.Project != nil {
			project = w.Project.Name
		}
		rows = append(rows, []interface{}{
			w.ID,
			w.Name,
			w.Content,
			labelOr(workloadSourceNames, w.Source),
			string(w.WorkType),
			formatDate(w.StartDate),
			formatDate(w.EndDate),
			string(w.IntensityType),
			w.IntensityValue,
			username(w.Submitter),
			username(w.MentorReviewer),
			username(w.TeacherReviewer),
			labelOr(workloadStatusNames, w.Status),
			deref(w.MentorComment),
			deref(w.TeacherComment),
			project,
			shareSummary(w.Shares),
		})
	}

	return s.writeSheet(ctx, "工作量", headers, rows)
}

// ═══════════════════════════════════════════════════════════
// ExportProjects 导出项目为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportProjects(ctx context.Context, actor model.Actor, ids []uint) (*bytes.Buffer, string, error) {
	scope, err := workflow.ProjectVisibleScope(actor)
	if err != nil {
		return nil, "", err
	}
	list, err := s.repo.Project.ListByIDs(ctx, ids, scope)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("查询导出项目失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportEmpty
	}

	headers := []string{"ID", "项目名称", "项目状态", "开始日期", "申报人", "审核教师", "审核状态", "审核意见", "参与者"}
	rows := make([][]interface{}, 0, len(list))
	for i := range list {
		p := &list[i]
		members := make([]string, 0, len(p.Shares))
		for _, sh := range p.Shares {
			members = append(members, username(sh.User))
		}
		rows = append(rows, []interface{}{
			p.ID,
			p.Name,
			labelOr(projectStatusNames, p.ProjectStatus),
			formatDate(p.StartDate),
			username(p.Submitter),
			username(p.TeacherReviewer),
			labelOr(reviewStatusNames, p.ReviewStatus),
			deref(p.TeacherComment),
			strings.Join(members, "、"),
		})
	}

	return s.writeSheet(ctx, "项目", headers, rows)
}

// writeSheet 生成单 Sheet 表格：首行表头，其余为数据
func (s *exportService) writeSheet(ctx context.Context, title string, headers []string, rows [][]interface{}) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := title
	idx, err := f.NewSheet(sheet)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		c := cell(colName(i), 1)
		f.SetCellValue(sheet, c, h)
		f.SetCellStyle(sheet, c, c, headerStyle)
		f.SetColWidth(sheet, colName(i), colName(i), 16)
	}
	for r, row := range rows {
		for i, v := range row {
			f.SetCellValue(sheet, cell(colName(i), r+2), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		logger.FromContext(ctx, s.logger).Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s导出_%s.xlsx", title, s.now().Format("20060102150405"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func labelOr[K ~string](names map[K]string, k K) string {
	if name, ok := names[k]; ok {
		return name
	}
	return string(k)
}

func username(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func shareSummary(shares []model.WorkloadShare) string {
	parts := make([]string, 0, len(shares))
	for _, sh := range shares {
		name := username(sh.User)
		if name == "" {
			name = fmt.Sprintf("#%d", sh.UserID)
		}
		parts = append(parts, fmt.Sprintf("%s(%.2f%%)", name, sh.Percentage))
	}
	return strings.Join(parts, "、")
}
