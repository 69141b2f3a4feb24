package service

import (
	"time"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/model"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseDate 解析日期字段，失败时写入字段错误
func parseDate(field string, raw *string, ve *pkgerrors.ValidationError) time.Time {
	if raw == nil || *raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		ve.Add(field, "日期格式应为 YYYY-MM-DD")
		return time.Time{}
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.ID, Username: u.Username, Role: string(u.Role)}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)}
}

func toWorkloadResponse(w *model.Workload) *dto.WorkloadResponse {
	resp := &dto.WorkloadResponse{
		ID:                  w.ID,
		Name:                w.Name,
		Content:             w.Content,
		Source:              string(w.Source),
		WorkType:            string(w.WorkType),
		StartDate:           formatDate(w.StartDate),
		EndDate:             formatDate(w.EndDate),
		IntensityType:       string(w.IntensityType),
		IntensityValue:      w.IntensityValue,
		AssistantSalaryPaid: w.AssistantSalaryPaid,
		ProjectID:           w.ProjectID,
		Attachments:         w.Attachment,
		OriginalFilename:    w.OriginalFilename,
		Submitter:           toUserBrief(w.Submitter),
		MentorReviewer:      toUserBrief(w.MentorReviewer),
		TeacherReviewer:     toUserBrief(w.TeacherReviewer),
		Shares:              make([]dto.ShareResponse, 0, len(w.Shares)),
		Status:              string(w.Status),
		MentorComment:       w.MentorComment,
		MentorReviewTime:    formatTimePtr(w.MentorReviewTime),
		TeacherComment:      w.TeacherComment,
		TeacherReviewTime:   formatTimePtr(w.TeacherReviewTime),
		Version:             w.Version,
		CreatedAt:           formatTime(w.CreatedAt),
		UpdatedAt:           formatTime(w.UpdatedAt),
	}
	if w.InnovationStage != nil {
		stage := string(*w.InnovationStage)
		resp.InnovationStage = &stage
	}
	if w.Project != nil {
		resp.ProjectName = w.Project.Name
	}
	for _, s := range w.Shares {
		resp.Shares = append(resp.Shares, dto.ShareResponse{
			UserID:     s.UserID,
			User:       toUserBrief(s.User),
			Percentage: s.Percentage,
		})
	}
	return resp
}

func toProjectResponse(p *model.Project) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:                p.ID,
		Name:              p.Name,
		ProjectStatus:     string(p.ProjectStatus),
		StartDate:         formatDate(p.StartDate),
		Submitter:         toUserBrief(p.Submitter),
		TeacherReviewer:   toUserBrief(p.TeacherReviewer),
		Shares:            make([]dto.UserBrief, 0, len(p.Shares)),
		ReviewStatus:      string(p.ReviewStatus),
		TeacherComment:    p.TeacherComment,
		TeacherReviewTime: formatTimePtr(p.TeacherReviewTime),
		Version:           p.Version,
		CreatedAt:         formatTime(p.CreatedAt),
		UpdatedAt:         formatTime(p.UpdatedAt),
	}
	for _, s := range p.Shares {
		if b := toUserBrief(s.User); b != nil {
			resp.Shares = append(resp.Shares, *b)
		} else {
			resp.Shares = append(resp.Shares, dto.UserBrief{ID: s.UserID})
		}
	}
	return resp
}

func toAnnouncementResponse(a *model.Announcement) dto.AnnouncementResponse {
	resp := dto.AnnouncementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Type:      string(a.Type),
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
	if a.Source != nil {
		src := string(*a.Source)
		resp.Source = &src
	}
	return resp
}

// memberIDs 项目参与者 ID
func memberIDs(p *model.Project) []uint {
	ids := make([]uint, 0, len(p.Shares))
	for _, s := range p.Shares {
		ids = append(ids, s.UserID)
	}
	return ids
}
