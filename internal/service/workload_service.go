package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/metrics"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/repository"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/logger"
)

// ── 工作量模块业务错误 ──

var (
	ErrWorkloadNotFound = pkgerrors.NotFound("工作量不存在")
	ErrSubmitterUnknown = pkgerrors.NotFound("当前用户不存在")
)

// WorkloadService 工作量业务接口
type WorkloadService interface {
	Create(ctx context.Context, actor model.Actor, req *dto.WorkloadRequest, file *Upload) (*dto.WorkloadResponse, error)
	Get(ctx context.Context, actor model.Actor, id uint) (*dto.WorkloadResponse, error)
	List(ctx context.Context, actor model.Actor, intent workflow.Intent) ([]dto.WorkloadResponse, error)
	// Update partial=true 时只修改请求中出现的字段（PATCH）
	Update(ctx context.Context, actor model.Actor, id uint, req *dto.WorkloadRequest, file *Upload, partial bool) (*dto.WorkloadResponse, error)
	Delete(ctx context.Context, actor model.Actor, id uint) error
	Review(ctx context.Context, actor model.Actor, id uint, req *dto.ReviewRequest) (*dto.WorkloadResponse, error)
}

type workloadService struct {
	repo   *repository.Repository
	store  AttachmentStore
	logger *zap.Logger
	now    func() time.Time
}

// NewWorkloadService 创建 WorkloadService 实例；store 为 nil 时不支持附件
func NewWorkloadService(repo *repository.Repository, store AttachmentStore, logger *zap.Logger) WorkloadService {
	return &workloadService{repo: repo, store: store, logger: logger, now: time.Now}
}

func (s *workloadService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

// ────────────────────── Create ──────────────────────

func (s *workloadService) Create(ctx context.Context, actor model.Actor, req *dto.WorkloadRequest, file *Upload) (*dto.WorkloadResponse, error) {
	if req.ID != nil {
		s.log(ctx).Info("忽略客户端提交的工作量 id", zap.Uint("id", *req.ID))
	}

	submitter, err := s.repo.User.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmitterUnknown
		}
		s.log(ctx).Error("查询提交者失败", zap.Uint("user_id", actor.ID), zap.Error(err))
		return nil, err
	}

	w := &model.Workload{
		SubmitterID: submitter.ID,
		Status:      model.StatusPending,
	}
	ve := pkgerrors.NewValidationError()
	applyWorkloadRequest(w, req, ve)
	details := workflow.NewSourceDetails(w.Source, sourceInput(req, nil))

	c, err := s.buildCandidate(ctx, w, details, submitter.Role, file)
	if err != nil {
		return nil, err
	}
	ve.Merge(workflow.ValidateWorkload(c, actor))
	s.checkUploadAllowed(file, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	details.Apply(w)

	newKey, err := s.storeAttachment(ctx, w, file)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Workload.Create(ctx, w); err != nil {
			return err
		}
		return s.saveShares(ctx, txRepo, w, details)
	})
	if err != nil {
		s.discardAttachment(ctx, newKey)
		return nil, s.translate(ctx, err, "创建工作量失败", 0)
	}

	s.log(ctx).Info("工作量已创建",
		zap.Uint("id", w.ID),
		zap.Uint("submitter_id", w.SubmitterID),
		zap.String("source", string(w.Source)),
	)
	return s.reload(ctx, w.ID, true)
}

// ────────────────────── Get / List ──────────────────────

func (s *workloadService) Get(ctx context.Context, actor model.Actor, id uint) (*dto.WorkloadResponse, error) {
	w, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, w, true), nil
}

func (s *workloadService) List(ctx context.Context, actor model.Actor, intent workflow.Intent) ([]dto.WorkloadResponse, error) {
	scope, err := workflow.WorkloadScope(actor.Role, intent, actor.ID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Workload.List(ctx, scope)
	if err != nil {
		s.log(ctx).Error("查询工作量列表失败", zap.String("intent", string(intent)), zap.Error(err))
		return nil, err
	}

	result := make([]dto.WorkloadResponse, 0, len(list))
	for i := range list {
		result = append(result, *s.respond(ctx, &list[i], false))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *workloadService) Update(ctx context.Context, actor model.Actor, id uint, req *dto.WorkloadRequest, file *Upload, partial bool) (*dto.WorkloadResponse, error) {
	existing, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanModifyWorkload(existing, actor); err != nil {
		return nil, err
	}
	submitterRole := submitterRoleOf(existing)

	w := editableCopy(existing, partial)
	ve := pkgerrors.NewValidationError()
	applyWorkloadRequest(w, req, ve)

	var base *model.Workload
	if partial {
		base = existing
	}
	details := workflow.NewSourceDetails(w.Source, sourceInput(req, base))

	c, err := s.buildCandidate(ctx, w, details, submitterRole, file)
	if err != nil {
		return nil, err
	}
	ve.Merge(workflow.ValidateWorkload(c, actor))
	s.checkUploadAllowed(file, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	details.Apply(w)

	oldKey := existing.Attachment
	if req.RemoveAttachment && file == nil {
		w.Attachment = nil
		w.OriginalFilename = nil
	}
	newKey, err := s.storeAttachment(ctx, w, file)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Workload.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.Version != existing.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if err := workflow.CanModifyWorkload(locked, actor); err != nil {
			return err
		}

		w.Version = locked.Version
		w.Status = locked.Status
		workflow.ResetAfterEdit(w, actor)

		if err := txRepo.Workload.Update(ctx, w); err != nil {
			return err
		}
		return s.saveShares(ctx, txRepo, w, details)
	})
	if err != nil {
		s.discardAttachment(ctx, newKey)
		return nil, s.translate(ctx, err, "更新工作量失败", id)
	}

	if oldKey != nil && (w.Attachment == nil || *w.Attachment != *oldKey) {
		s.discardAttachment(ctx, *oldKey)
	}

	s.log(ctx).Info("工作量已更新", zap.Uint("id", id), zap.String("status", string(w.Status)))
	return s.reload(ctx, id, true)
}

// ────────────────────── Delete ──────────────────────

func (s *workloadService) Delete(ctx context.Context, actor model.Actor, id uint) error {
	existing, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := workflow.CanModifyWorkload(existing, actor); err != nil {
		return err
	}

	var attachment *string
	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Workload.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := workflow.CanModifyWorkload(locked, actor); err != nil {
			return err
		}
		attachment = locked.Attachment
		return txRepo.Workload.Delete(ctx, id)
	})
	if err != nil {
		return s.translate(ctx, err, "删除工作量失败", id)
	}

	if attachment != nil {
		s.discardAttachment(ctx, *attachment)
	}
	s.log(ctx).Info("工作量已删除", zap.Uint("id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// ────────────────────── Review ──────────────────────

func (s *workloadService) Review(ctx context.Context, actor model.Actor, id uint, req *dto.ReviewRequest) (*dto.WorkloadResponse, error) {
	existing, err := s.repo.Workload.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "查询工作量失败", id)
	}
	submitterRole := submitterRoleOf(existing)
	act := workflow.ReviewAction{Status: req.Status, Comment: req.EffectiveComment()}

	var status model.WorkloadStatus
	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Workload.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := workflow.ReviewWorkload(locked, submitterRole, actor, act, s.now()); err != nil {
			return err
		}
		status = locked.Status
		return txRepo.Workload.Update(ctx, locked)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrPermissionDenied) || errors.Is(err, pkgerrors.ErrInvalidTransition) {
			metrics.ReviewRefused(metrics.RecordWorkload, err.Error())
			s.log(ctx).Info("工作量审核被拒绝", zap.Uint("id", id), zap.Uint("actor_id", actor.ID), zap.Error(err))
		}
		return nil, s.translate(ctx, err, "审核工作量失败", id)
	}

	metrics.ReviewApplied(metrics.RecordWorkload, string(actor.Role), string(status))
	s.log(ctx).Info("工作量审核完成",
		zap.Uint("id", id),
		zap.Uint("reviewer_id", actor.ID),
		zap.String("status", string(status)),
	)
	return s.reload(ctx, id, false)
}

// ────────────────────── 内部方法 ──────────────────────

// loadVisible 加载工作量，对操作者不可见时视为不存在
func (s *workloadService) loadVisible(ctx context.Context, actor model.Actor, id uint) (*model.Workload, error) {
	w, err := s.repo.Workload.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "查询工作量失败", id)
	}
	if !workflow.WorkloadVisible(w, submitterRoleOf(w), actor) {
		return nil, ErrWorkloadNotFound
	}
	return w, nil
}

func (s *workloadService) reload(ctx context.Context, id uint, withURL bool) (*dto.WorkloadResponse, error) {
	w, err := s.repo.Workload.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "查询工作量失败", id)
	}
	return s.respond(ctx, w, withURL), nil
}

func (s *workloadService) respond(ctx context.Context, w *model.Workload, withURL bool) *dto.WorkloadResponse {
	resp := toWorkloadResponse(w)
	if withURL && s.store != nil && w.Attachment != nil {
		url, err := s.store.URL(ctx, *w.Attachment)
		if err != nil {
			s.log(ctx).Warn("生成附件地址失败", zap.Uint("id", w.ID), zap.Error(err))
		} else {
			resp.AttachmentsURL = url
		}
	}
	return resp
}

// buildCandidate 加载校验所需的关联记录，不存在的引用保持 nil
func (s *workloadService) buildCandidate(ctx context.Context, w *model.Workload, details workflow.SourceDetails, submitterRole model.Role, file *Upload) (*workflow.WorkloadCandidate, error) {
	c := &workflow.WorkloadCandidate{
		Workload:      w,
		Details:       details,
		SubmitterRole: submitterRole,
		ShareUsers:    map[uint]*model.User{},
		Now:           s.now(),
	}
	if file != nil {
		c.AttachmentSize = file.Size
	}

	ids := make([]uint, 0, 2)
	if w.MentorReviewerID != nil {
		ids = append(ids, *w.MentorReviewerID)
	}
	if w.TeacherReviewerID != nil {
		ids = append(ids, *w.TeacherReviewerID)
	}
	if details != nil {
		for _, sh := range details.Shares() {
			ids = append(ids, sh.UserID)
		}
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.log(ctx).Error("查询关联用户失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[uint]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	if w.MentorReviewerID != nil {
		c.MentorReviewer = byID[*w.MentorReviewerID]
	}
	if w.TeacherReviewerID != nil {
		c.TeacherReviewer = byID[*w.TeacherReviewerID]
	}
	if details != nil {
		for _, sh := range details.Shares() {
			if u, ok := byID[sh.UserID]; ok {
				c.ShareUsers[sh.UserID] = u
			}
		}
	}

	if hd, ok := details.(*workflow.HorizontalDetails); ok && hd.ProjectID != nil {
		p, err := s.repo.Project.GetByID(ctx, *hd.ProjectID)
		switch {
		case err == nil:
			c.Project = p
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.log(ctx).Error("查询关联项目失败", zap.Uint("project_id", *hd.ProjectID), zap.Error(err))
			return nil, err
		}
	}
	return c, nil
}

// saveShares 落库参与者占比，并在提交前按落库结果复核
func (s *workloadService) saveShares(ctx context.Context, txRepo *repository.Repository, w *model.Workload, details workflow.SourceDetails) error {
	rows := make([]model.WorkloadShare, 0, len(details.Shares()))
	for _, sh := range details.Shares() {
		rows = append(rows, model.WorkloadShare{WorkloadID: w.ID, UserID: sh.UserID, Percentage: sh.Percentage})
	}
	if err := txRepo.Workload.ReplaceShares(ctx, w.ID, rows); err != nil {
		return err
	}
	if w.Source != model.SourceInnovation {
		return nil
	}

	stored, err := txRepo.Workload.ListShares(ctx, w.ID)
	if err != nil {
		return err
	}
	if msg := workflow.CheckShares(w.SubmitterID, workflow.SharesFromModel(stored)); msg != "" {
		return pkgerrors.FieldError("shares", msg)
	}
	return nil
}

func (s *workloadService) checkUploadAllowed(file *Upload, ve *pkgerrors.ValidationError) {
	if file != nil && s.store == nil && !ve.Has("attachments") {
		ve.Add("attachments", "附件上传功能未启用")
	}
}

// storeAttachment 在事务之前上传附件，返回新对象键（无附件时为空串）
func (s *workloadService) storeAttachment(ctx context.Context, w *model.Workload, file *Upload) (string, error) {
	if file == nil {
		return "", nil
	}
	key, err := s.store.Store(ctx, file.Filename, file.Reader, file.Size, file.ContentType)
	if err != nil {
		s.log(ctx).Error("上传附件失败", zap.String("filename", file.Filename), zap.Error(err))
		return "", err
	}
	name := file.Filename
	w.Attachment = &key
	w.OriginalFilename = &name
	return key, nil
}

// discardAttachment 尽力删除附件，失败只记录日志
func (s *workloadService) discardAttachment(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		metrics.AttachmentCleanupFailed()
		s.log(ctx).Warn("删除附件失败", zap.String("key", key), zap.Error(err))
	}
}

// translate 将仓储错误映射为业务错误，未知错误记录日志后原样返回
func (s *workloadService) translate(ctx context.Context, err error, msg string, id uint) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrWorkloadNotFound
	case errors.Is(err, pkgerrors.ErrValidation),
		errors.Is(err, pkgerrors.ErrPermissionDenied),
		errors.Is(err, pkgerrors.ErrInvalidTransition),
		errors.Is(err, pkgerrors.ErrNotFound):
		return err
	case errors.Is(err, pkgerrors.ErrOptimisticLock), errors.Is(err, pkgerrors.ErrIntegrityConflict):
		s.log(ctx).Warn(msg, zap.Uint("id", id), zap.Error(err))
		return err
	}
	s.log(ctx).Error(msg, zap.Uint("id", id), zap.Error(err))
	return err
}

func submitterRoleOf(w *model.Workload) model.Role {
	if w.Submitter != nil {
		return w.Submitter.Role
	}
	return ""
}

// editableCopy 生成待修改的副本
// 全量修改（PUT）时清空内容字段，要求请求重新提供；审核人未提交时沿用
func editableCopy(existing *model.Workload, partial bool) *model.Workload {
	w := &model.Workload{
		ID:                existing.ID,
		SubmitterID:       existing.SubmitterID,
		Status:            existing.Status,
		Attachment:        existing.Attachment,
		OriginalFilename:  existing.OriginalFilename,
		MentorReviewerID:  existing.MentorReviewerID,
		TeacherReviewerID: existing.TeacherReviewerID,
		MentorComment:     existing.MentorComment,
		MentorReviewTime:  existing.MentorReviewTime,
		TeacherComment:    existing.TeacherComment,
		TeacherReviewTime: existing.TeacherReviewTime,
		VersionedModel:    existing.VersionedModel,
	}
	if !partial {
		return w
	}
	w.Name = existing.Name
	w.Content = existing.Content
	w.Source = existing.Source
	w.WorkType = existing.WorkType
	w.StartDate = existing.StartDate
	w.EndDate = existing.EndDate
	w.IntensityType = existing.IntensityType
	w.IntensityValue = existing.IntensityValue
	return w
}

// applyWorkloadRequest 将请求中出现的字段写入 w
func applyWorkloadRequest(w *model.Workload, req *dto.WorkloadRequest, ve *pkgerrors.ValidationError) {
	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.Content != nil {
		w.Content = *req.Content
	}
	if req.Source != nil {
		w.Source = model.WorkloadSource(*req.Source)
	}
	if req.WorkType != nil {
		w.WorkType = model.WorkType(*req.WorkType)
	}
	if req.StartDate != nil {
		w.StartDate = parseDate("start_date", req.StartDate, ve)
	}
	if req.EndDate != nil {
		w.EndDate = parseDate("end_date", req.EndDate, ve)
	}
	if req.IntensityType != nil {
		w.IntensityType = model.IntensityType(*req.IntensityType)
	}
	if req.IntensityValue != nil {
		w.IntensityValue = *req.IntensityValue
	}
	if req.MentorReviewerID != nil {
		w.MentorReviewerID = nonZero(req.MentorReviewerID)
	}
	// 教师审核人只由教师审核写入；原样回传当前值时忽略
	if req.TeacherReviewerID != nil && !sameRef(nonZero(req.TeacherReviewerID), w.TeacherReviewerID) {
		ve.Add("teacher_reviewer", "教师审核人由审核操作记录，不能手动指定")
	}
}

func sameRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sourceInput 组装来源相关字段；base 非空时未提交的字段沿用 base
func sourceInput(req *dto.WorkloadRequest, base *model.Workload) workflow.SourceInput {
	in := workflow.SourceInput{}
	if base != nil {
		in.InnovationStage = base.InnovationStage
		in.AssistantSalaryPaid = base.AssistantSalaryPaid
		in.ProjectID = base.ProjectID
		in.Shares = workflow.SharesFromModel(base.Shares)
	}

	if req.InnovationStage != nil {
		stage := model.InnovationStage(*req.InnovationStage)
		in.InnovationStage = &stage
	}
	if req.AssistantSalaryPaid != nil {
		in.AssistantSalaryPaid = req.AssistantSalaryPaid
	}
	if req.ProjectID != nil {
		in.ProjectID = nonZero(req.ProjectID)
	}
	if req.Shares != nil {
		in.Shares = make([]workflow.ShareInput, 0, len(req.Shares))
		for _, sh := range req.Shares {
			in.Shares = append(in.Shares, workflow.ShareInput{UserID: sh.UserID, Percentage: sh.Percentage})
		}
	}
	return in
}

// nonZero 将 0 视为清空
func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
