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

// ── 项目模块业务错误 ──

var (
	ErrProjectNotFound = pkgerrors.NotFound("项目不存在")
)

// ProjectService 项目业务接口
type ProjectService interface {
	Create(ctx context.Context, actor model.Actor, req *dto.ProjectRequest) (*dto.ProjectResponse, error)
	Get(ctx context.Context, actor model.Actor, id uint) (*dto.ProjectResponse, error)
	List(ctx context.Context, actor model.Actor, intent workflow.Intent) ([]dto.ProjectResponse, error)
	Update(ctx context.Context, actor model.Actor, id uint, req *dto.ProjectRequest, partial bool) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, actor model.Actor, id uint) error
	Review(ctx context.Context, actor model.Actor, id uint, req *dto.ReviewRequest) (*dto.ProjectResponse, error)
}

type projectService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, logger: logger, now: time.Now}
}

func (s *projectService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *projectService) Create(ctx context.Context, actor model.Actor, req *dto.ProjectRequest) (*dto.ProjectResponse, error) {
	if req.ID != nil {
		s.log(ctx).Info("忽略客户端提交的项目 id", zap.Uint("id", *req.ID))
	}
	if _, err := s.repo.User.GetByID(ctx, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmitterUnknown
		}
		return nil, err
	}

	p := &model.Project{
		SubmitterID:  actor.ID,
		ReviewStatus: model.ReviewPending,
	}
	shareIDs := req.ShareUserIDs
	if err := s.validate(ctx, p, req, shareIDs); err != nil {
		return nil, err
	}

	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Project.Create(ctx, p); err != nil {
			return err
		}
		return s.saveShares(ctx, txRepo, p.ID, shareIDs)
	})
	if err != nil {
		return nil, s.translate(ctx, err, "创建项目失败", 0)
	}

	s.log(ctx).Info("项目已创建", zap.Uint("id", p.ID), zap.Uint("submitter_id", p.SubmitterID))
	return s.reload(ctx, p.ID)
}

func (s *projectService) Get(ctx context.Context, actor model.Actor, id uint) (*dto.ProjectResponse, error) {
	p, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(p), nil
}

func (s *projectService) List(ctx context.Context, actor model.Actor, intent workflow.Intent) ([]dto.ProjectResponse, error) {
	scope, err := workflow.ProjectScope(actor.Role, intent, actor.ID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.Project.List(ctx, scope)
	if err != nil {
		s.log(ctx).Error("查询项目列表失败", zap.String("intent", string(intent)), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ProjectResponse, 0, len(list))
	for i := range list {
		result = append(result, *toProjectResponse(&list[i]))
	}
	return result, nil
}

func (s *projectService) Update(ctx context.Context, actor model.Actor, id uint, req *dto.ProjectRequest, partial bool) (*dto.ProjectResponse, error) {
	existing, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanModifyProject(existing, actor); err != nil {
		return nil, err
	}

	p := &model.Project{
		ID:                existing.ID,
		SubmitterID:       existing.SubmitterID,
		TeacherReviewerID: existing.TeacherReviewerID,
		ReviewStatus:      existing.ReviewStatus,
		TeacherComment:    existing.TeacherComment,
		TeacherReviewTime: existing.TeacherReviewTime,
		VersionedModel:    existing.VersionedModel,
	}
	shareIDs := req.ShareUserIDs
	if partial {
		p.Name = existing.Name
		p.ProjectStatus = existing.ProjectStatus
		p.StartDate = existing.StartDate
		if shareIDs == nil {
			shareIDs = memberIDs(existing)
		}
	}
	if err := s.validate(ctx, p, req, shareIDs); err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Project.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.Version != existing.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if err := workflow.CanModifyProject(locked, actor); err != nil {
			return err
		}

		p.ReviewStatus = locked.ReviewStatus
		workflow.ResetProjectAfterEdit(p, actor)
		if err := txRepo.Project.Update(ctx, p); err != nil {
			return err
		}
		return s.saveShares(ctx, txRepo, id, shareIDs)
	})
	if err != nil {
		return nil, s.translate(ctx, err, "更新项目失败", id)
	}

	s.log(ctx).Info("项目已更新", zap.Uint("id", id), zap.String("review_status", string(p.ReviewStatus)))
	return s.reload(ctx, id)
}

func (s *projectService) Delete(ctx context.Context, actor model.Actor, id uint) error {
	existing, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := workflow.CanModifyProject(existing, actor); err != nil {
		return err
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Project.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := workflow.CanModifyProject(locked, actor); err != nil {
			return err
		}
		return txRepo.Project.Delete(ctx, id)
	})
	if err != nil {
		return s.translate(ctx, err, "删除项目失败", id)
	}

	s.log(ctx).Info("项目已删除", zap.Uint("id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

func (s *projectService) Review(ctx context.Context, actor model.Actor, id uint, req *dto.ReviewRequest) (*dto.ProjectResponse, error) {
	act := workflow.ReviewAction{Status: req.Status, Comment: req.EffectiveComment()}

	var status model.ReviewStatus
	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		locked, err := txRepo.Project.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := workflow.ReviewProject(locked, actor, act, s.now()); err != nil {
			return err
		}
		status = locked.ReviewStatus
		return txRepo.Project.Update(ctx, locked)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrPermissionDenied) || errors.Is(err, pkgerrors.ErrInvalidTransition) {
			metrics.ReviewRefused(metrics.RecordProject, err.Error())
		}
		return nil, s.translate(ctx, err, "审核项目失败", id)
	}

	metrics.ReviewApplied(metrics.RecordProject, string(actor.Role), string(status))
	s.log(ctx).Info("项目审核完成",
		zap.Uint("id", id),
		zap.Uint("reviewer_id", actor.ID),
		zap.String("review_status", string(status)),
	)
	return s.reload(ctx, id)
}

// ── 内部方法 ──

func (s *projectService) validate(ctx context.Context, p *model.Project, req *dto.ProjectRequest, shareIDs []uint) error {
	ve := pkgerrors.NewValidationError()
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.ProjectStatus != nil {
		p.ProjectStatus = model.ProjectStatus(*req.ProjectStatus)
	}
	if req.StartDate != nil {
		p.StartDate = parseDate("start_date", req.StartDate, ve)
	}

	users, err := s.repo.User.ListByIDs(ctx, shareIDs)
	if err != nil {
		s.log(ctx).Error("查询项目参与者失败", zap.Error(err))
		return err
	}
	byID := make(map[uint]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	ve.Merge(workflow.ValidateProject(&workflow.ProjectCandidate{
		Project:      p,
		ShareUserIDs: shareIDs,
		ShareUsers:   byID,
	}))
	return ve.OrNil()
}

// saveShares 落库项目参与者并复核
func (s *projectService) saveShares(ctx context.Context, txRepo *repository.Repository, projectID uint, userIDs []uint) error {
	if err := txRepo.Project.ReplaceShares(ctx, projectID, userIDs); err != nil {
		return err
	}
	stored, err := txRepo.Project.ListMemberIDs(ctx, projectID)
	if err != nil {
		return err
	}
	if msg := workflow.CheckProjectShares(stored); msg != "" {
		return pkgerrors.FieldError("shares", msg)
	}
	return nil
}

func (s *projectService) loadVisible(ctx context.Context, actor model.Actor, id uint) (*model.Project, error) {
	p, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "查询项目失败", id)
	}
	if !workflow.ProjectVisible(p, memberIDs(p), actor) {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *projectService) reload(ctx context.Context, id uint) (*dto.ProjectResponse, error) {
	p, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "查询项目失败", id)
	}
	return toProjectResponse(p), nil
}

func (s *projectService) translate(ctx context.Context, err error, msg string, id uint) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrProjectNotFound
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
