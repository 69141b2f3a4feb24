package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uint) (*model.Project, error)
	GetForUpdate(ctx context.Context, id uint) (*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope workflow.Scope) ([]model.Project, error)
	ListByIDs(ctx context.Context, ids []uint, scope workflow.Scope) ([]model.Project, error)
	ListMemberIDs(ctx context.Context, projectID uint) ([]uint, error)
	ReplaceShares(ctx context.Context, projectID uint, userIDs []uint) error
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Submitter").
		Preload("TeacherReviewer").
		Preload("Shares", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Shares.User")
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return createWithReassign(ctx, r.db, p, &model.Project{}, func(id uint) { p.ID = id })
}

func (r *projectRepo) GetByID(ctx context.Context, id uint) (*model.Project, error) {
	var p model.Project
	err := r.preload(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetForUpdate(ctx context.Context, id uint) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	oldVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ? AND version = ?", p.ID, oldVersion).
		Updates(map[string]interface{}{
			"name":                p.Name,
			"project_status":      p.ProjectStatus,
			"start_date":          p.StartDate,
			"teacher_reviewer_id": p.TeacherReviewerID,
			"review_status":       p.ReviewStatus,
			"teacher_comment":     p.TeacherComment,
			"teacher_review_time": p.TeacherReviewTime,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version = oldVersion + 1
	return nil
}

// Delete 删除项目及其参与者
func (r *projectRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectShare{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Project{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *projectRepo) List(ctx context.Context, scope workflow.Scope) ([]model.Project, error) {
	var list []model.Project
	db := applyScope(r.db.WithContext(ctx).Model(&model.Project{}), scope, projectColumns)
	err := r.preload(db).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *projectRepo) ListByIDs(ctx context.Context, ids []uint, scope workflow.Scope) ([]model.Project, error) {
	var list []model.Project
	if len(ids) == 0 {
		return list, nil
	}
	db := r.db.WithContext(ctx).Model(&model.Project{}).Where("id IN ?", ids)
	db = applyScope(db, scope, projectColumns)
	err := r.preload(db).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *projectRepo) ListMemberIDs(ctx context.Context, projectID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.ProjectShare{}).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *projectRepo) ReplaceShares(ctx context.Context, projectID uint, userIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectShare{}).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}
		rows := make([]model.ProjectShare, len(userIDs))
		for i, uid := range userIDs {
			rows[i] = model.ProjectShare{ProjectID: projectID, UserID: uid}
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
}
