package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// WorkloadRepository 工作量数据访问接口
type WorkloadRepository interface {
	Create(ctx context.Context, w *model.Workload) error
	GetByID(ctx context.Context, id uint) (*model.Workload, error)
	// GetForUpdate 锁定记录行（SELECT ... FOR UPDATE），须在事务中调用
	GetForUpdate(ctx context.Context, id uint) (*model.Workload, error)
	Update(ctx context.Context, w *model.Workload) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, scope workflow.Scope) ([]model.Workload, error)
	ListByIDs(ctx context.Context, ids []uint, scope workflow.Scope) ([]model.Workload, error)
	ListShares(ctx context.Context, workloadID uint) ([]model.WorkloadShare, error)
	ReplaceShares(ctx context.Context, workloadID uint, shares []model.WorkloadShare) error
}

type workloadRepo struct {
	db *gorm.DB
}

// NewWorkloadRepo 创建 WorkloadRepository 实例
func NewWorkloadRepo(db *gorm.DB) WorkloadRepository {
	return &workloadRepo{db: db}
}

func (r *workloadRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Submitter").
		Preload("MentorReviewer").
		Preload("TeacherReviewer").
		Preload("Project").
		Preload("Shares", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Shares.User")
}

// Create 插入工作量
// 主键冲突时以当前最大 ID + 1 重试一次，仍冲突则返回 ErrIntegrityConflict
func (r *workloadRepo) Create(ctx context.Context, w *model.Workload) error {
	if w.Version == 0 {
		w.Version = 1
	}
	return createWithReassign(ctx, r.db, w, &model.Workload{}, func(id uint) { w.ID = id })
}

func (r *workloadRepo) GetByID(ctx context.Context, id uint) (*model.Workload, error) {
	var w model.Workload
	err := r.preload(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workloadRepo) GetForUpdate(ctx context.Context, id uint) (*model.Workload, error) {
	var w model.Workload
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *workloadRepo) Update(ctx context.Context, w *model.Workload) error {
	oldVersion := w.Version
	result := r.db.WithContext(ctx).
		Model(&model.Workload{}).
		Where("id = ? AND version = ?", w.ID, oldVersion).
		Updates(map[string]interface{}{
			"name":                  w.Name,
			"content":               w.Content,
			"source":                w.Source,
			"work_type":             w.WorkType,
			"start_date":            w.StartDate,
			"end_date":              w.EndDate,
			"intensity_type":        w.IntensityType,
			"intensity_value":       w.IntensityValue,
			"innovation_stage":      w.InnovationStage,
			"assistant_salary_paid": w.AssistantSalaryPaid,
			"project_id":            w.ProjectID,
			"attachment":            w.Attachment,
			"original_filename":     w.OriginalFilename,
			"mentor_reviewer_id":    w.MentorReviewerID,
			"teacher_reviewer_id":   w.TeacherReviewerID,
			"status":                w.Status,
			"mentor_comment":        w.MentorComment,
			"mentor_review_time":    w.MentorReviewTime,
			"teacher_comment":       w.TeacherComment,
			"teacher_review_time":   w.TeacherReviewTime,
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	w.Version = oldVersion + 1
	return nil
}

// Delete 删除工作量及其参与者占比
func (r *workloadRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workload_id = ?", id).Delete(&model.WorkloadShare{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Workload{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *workloadRepo) List(ctx context.Context, scope workflow.Scope) ([]model.Workload, error) {
	var list []model.Workload
	db := applyScope(r.db.WithContext(ctx).Model(&model.Workload{}), scope, workloadColumns)
	err := r.preload(db).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *workloadRepo) ListByIDs(ctx context.Context, ids []uint, scope workflow.Scope) ([]model.Workload, error) {
	var list []model.Workload
	if len(ids) == 0 {
		return list, nil
	}
	db := r.db.WithContext(ctx).Model(&model.Workload{}).Where("id IN ?", ids)
	db = applyScope(db, scope, workloadColumns)
	err := r.preload(db).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *workloadRepo) ListShares(ctx context.Context, workloadID uint) ([]model.WorkloadShare, error) {
	var shares []model.WorkloadShare
	err := r.db.WithContext(ctx).
		Where("workload_id = ?", workloadID).
		Order("id ASC").
		Find(&shares).Error
	return shares, err
}

// ReplaceShares 以给定占比整体替换原有占比
func (r *workloadRepo) ReplaceShares(ctx context.Context, workloadID uint, shares []model.WorkloadShare) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workload_id = ?", workloadID).Delete(&model.WorkloadShare{}).Error; err != nil {
			return err
		}
		if len(shares) == 0 {
			return nil
		}
		rows := make([]model.WorkloadShare, len(shares))
		for i, s := range shares {
			rows[i] = model.WorkloadShare{WorkloadID: workloadID, UserID: s.UserID, Percentage: s.Percentage}
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
}

// createWithReassign 插入记录，主键冲突时重分配一次 ID
func createWithReassign(ctx context.Context, db *gorm.DB, value interface{}, table interface{}, setID func(uint)) error {
	insert := func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Omit(clause.Associations).Create(value).Error
		})
	}

	err := insert()
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	var maxID uint
	if err := db.WithContext(ctx).Model(table).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error; err != nil {
		return err
	}
	setID(maxID + 1)

	if err := insert(); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrIntegrityConflict
		}
		return err
	}
	return nil
}
