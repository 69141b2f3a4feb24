package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/model"
)

// AnnouncementRepository 公告数据访问接口
type AnnouncementRepository interface {
	GetByID(ctx context.Context, id uint) (*model.Announcement, error)
	List(ctx context.Context, source *model.WorkloadSource) ([]model.Announcement, error)
}

type announcementRepo struct {
	db *gorm.DB
}

// NewAnnouncementRepo 创建 AnnouncementRepository 实例
func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) GetByID(ctx context.Context, id uint) (*model.Announcement, error) {
	var a model.Announcement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// List 按创建时间倒序，source 非空时只返回该来源的公告
func (r *announcementRepo) List(ctx context.Context, source *model.WorkloadSource) ([]model.Announcement, error) {
	var list []model.Announcement
	db := r.db.WithContext(ctx).Model(&model.Announcement{})
	if source != nil {
		db = db.Where("source = ?", *source)
	}
	err := db.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}
