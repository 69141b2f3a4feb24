package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/yyw2wyy/workload-system/internal/repository"
	"github.com/yyw2wyy/workload-system/pkg/logger"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Workload     WorkloadService
	Project      ProjectService
	Announcement AnnouncementService
	User         UserService
	Export       ExportService
}

// AttachmentStore 附件存储
type AttachmentStore interface {
	Store(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Cache JSON 缓存
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Upload 上传的附件
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// Deps Service 层依赖；Store 与 Cache 可为 nil（未配置对象存储 / Redis）
type Deps struct {
	Repo   *repository.Repository
	Store  AttachmentStore
	Cache  Cache
	Logger *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	return &Service{
		Workload:     NewWorkloadService(d.Repo, d.Store, d.Logger),
		Project:      NewProjectService(d.Repo, d.Logger),
		Announcement: NewAnnouncementService(d.Repo, d.Cache, d.Logger),
		User:         NewUserService(d.Repo, d.Logger),
		Export:       NewExportService(d.Repo, d.Logger),
	}
}

// runInTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
// 聚合未绑定数据库连接时（单元测试）直接在原聚合上执行
func runInTx(ctx context.Context, repo *repository.Repository, fallback *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	log := logger.FromContext(ctx, fallback)

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		log.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			log.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}
