package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/repository"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/logger"
)

var (
	ErrAnnouncementNotFound = pkgerrors.NotFound("公告不存在")
)

const (
	announcementCacheTTL    = 60 * time.Second
	announcementCachePrefix = "announcements:list:"
)

// AnnouncementService 公告只读业务接口
type AnnouncementService interface {
	// List source 为空时返回全部公告，否则按来源精确匹配
	List(ctx context.Context, source string) ([]dto.AnnouncementResponse, error)
	Get(ctx context.Context, id uint) (*dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo   *repository.Repository
	cache  Cache
	logger *zap.Logger
	group  singleflight.Group
}

// NewAnnouncementService 创建 AnnouncementService 实例；cache 为 nil 时每次查库
func NewAnnouncementService(repo *repository.Repository, cache Cache, logger *zap.Logger) AnnouncementService {
	return &announcementService{repo: repo, cache: cache, logger: logger}
}

func (s *announcementService) List(ctx context.Context, source string) ([]dto.AnnouncementResponse, error) {
	key := announcementCachePrefix + source
	log := logger.FromContext(ctx, s.logger)

	if s.cache != nil {
		var cached []dto.AnnouncementResponse
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	// 同一来源的并发未命中只查一次库
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var filter *model.WorkloadSource
		if source != "" {
			src := model.WorkloadSource(source)
			filter = &src
		}
		list, err := s.repo.Announcement.List(ctx, filter)
		if err != nil {
			return nil, err
		}

		result := make([]dto.AnnouncementResponse, 0, len(list))
		for i := range list {
			result = append(result, toAnnouncementResponse(&list[i]))
		}
		if s.cache != nil {
			if err := s.cache.SetJSON(ctx, key, result, announcementCacheTTL); err != nil {
				log.Warn("写入公告缓存失败", zap.String("key", key), zap.Error(err))
			}
		}
		return result, nil
	})
	if err != nil {
		log.Error("查询公告列表失败", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	return v.([]dto.AnnouncementResponse), nil
}

func (s *announcementService) Get(ctx context.Context, id uint) (*dto.AnnouncementResponse, error) {
	a, err := s.repo.Announcement.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		logger.FromContext(ctx, s.logger).Error("查询公告失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	resp := toAnnouncementResponse(a)
	return &resp, nil
}
