package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/repository"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/logger"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound = pkgerrors.NotFound("用户不存在")
)

// UserService 用户只读业务接口
// 用户由身份服务维护，本服务只提供审核人选择与当前用户信息
type UserService interface {
	List(ctx context.Context, role string) ([]dto.UserResponse, error)
	Me(ctx context.Context, actor model.Actor) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) List(ctx context.Context, role string) ([]dto.UserResponse, error) {
	var filter *model.Role
	if role != "" {
		r := model.Role(role)
		if !r.Valid() {
			return nil, pkgerrors.FieldError("role", "角色不合法")
		}
		filter = &r
	}

	users, err := s.repo.User.List(ctx, filter)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("查询用户列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, nil
}

func (s *userService) Me(ctx context.Context, actor model.Actor) (*dto.UserResponse, error) {
	u, err := s.repo.User.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.FromContext(ctx, s.logger).Error("查询当前用户失败", zap.Uint("user_id", actor.ID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}
