package service

import (
	"errors"

	"storefront/internal/domain/user/model"
	"storefront/internal/domain/user/repository"

	"gorm.io/gorm"
)

// ErrUserNotFound 本地用户记录不存在（身份同步尚未发生）
var ErrUserNotFound = errors.New("user not found")

// SyncInput 身份同步字段，来自 Clerk 的用户资料
type SyncInput struct {
	Email        string
	FirstName    string
	LastName     string
	ProfileImage string
	Phone        string
}

// UserService 用户服务接口
type UserService interface {
	SyncUser(clerkID string, in SyncInput) (*model.User, error)
	GetByClerkID(clerkID string) (*model.User, error)
}

// userService 实现
type userService struct {
	repo repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// SyncUser 按 Clerk 用户 ID upsert 本地用户记录
// 前端登录后调用，后续的下单流程依赖这条记录已存在
func (s *userService) SyncUser(clerkID string, in SyncInput) (*model.User, error) {
	user, err := s.repo.GetByClerkID(clerkID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// 不存在则创建
		user = &model.User{
			ClerkID:      clerkID,
			Email:        in.Email,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			ProfileImage: in.ProfileImage,
			Phone:        in.Phone,
		}
		if err := s.repo.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}

	// 已存在则更新资料
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.ProfileImage = in.ProfileImage
	user.Phone = in.Phone
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByClerkID 获取本地用户
func (s *userService) GetByClerkID(clerkID string) (*model.User, error) {
	user, err := s.repo.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
