package service

import (
	"context"
	"errors"

	"storefront/internal/domain/cart/model"
	"storefront/internal/domain/cart/repository"

	"gorm.io/gorm"
)

// ErrCartItemNotFound 购物车条目不存在
var ErrCartItemNotFound = errors.New("cart item not found")

// CartService 购物车服务接口
type CartService interface {
	ListItems(ctx context.Context, userID string) ([]model.CartItem, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// cartService 实现
type cartService struct {
	repo repository.CartRepository
}

// NewCartService 创建购物车服务
func NewCartService(repo repository.CartRepository) CartService {
	return &cartService{repo: repo}
}

func (s *cartService) ListItems(ctx context.Context, userID string) ([]model.CartItem, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	return s.repo.Upsert(ctx, &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	// 数量降到 0 等价于移除
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.repo.UpdateQuantity(ctx, userID, productID, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) error {
	err := s.repo.Remove(ctx, userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	return s.repo.ClearByUserID(ctx, nil, userID)
}
