package repository

import (
	"context"

	"storefront/internal/domain/cart/model"

	"gorm.io/gorm"
)

// CartRepository 购物车仓库接口
type CartRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]model.CartItem, error)
	Upsert(ctx context.Context, item *model.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	Remove(ctx context.Context, userID, productID string) error

	// ClearByUserID 清空用户购物车。tx 非 nil 时在事务内执行（下单成功后调用）
	ClearByUserID(ctx context.Context, tx *gorm.DB, userID string) error
}

// cartRepository 实现
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) ListByUserID(ctx context.Context, userID string) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	return items, err
}

// Upsert 新增条目；已存在时累加数量
func (r *cartRepository) Upsert(ctx context.Context, item *model.CartItem) error {
	var existing model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
		First(&existing).Error

	if err == nil {
		return r.db.WithContext(ctx).Model(&existing).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		UpdateColumn("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, userID, productID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) ClearByUserID(ctx context.Context, tx *gorm.DB, userID string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
}
