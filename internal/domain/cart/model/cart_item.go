package model

import (
	productModel "storefront/internal/domain/product/model"
	baseModel "storefront/pkg/model"
)

// CartItem 购物车条目，每个用户每个商品一条
type CartItem struct {
	baseModel.BaseModel
	UserID    string                `gorm:"type:uuid;index;not null;uniqueIndex:idx_cart_user_product" json:"userId"`
	ProductID string                `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product" json:"productId"`
	Quantity  int                   `gorm:"not null;default:1" json:"quantity"`
	Product   *productModel.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
