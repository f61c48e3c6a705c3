package model

import (
	baseModel "storefront/pkg/model"
)

// Category 商品分类
type Category struct {
	baseModel.BaseModel
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Product 商品
// Stock 永远不为负：扣减只通过条件 UPDATE 完成
type Product struct {
	baseModel.BaseModel
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Image       string    `json:"image"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	CategoryID  *string   `gorm:"type:uuid" json:"categoryId"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
