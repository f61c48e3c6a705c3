package repository

import (
	"errors"

	"storefront/internal/domain/product/model"

	"gorm.io/gorm"
)

// ErrInsufficientStock 条件扣减失败：库存不足
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductRepository 商品仓库接口
type ProductRepository interface {
	Create(product *model.Product) error
	GetByID(id string) (*model.Product, error)
	GetList(offset, limit int) ([]model.Product, int64, error)
	Update(product *model.Product) error
	Delete(id string) error

	// DecrementStockIfEnough 条件扣减库存，库存不足时不产生任何写入
	DecrementStockIfEnough(tx *gorm.DB, productID string, quantity int) error
}

// productRepository 实现
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) GetByID(id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Category").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetList 获取商品列表（分页）
func (r *productRepository) GetList(offset, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	if err := r.db.Model(&model.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Preload("Category").Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Update(product *model.Product) error {
	return r.db.Save(product).Error
}

func (r *productRepository) Delete(id string) error {
	return r.db.Delete(&model.Product{}, "id = ?", id).Error
}

// DecrementStockIfEnough 单条条件 UPDATE 扣减库存
// stock >= quantity 不满足时 RowsAffected 为 0，并发下不会出现超卖
// tx 传 nil 时使用仓库自身的连接
func (r *productRepository) DecrementStockIfEnough(tx *gorm.DB, productID string, quantity int) error {
	db := tx
	if db == nil {
		db = r.db
	}

	result := db.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
