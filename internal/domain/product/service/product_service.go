package service

import (
	"errors"

	"storefront/internal/domain/product/model"
	"storefront/internal/domain/product/repository"

	"gorm.io/gorm"
)

// ErrProductNotFound 商品不存在
var ErrProductNotFound = errors.New("product not found")

// ProductInput 商品创建/更新字段
type ProductInput struct {
	Title       string
	Description string
	Price       float64
	Image       string
	Stock       int
	CategoryID  *string
}

// ProductService 商品服务接口
type ProductService interface {
	GetProducts(page, limit int) ([]model.Product, int64, error)
	GetProduct(id string) (*model.Product, error)
	CreateProduct(in ProductInput) (*model.Product, error)
	UpdateProduct(id string, in ProductInput) (*model.Product, error)
	DeleteProduct(id string) error
}

// productService 实现
type productService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// GetProducts 获取商品列表（分页）
func (s *productService) GetProducts(page, limit int) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit
	return s.repo.GetList(offset, limit)
}

// GetProduct 获取单个商品
func (s *productService) GetProduct(id string) (*model.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct 创建商品
func (s *productService) CreateProduct(in ProductInput) (*model.Product, error) {
	product := &model.Product{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct 更新商品
func (s *productService) UpdateProduct(id string, in ProductInput) (*model.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	product.Title = in.Title
	product.Description = in.Description
	product.Price = in.Price
	product.Image = in.Image
	product.Stock = in.Stock
	product.CategoryID = in.CategoryID

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct 删除商品
func (s *productService) DeleteProduct(id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return s.repo.Delete(id)
}
