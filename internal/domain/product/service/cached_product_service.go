package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/product/model"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	"go.uber.org/zap"
)

// CachedProductService 带缓存的商品服务
// 商品读多写少，列表和详情走 Redis，写操作失效相关缓存
type CachedProductService struct {
	inner ProductService
	cache cache.CacheService
}

// NewCachedProductService 创建带缓存的商品服务
func NewCachedProductService(inner ProductService, cache cache.CacheService) ProductService {
	return &CachedProductService{
		inner: inner,
		cache: cache,
	}
}

// 缓存键常量
const (
	ProductCacheKeyPrefix     = "product:"
	ProductListCacheKeyPrefix = "product_list:"
	ProductCacheTTL           = time.Hour * 2
	ProductListCacheTTL       = time.Minute * 30
)

func (s *CachedProductService) getProductCacheKey(id string) string {
	return ProductCacheKeyPrefix + id
}

func (s *CachedProductService) getProductListCacheKey(page, limit int) string {
	return fmt.Sprintf("%s%d:%d", ProductListCacheKeyPrefix, page, limit)
}

// invalidateProductCache 清除商品相关缓存
func (s *CachedProductService) invalidateProductCache(ctx context.Context, productID string) {
	if err := s.cache.Delete(ctx, s.getProductCacheKey(productID)); err != nil {
		logger.Log.Warn("failed to invalidate product cache", zap.String("product_id", productID), zap.Error(err))
	}

	// 清除列表缓存（所有页）
	if err := s.cache.InvalidatePattern(ctx, ProductListCacheKeyPrefix+"*"); err != nil {
		logger.Log.Warn("failed to invalidate product list cache", zap.Error(err))
	}
}

// GetProducts 获取商品列表（带缓存）
func (s *CachedProductService) GetProducts(page, limit int) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := s.getProductListCacheKey(page, limit)

	var cached struct {
		Products []model.Product `json:"products"`
		Total    int64           `json:"total"`
	}
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached.Products, cached.Total, nil
	}

	// 缓存未命中，从数据库获取
	products, total, err := s.inner.GetProducts(page, limit)
	if err != nil {
		return nil, 0, err
	}

	cached.Products = products
	cached.Total = total
	if err := s.cache.Set(ctx, cacheKey, cached, ProductListCacheTTL); err != nil {
		// 缓存失败不影响业务逻辑
		logger.Log.Warn("failed to cache product list", zap.Error(err))
	}

	return products, total, nil
}

// GetProduct 获取单个商品（带缓存）
func (s *CachedProductService) GetProduct(id string) (*model.Product, error) {
	ctx := context.Background()
	cacheKey := s.getProductCacheKey(id)

	var product model.Product
	if err := s.cache.Get(ctx, cacheKey, &product); err == nil {
		return &product, nil
	}

	fresh, err := s.inner.GetProduct(id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, fresh, ProductCacheTTL); err != nil {
		logger.Log.Warn("failed to cache product", zap.String("product_id", id), zap.Error(err))
	}

	return fresh, nil
}

// CreateProduct 创建商品（失效列表缓存）
func (s *CachedProductService) CreateProduct(in ProductInput) (*model.Product, error) {
	product, err := s.inner.CreateProduct(in)
	if err != nil {
		return nil, err
	}
	s.invalidateProductCache(context.Background(), product.ID)
	return product, nil
}

// UpdateProduct 更新商品（带缓存失效）
func (s *CachedProductService) UpdateProduct(id string, in ProductInput) (*model.Product, error) {
	product, err := s.inner.UpdateProduct(id, in)
	if err != nil {
		return nil, err
	}
	s.invalidateProductCache(context.Background(), id)
	return product, nil
}

// DeleteProduct 删除商品（带缓存失效）
func (s *CachedProductService) DeleteProduct(id string) error {
	if err := s.inner.DeleteProduct(id); err != nil {
		return err
	}
	s.invalidateProductCache(context.Background(), id)
	return nil
}
