package product

import (
	"storefront/internal/domain/product/handler"
	"storefront/internal/domain/product/repository"
	"storefront/internal/domain/product/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// ProductModule 商品模块
type ProductModule struct{}

func init() {
	registry.Register(&ProductModule{})
}

func (m *ProductModule) Name() string {
	return "product"
}

func (m *ProductModule) Priority() int {
	return 5
}

func (m *ProductModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	pRepo := repository.NewProductRepository(ctx.DB)
	pService := service.NewProductService(pRepo)

	// 商品读走 Redis 缓存
	if ctx.Cache != nil {
		pService = service.NewCachedProductService(pService, ctx.Cache)
	}

	pHandler := handler.NewProductHandler(pService)

	// 2. 路由注册
	setupRoutes(ctx.Router, pHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ProductHandler) {
	g := r.Group("/api/products")

	// 公开路由
	g.GET("", h.GetProducts)
	g.GET("/:id", h.GetProduct)

	// 需要鉴权的管理接口
	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("", h.CreateProduct)
		auth.PUT("/:id", h.UpdateProduct)
		auth.DELETE("/:id", h.DeleteProduct)
	}
}
