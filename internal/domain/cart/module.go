package cart

import (
	"storefront/internal/domain/cart/handler"
	"storefront/internal/domain/cart/repository"
	"storefront/internal/domain/cart/service"
	userRepo "storefront/internal/domain/user/repository"
	userService "storefront/internal/domain/user/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CartModule 购物车模块
type CartModule struct{}

func init() {
	registry.Register(&CartModule{})
}

func (m *CartModule) Name() string {
	return "cart"
}

func (m *CartModule) Priority() int {
	// 依赖用户模块
	return 10
}

func (m *CartModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	cRepo := repository.NewCartRepository(ctx.DB)
	cService := service.NewCartService(cRepo)

	uService := userService.NewUserService(userRepo.NewUserRepository(ctx.DB))

	cHandler := handler.NewCartHandler(cService, uService)

	// 2. 路由注册
	setupRoutes(ctx.Router, cHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CartHandler) {
	g := r.Group("/api/cart")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.ListItems)
		g.POST("/items", h.AddItem)
		g.PUT("/items/:productId", h.UpdateItem)
		g.DELETE("/items/:productId", h.RemoveItem)
		g.DELETE("", h.Clear)
	}
}
