package user

import (
	cartRepo "storefront/internal/domain/cart/repository"
	cartService "storefront/internal/domain/cart/service"
	"storefront/internal/domain/user/handler"
	"storefront/internal/domain/user/repository"
	"storefront/internal/domain/user/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，其他模块依赖本地用户记录
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	userService := service.NewUserService(userRepo)

	carts := cartService.NewCartService(cartRepo.NewCartRepository(ctx.DB))

	userHandler := handler.NewUserHandler(userService, carts)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	// 前端登录后通过 /api/auth/me 做身份同步
	g := r.Group("/api/auth")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("/me", h.Me)
		g.POST("/me", h.SyncMe)
		g.GET("/cart", h.MyCart)
	}
}
