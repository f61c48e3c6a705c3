package payment

import (
	cartRepo "storefront/internal/domain/cart/repository"
	cartService "storefront/internal/domain/cart/service"
	"storefront/internal/domain/payment/handler"
	"storefront/internal/domain/payment/repository"
	"storefront/internal/domain/payment/service"
	productRepo "storefront/internal/domain/product/repository"
	productService "storefront/internal/domain/product/service"
	userRepo "storefront/internal/domain/user/repository"
	userService "storefront/internal/domain/user/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PaymentModule 支付模块：结算编排、网关对接、IPN 对账
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖用户、商品、购物车模块
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	pRepo := productRepo.NewProductRepository(ctx.DB)
	payRepo := repository.NewPaymentRepository(ctx.DB, pRepo)

	uService := userService.NewUserService(userRepo.NewUserRepository(ctx.DB))
	prodService := productService.NewProductService(pRepo)
	cService := cartService.NewCartService(cartRepo.NewCartRepository(ctx.DB))

	ipnStore := service.NewIPNStore(ctx.Cache)
	checkout := service.NewCheckoutService(payRepo, uService, prodService, cService, ctx.Gateway, ipnStore)
	reconcile := service.NewReconcileService(payRepo, ctx.Gateway)

	pHandler := handler.NewPaymentHandler(checkout, reconcile)

	// 2. 路由注册
	setupRoutes(ctx.Router, pHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler) {
	g := r.Group("/api/payments")
	{
		// IPN 是网关回调，不能挂鉴权
		g.GET("/ipn", h.IPN)

		authed := g.Group("")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.POST("/register-ipn", h.RegisterIPN)
			authed.POST("/checkout", h.Checkout)
			authed.POST("/orders/:orderId/retry", h.RetrySubmission)
			authed.GET("/status/:orderTrackingId", h.Status)
			authed.GET("/orders", h.ListOrders)
		}
	}
}
