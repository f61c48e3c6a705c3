package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "storefront/internal/domain/cart"
	_ "storefront/internal/domain/payment"
	_ "storefront/internal/domain/product"
	_ "storefront/internal/domain/user"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/pesapal"
	"storefront/internal/pkg/registry"
	"storefront/pkg/cache"
	"storefront/pkg/database"
	"storefront/pkg/logger"
)

func main() {
	// 1. 配置与日志
	config.LoadConfig()
	cfg := config.GlobalConfig
	logger.InitLogger(cfg.App.Debug)
	defer logger.Sync()

	// 2. 基础设施
	db := database.InitDatabase()
	redisClient := database.InitRedis()
	cacheService := cache.NewRedisCache(redisClient)

	gateway := pesapal.New(
		cfg.Pesapal.ConsumerKey,
		cfg.Pesapal.ConsumerSecret,
		pesapal.BaseURLForEnv(cfg.Pesapal.Env),
	)

	// 3. HTTP 引擎与全局中间件
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "env": cfg.App.Env})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 按优先级初始化业务模块
	moduleCtx := &registry.ModuleContext{
		DB:      db,
		Redis:   redisClient,
		Cache:   cacheService,
		Gateway: gateway,
		Router:  r,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("failed to init modules", zap.Error(err))
	}

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
	_ = redisClient.Close()
}
