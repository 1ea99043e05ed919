package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/storefront/config"
	_ "github.com/d60-Lab/storefront/docs"
	"github.com/d60-Lab/storefront/internal/api/handler"
	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

// SetupRouter 注册中间件与路由
func SetupRouter(cfg *config.Config, h *handler.Handler, auth service.AuthService) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(middleware.Sentry())
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	r.GET("/health", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// 目录读接口走 gzip
	catalog := v1.Group("", gzip.Gzip(gzip.DefaultCompression))
	{
		catalog.GET("/products", h.ListProducts)
		catalog.GET("/products/discounted", h.ListDiscounted)
		catalog.GET("/products/new", h.ListNew)
		catalog.GET("/products/top-ordered", h.ListTopOrdered)
		catalog.GET("/products/home/:collection", h.HomeSection)
		catalog.GET("/products/:id", h.GetProduct)
		catalog.GET("/products/:id/variants", h.ListVariants)
		catalog.GET("/categories", h.ListCategories)
		catalog.GET("/regions/wilayas", h.ListWilayas)
		catalog.GET("/regions/wilayas/:id/communes", h.ListCommunes)
	}

	// 每个路由独立计数，下单不消耗登录配额
	limit := func(next gin.HandlerFunc) []gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return []gin.HandlerFunc{next}
		}
		return []gin.HandlerFunc{middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst), next}
	}

	// 订单详情含顾客信息，只在后台开放
	v1.POST("/orders", limit(h.CreateOrder)...)

	admin := v1.Group("/admin")
	admin.POST("/login", limit(h.Login)...)

	secured := admin.Group("", middleware.AdminAuth(auth))
	{
		secured.GET("/orders", h.ListOrders)
		secured.POST("/orders/bulk-accept", h.BulkAccept)
		secured.POST("/orders/bulk-reject", h.BulkReject)
		secured.GET("/orders/:id", h.GetOrder)
		secured.POST("/orders/:id/accept", h.AcceptOrder)
		secured.POST("/orders/:id/reject", h.RejectOrder)
		secured.POST("/orders/:id/recompute", h.RecomputeOrder)
		secured.POST("/orders/:id/items", h.AddOrderItems)
		secured.PATCH("/orders/:id/items/:item_id", h.UpdateOrderItem)
		secured.DELETE("/orders/:id/items/:item_id", h.DeleteOrderItem)

		secured.POST("/products", h.CreateProduct)
		secured.PUT("/products/:id", h.UpdateProduct)
		secured.DELETE("/products/:id", h.DeleteProduct)
		secured.POST("/products/:id/stock", h.AdjustStock)
		secured.POST("/products/:id/variants", h.CreateVariant)
		secured.POST("/products/:id/images", h.AddImage)
		secured.POST("/categories", h.CreateCategory)
		secured.POST("/wilayas", h.CreateWilaya)
		secured.POST("/wilayas/:id/communes", h.CreateCommune)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	return r
}
