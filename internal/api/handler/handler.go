package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

// Pinger 健康检查探针
type Pinger func(ctx context.Context) error

// Handler 聚合所有 HTTP 处理器依赖
type Handler struct {
	orderService   service.OrderService
	catalogService service.CatalogService
	authService    service.AuthService
	dbPing         Pinger
	cachePing      Pinger
}

// NewHandler 创建 Handler，探针可为 nil
func NewHandler(orders service.OrderService, catalog service.CatalogService, auth service.AuthService, dbPing, cachePing Pinger) *Handler {
	return &Handler{
		orderService:   orders,
		catalogService: catalog,
		authService:    auth,
		dbPing:         dbPing,
		cachePing:      cachePing,
	}
}

// writeError 把服务层错误映射为 HTTP 响应
func writeError(c *gin.Context, err error) {
	if ve, ok := service.AsValidation(err); ok {
		response.ValidationFailed(c, ve.Fields)
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOrderLocked),
		errors.Is(err, service.ErrProductInUse):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// pathID 解析路径中的数字 ID，失败时直接写 400
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ValidationFailed(c, map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, def int, fields map[string]string) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fields[name] = "must be an integer"
		return def
	}
	return v
}
