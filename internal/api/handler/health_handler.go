package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/pkg/response"
)

// Health 健康检查：数据库不可用返回 503，缓存不可用标记为 degraded
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 503 {object} response.Response{data=map[string]string}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok", "cache": "ok"}
	if h.cachePing != nil {
		if err := h.cachePing(ctx); err != nil {
			status["status"] = "degraded"
			status["cache"] = err.Error()
		}
	}
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			status["status"] = "error"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, response.Response{Code: response.CodeInternal, Message: "database unavailable", Data: status})
			return
		}
	}
	response.Success(c, status)
}
