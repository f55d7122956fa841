package proxy

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/winekit/core"
)

// NewModelRouter 把本地模型服务托管为 HTTP 端点：
//
//	POST /invocations  {"instances": [[...]]} 或 {"features": [{...}]} → {"predictions": [...]}
//	GET  /ping         健康检查
//
// 路径沿用托管推理容器的约定，HTTPInvoker 可以直接指向它。
func NewModelRouter(svc core.MLService, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = core.NewRunContext().Log()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ping", func(c *gin.Context) {
		if err := svc.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: core.ErrorCodeUnavailable})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.POST("/invocations", func(c *gin.Context) {
		var req core.MLPredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
			return
		}
		resp, err := svc.Predict(c.Request.Context(), &req)
		if err != nil {
			logger.Warn("invocation failed", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	return r
}
