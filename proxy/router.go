package proxy

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/winekit/core"
)

// ErrorResponse 是 HTTP 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// metrics 代理的请求指标，注册到调用方传入的 Registerer
type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "winekit",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Requests handled by the inference proxy, by route and status code.",
		}, []string{"route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "winekit",
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "Request latency of the inference proxy.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *metrics) middleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// NewRouter 用 gin 托管代理：
//
//	POST /predict  Event JSON → Response JSON
//	GET  /healthz
//	GET  /metrics  Prometheus 指标（reg 为 nil 时新建独立的 Registry）
func NewRouter(h *Handler, reg *prometheus.Registry) *gin.Engine {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newMetrics(reg)

	r := gin.New()
	r.Use(gin.Recovery(), m.middleware)
	r.GET("/healthz", handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.POST("/predict", func(c *gin.Context) {
		var ev Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
			return
		}
		resp, err := h.Handle(c.Request.Context(), ev)
		if err != nil {
			h.Logger.Warn("predict failed", "error", err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// writeError 把领域错误映射为 HTTP 状态码
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, core.ErrorCodeInternalError
	switch {
	case core.IsInvalidInput(err):
		status, code = http.StatusBadRequest, core.ErrorCodeInvalidInput
	case core.IsShapeMismatch(err):
		status, code = http.StatusBadRequest, core.ErrorCodeShapeMismatch
	case core.IsEmptyDataset(err):
		status, code = http.StatusBadRequest, core.ErrorCodeEmptyDataset
	case core.IsUnavailable(err):
		status, code = http.StatusBadGateway, core.ErrorCodeUnavailable
	default:
		var de *core.DomainError
		if errors.As(err, &de) {
			code = de.Code
		}
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
