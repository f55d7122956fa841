package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/winekit/core"
)

// HTTPInvoker 把原始字节 POST 到一个 HTTP 推理地址，原样返回响应体。
//
// 使用场景：serve-model 启动的本地模型服务、自建的兼容推理服务。
type HTTPInvoker struct {
	// URL 推理地址，如 "http://localhost:8081/invocations"
	URL string
	// Timeout 请求超时
	Timeout time.Duration
	// Auth 认证配置
	Auth *AuthConfig
	// httpClient 自定义 HTTP 客户端（可选）
	httpClient *http.Client
}

// NewHTTPInvoker 创建 HTTP 推理客户端
func NewHTTPInvoker(url string, opts ...HTTPInvokerOption) *HTTPInvoker {
	c := &HTTPInvoker{
		URL:     url,
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// HTTPInvokerOption 配置 HTTP 推理客户端
type HTTPInvokerOption func(*HTTPInvoker)

// WithHTTPInvokerTimeout 设置超时
func WithHTTPInvokerTimeout(timeout time.Duration) HTTPInvokerOption {
	return func(c *HTTPInvoker) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPInvokerAuth 设置认证
func WithHTTPInvokerAuth(auth *AuthConfig) HTTPInvokerOption {
	return func(c *HTTPInvoker) {
		c.Auth = auth
	}
}

// WithHTTPInvokerClient 设置自定义 HTTP 客户端
func WithHTTPInvokerClient(client *http.Client) HTTPInvokerOption {
	return func(c *HTTPInvoker) {
		c.httpClient = client
	}
}

// Invoke 实现 core.Invoker。非 2xx 响应返回 UNAVAILABLE 错误，消息中带上响应体。
func (c *HTTPInvoker) Invoke(ctx context.Context, contentType string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http invoker create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http invoker request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http invoker read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("http invoker error: status=%d, body=%s", resp.StatusCode, string(bodyBytes)))
	}
	return bodyBytes, nil
}

// addAuth 添加认证头
func (c *HTTPInvoker) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case "basic":
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

var _ core.Invoker = (*HTTPInvoker)(nil)
