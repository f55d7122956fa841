// Package proxy 是推理代理：接收 base64 编码的图片，解码后转发给托管端点，
// 把端点返回的 JSON 原样包进 {"payload": ...}。
//
// Handler 与宿主无关；cmd/inference-lambda 用 Lambda 托管，NewRouter 用 gin 托管。
package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/service"
)

// Event 是代理的输入事件
type Event struct {
	Base64Image string `json:"base64Image"`
}

// Response 是代理的输出，Payload 为端点返回的 JSON
type Response struct {
	Payload json.RawMessage `json:"payload"`
}

// Handler 把事件转发给 Invoker。每次调用独立，无状态，可并发使用。
type Handler struct {
	Invoker     core.Invoker
	ContentType string
	Logger      *slog.Logger
}

// NewHandler 创建代理，内容类型默认 application/x-image
func NewHandler(inv core.Invoker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = core.NewRunContext().Log()
	}
	return &Handler{Invoker: inv, ContentType: service.ContentTypeImage, Logger: logger}
}

// Handle 解码 → 转发 → 解析。除解码失败（INVALID_INPUT）外不做其他校验，空内容同样转发；
// 端点错误原样向上传播，不重试。
func (h *Handler) Handle(ctx context.Context, ev Event) (Response, error) {
	img, err := base64.StdEncoding.DecodeString(ev.Base64Image)
	if err != nil {
		return Response{}, fmt.Errorf("decode base64Image: %v: %w", err, core.ErrInvalidRequest)
	}
	h.Logger.Debug("invoking endpoint", "bytes", len(img), "content_type", h.ContentType)

	body, err := h.Invoker.Invoke(ctx, h.ContentType, img)
	if err != nil {
		return Response{}, err
	}
	if !json.Valid(body) {
		return Response{}, core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError,
			fmt.Sprintf("proxy: endpoint returned non-JSON body (%d bytes)", len(body)))
	}
	return Response{Payload: json.RawMessage(body)}, nil
}
