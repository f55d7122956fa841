package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/winekit/core"
)

// NewInvoker 根据配置创建推理端点客户端（工厂方法）。
// 返回 core.Invoker 接口。
func NewInvoker(ctx context.Context, config *InvokerConfig) (core.Invoker, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	switch config.Type {
	case InvokerTypeSageMaker:
		inv, err := NewSageMakerInvoker(ctx, config.EndpointName, config.Region)
		if err != nil {
			return nil, err
		}
		inv.Timeout = timeout
		return inv, nil

	case InvokerTypeHTTP:
		opts := []HTTPInvokerOption{
			WithHTTPInvokerTimeout(timeout),
		}
		if config.Auth != nil {
			opts = append(opts, WithHTTPInvokerAuth(config.Auth))
		}
		return NewHTTPInvoker(config.URL, opts...), nil

	default:
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported,
			fmt.Sprintf("service: unsupported invoker type %q", config.Type))
	}
}

// ValidateConfig 验证端点配置
func ValidateConfig(config *InvokerConfig) error {
	if config == nil {
		return fmt.Errorf("invoker config is required: %w", core.ErrInvalidConfig)
	}
	return core.ValidateConfig(config)
}
