package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/rushteam/winekit/core"
)

// SageMakerRuntimeAPI 是 SageMakerInvoker 用到的 SageMaker Runtime 方法子集，便于测试替换
type SageMakerRuntimeAPI interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// SageMakerInvoker 通过 SageMaker Runtime InvokeEndpoint 调用托管端点。
//
// 凭证走 AWS SDK 的默认链（环境变量、共享配置、实例角色）；不做重试以外的任何处理，
// SDK 自带的重试策略保持默认。
type SageMakerInvoker struct {
	EndpointName string

	// Timeout 单次调用（含 SDK 重试）的超时；0 表示只受调用方 ctx 约束
	Timeout time.Duration

	client SageMakerRuntimeAPI
}

// NewSageMakerInvoker 用默认凭证链创建客户端，region 为空时使用 us-east-1
func NewSageMakerInvoker(ctx context.Context, endpointName, region string) (*SageMakerInvoker, error) {
	if endpointName == "" {
		return nil, fmt.Errorf("sagemaker endpoint name is required: %w", core.ErrInvalidConfig)
	}
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("sagemaker: load aws config: %v", err))
	}
	return NewSageMakerInvokerWithClient(endpointName, sagemakerruntime.NewFromConfig(cfg)), nil
}

// NewSageMakerInvokerWithClient 使用给定的 Runtime 客户端
func NewSageMakerInvokerWithClient(endpointName string, client SageMakerRuntimeAPI) *SageMakerInvoker {
	return &SageMakerInvoker{EndpointName: endpointName, client: client}
}

// Invoke 实现 core.Invoker
func (s *SageMakerInvoker) Invoke(ctx context.Context, contentType string, body []byte) ([]byte, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	out, err := s.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(s.EndpointName),
		ContentType:  aws.String(contentType),
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("sagemaker invoke %s: %w", s.EndpointName, err)
	}
	return out.Body, nil
}

var _ core.Invoker = (*SageMakerInvoker)(nil)
