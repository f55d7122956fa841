// Package service 提供推理相关的基础设施实现：
//
//   - SageMakerInvoker / HTTPInvoker：实现 core.Invoker，把原始字节转发给托管推理端点
//   - LocalModel：实现 core.MLService，加载训练产出的模型包做本地预测
package service

// InvokerType 推理端点类型
type InvokerType string

const (
	InvokerTypeSageMaker InvokerType = "sagemaker" // AWS SageMaker Runtime 端点
	InvokerTypeHTTP      InvokerType = "http"      // 任意 HTTP 推理地址
)

const (
	// DefaultRegion 托管端点默认所在区域
	DefaultRegion = "us-east-1"

	// ContentTypeImage 代理转发给端点的内容类型
	ContentTypeImage = "application/x-image"
)

// InvokerConfig 推理端点配置
type InvokerConfig struct {
	// Type 端点类型
	Type InvokerType `yaml:"type" json:"type" validate:"oneof=sagemaker http"`

	// EndpointName SageMaker 端点名（Type=sagemaker 时必填）
	EndpointName string `yaml:"endpoint_name" json:"endpoint_name" validate:"required_if=Type sagemaker"`

	// Region SageMaker 端点区域，默认 us-east-1
	Region string `yaml:"region" json:"region"`

	// URL HTTP 推理地址（Type=http 时必填），例如 "http://localhost:8081/invocations"
	URL string `yaml:"url" json:"url" validate:"required_if=Type http"`

	// Timeout 超时时间（秒），0 表示 30 秒
	Timeout int `yaml:"timeout" json:"timeout" validate:"gte=0"`

	// Auth 认证信息（可选，仅 HTTP 端点使用）
	Auth *AuthConfig `yaml:"auth" json:"auth"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string `yaml:"type" json:"type" validate:"omitempty,oneof=basic bearer api_key"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Token    string `yaml:"token" json:"token"`
	APIKey   string `yaml:"api_key" json:"api_key"`
}
