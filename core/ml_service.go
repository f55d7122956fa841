package core

import "context"

// Invoker 是托管推理端点的领域接口：把原始字节发给端点，返回端点的原始响应体。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service）实现
//   - 不做重试、不校验载荷；端点错误原样向上传播
//
// 实现：
//   - service.SageMakerInvoker：AWS SageMaker Runtime InvokeEndpoint
//   - service.HTTPInvoker：任意 HTTP 推理地址（POST 原始字节）
type Invoker interface {
	// Invoke 以 contentType 发送 body，返回响应体
	Invoke(ctx context.Context, contentType string, body []byte) ([]byte, error)
}

// MLService 是本地模型服务的领域接口。
//
// 使用场景：
//   - 加载训练产出的模型包，对外提供批量预测（service.LocalModel 实现）
type MLService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 释放资源
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// Instances 特征实例列表（每个实例是一个已缩放的特征向量，顺序与模型 Schema 一致）
	// 格式：[[f1, f2, f3, ...], [f1, f2, f3, ...], ...]
	Instances [][]float64 `json:"instances"`

	// Features 特征字典列表（可选，与 Instances 二选一），按模型 Schema 的列名取值
	// 格式：[{"alcohol": 0.1, "pH": 0.2}, ...]
	Features []map[string]float64 `json:"features,omitempty"`
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Predictions 预测结果列表（与请求实例一一对应）
	Predictions []float64 `json:"predictions"`

	// ModelVersion 模型版本（训练时的 run_id）
	ModelVersion string `json:"model_version,omitempty"`
}
