package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），底层通过 errors.As 识别被 %w 包装的错误
//
// 使用场景：
//   - 数据集错误：文件缺失、数值无法解析、列缺失
//   - 模型错误：特征与标签行数不一致、模型未训练
//   - 存储错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "SHAPE_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "dataset", "model", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 按 Module + Code 比较，便于 errors.Is(err, core.ErrShapeMismatch)。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeShapeMismatch = "SHAPE_MISMATCH" // 矩阵/向量维度不一致
	ErrorCodeNotFitted     = "NOT_FITTED"     // 模型/变换器尚未 Fit
	ErrorCodeEmptyDataset  = "EMPTY_DATASET"  // 没有可用的数据行
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleConfig   = "config"   // 阶段配置与流水线配置
	ModuleDataset  = "dataset"  // 数据集读写与切分
	ModuleFeature  = "feature"  // 特征缩放
	ModuleModel    = "model"    // 模型训练与预测
	ModuleArtifact = "artifact" // 模型包与评估报告
	ModuleStore    = "store"    // 存储模块
	ModuleService  = "service"  // 推理服务模块
)

// 各模块常用的哨兵错误，具体错误通过 fmt.Errorf("...: %w", ErrXXX) 包装补充上下文。
// 同一错误代码在不同模块各有一个哨兵，errors.Is 按模块区分，IsInvalidInput 等按代码跨模块判断。
var (
	ErrInvalidInput   = NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "dataset: invalid input")
	ErrEmptyDataset   = NewDomainError(ModuleDataset, ErrorCodeEmptyDataset, "dataset: no rows")
	ErrInvalidConfig  = NewDomainError(ModuleConfig, ErrorCodeInvalidInput, "config: invalid config")
	ErrInvalidParam   = NewDomainError(ModuleModel, ErrorCodeInvalidInput, "model: invalid parameter")
	ErrShapeMismatch  = NewDomainError(ModuleModel, ErrorCodeShapeMismatch, "model: shape mismatch")
	ErrNotFitted      = NewDomainError(ModuleModel, ErrorCodeNotFitted, "model: not fitted")
	ErrInvalidRequest = NewDomainError(ModuleService, ErrorCodeInvalidInput, "service: invalid request")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsEmptyDataset 检查错误是否为 EMPTY_DATASET
func IsEmptyDataset(err error) bool {
	return hasCode(err, ErrorCodeEmptyDataset)
}

// IsShapeMismatch 检查错误是否为 SHAPE_MISMATCH
func IsShapeMismatch(err error) bool {
	return hasCode(err, ErrorCodeShapeMismatch)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
