package core

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultSeed 是切分、自助采样和特征抽样共用的默认随机种子。
const DefaultSeed int64 = 5590

// RunContext 承载一次流水线运行的显式配置，贯穿 Preprocess → Train → Evaluate 透传。
//
// 日志、存储等依赖都由入口（cmd）构建后放进来，生命周期限定在一次运行内，
// 各阶段不持有任何包级别的全局对象。
type RunContext struct {
	// RunID 是本次运行的唯一标识，用于运行登记和日志关联
	RunID string

	// Seed 是本次运行的随机种子
	Seed int64

	// Logger 结构化日志；为 nil 时丢弃日志
	Logger *slog.Logger

	// Store 运行登记存储（可选）；为 nil 时不登记
	Store Store
}

// RunOption 配置 RunContext
type RunOption func(*RunContext)

// WithRunID 指定运行 ID（默认生成 UUID）
func WithRunID(id string) RunOption {
	return func(rc *RunContext) { rc.RunID = id }
}

// WithSeed 指定随机种子
func WithSeed(seed int64) RunOption {
	return func(rc *RunContext) { rc.Seed = seed }
}

// WithLogger 指定日志
func WithLogger(l *slog.Logger) RunOption {
	return func(rc *RunContext) { rc.Logger = l }
}

// WithStore 指定运行登记存储
func WithStore(s Store) RunOption {
	return func(rc *RunContext) { rc.Store = s }
}

// NewRunContext 创建运行上下文。
func NewRunContext(opts ...RunOption) *RunContext {
	rc := &RunContext{Seed: DefaultSeed}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}
	return rc
}

// OrDefault 在 rc 为 nil 时返回一个默认运行上下文（默认种子、新 RunID、不记日志、不登记）。
// 各阶段的 Run 入口先调用它，之后可以放心访问字段。
func (rc *RunContext) OrDefault() *RunContext {
	if rc == nil {
		return NewRunContext()
	}
	return rc
}

// Log 返回带 run_id 属性的日志；未配置时返回丢弃型日志，调用方无需判空。
func (rc *RunContext) Log() *slog.Logger {
	if rc == nil || rc.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rc.Logger.With("run_id", rc.RunID)
}
