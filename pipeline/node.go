package pipeline

import (
	"context"

	"github.com/rushteam/winekit/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindPreprocess Kind = "preprocess" // 预处理：切分、缩放、写出四张表
	KindTrain      Kind = "train"      // 训练：拟合模型、交叉验证、写出模型包
	KindEvaluate   Kind = "evaluate"   // 评估：加载模型包、在测试集上计算指标
)

// State 是阶段之间传递的产物位置。
// 每个阶段只读取上游写好的字段，并补充自己的产物；数据本身都在文件系统上。
type State struct {
	TrainDir   string // 训练表所在目录
	TestDir    string // 测试表所在目录
	ModelDir   string // 模型目录（model.json / model.tar.gz）
	BundlePath string // 模型包路径
	ReportPath string // 评估报告路径

	// Metrics 各阶段产出的数值指标，例如 cv_rmse、r2、RSME
	Metrics map[string]float64
}

// Clone 返回副本（Metrics 深拷贝），Node 在副本上补充自己的产物
func (s *State) Clone() *State {
	out := *s
	out.Metrics = make(map[string]float64, len(s.Metrics))
	for k, v := range s.Metrics {
		out.Metrics[k] = v
	}
	return &out
}

// SetMetric 记录一个指标
func (s *State) SetMetric(name string, v float64) {
	if s.Metrics == nil {
		s.Metrics = make(map[string]float64)
	}
	s.Metrics[name] = v
}

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 State -> 输出 State”的形态，阶段之间只通过 State 和文件系统耦合。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rc *core.RunContext,
		state *State,
	) (*State, error)
}
