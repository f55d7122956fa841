package model

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/feature"
)

const (
	// FileName 是模型文件在模型目录/模型包中的文件名
	FileName = "model.json"

	ArtifactKind    = "random_forest_regressor"
	ArtifactVersion = 1
)

// ErrCorruptArtifact 表示模型文件能解析，但树结构不完整或下标越界
var ErrCorruptArtifact = core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInvalidInput, "model: corrupt artifact")

// Artifact 是训练产出的模型文件：随机森林 + 训练时的 Schema + 可选的特征缩放器 + 交叉验证诊断。
//
// 由训练阶段写出一次，之后只读；评估阶段和推理服务各自重新加载。
type Artifact struct {
	Kind    string `json:"kind"`
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`

	Schema *core.Schema `json:"schema"`

	// Scaler 预处理阶段拟合的缩放器（feature.MarshalScaler 格式），
	// 推理服务接收原始特征时用它做同样的变换
	Scaler json.RawMessage `json:"scaler,omitempty"`

	CV     *CVResult              `json:"cv,omitempty"`
	Forest *RandomForestRegressor `json:"forest"`
}

// NewArtifact 包装训练好的森林
func NewArtifact(runID string, schema *core.Schema, forest *RandomForestRegressor) *Artifact {
	return &Artifact{
		Kind:    ArtifactKind,
		Version: ArtifactVersion,
		RunID:   runID,
		Schema:  schema,
		Forest:  forest,
	}
}

// SetScaler 嵌入缩放器
func (a *Artifact) SetScaler(s feature.Scaler) error {
	data, err := feature.MarshalScaler(s)
	if err != nil {
		return err
	}
	a.Scaler = data
	return nil
}

// FeatureScaler 返回嵌入的缩放器；没有嵌入时返回 (nil, nil)。
func (a *Artifact) FeatureScaler() (feature.Scaler, error) {
	if len(a.Scaler) == 0 {
		return nil, nil
	}
	return feature.UnmarshalScaler(a.Scaler)
}

// Validate 校验模型文件的完整性
func (a *Artifact) Validate() error {
	if a.Kind != ArtifactKind {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeNotSupported,
			fmt.Sprintf("model: unsupported artifact kind %q", a.Kind))
	}
	if a.Version != ArtifactVersion {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeNotSupported,
			fmt.Sprintf("model: unsupported artifact version %d", a.Version))
	}
	if a.Schema == nil {
		return fmt.Errorf("model artifact has no schema: %w", core.ErrInvalidParam)
	}
	if err := a.Schema.Validate(); err != nil {
		return err
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return fmt.Errorf("model artifact: %w", core.ErrNotFitted)
	}
	if err := a.Schema.CheckWidth(a.Forest.NFeatures); err != nil {
		return err
	}
	for i, tree := range a.Forest.Trees {
		if err := tree.Validate(a.Forest.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %v: %w", i, err, ErrCorruptArtifact)
		}
	}
	return nil
}

func (a *Artifact) Name() string { return a.Forest.Name() }

// Predict 对已缩放的特征矩阵做预测
func (a *Artifact) Predict(X mat.Matrix) ([]float64, error) {
	_, c := X.Dims()
	if err := a.Schema.CheckWidth(c); err != nil {
		return nil, err
	}
	return a.Forest.Predict(X)
}

// PredictRow 对单个已缩放的特征向量做预测
func (a *Artifact) PredictRow(features []float64) (float64, error) {
	return a.Forest.PredictRow(features)
}

// Save 把模型文件写到 path
func Save(path string, a *Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load 读取并校验模型文件
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
