package service

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/feature"
	"github.com/rushteam/winekit/model"
)

// LocalModel 在进程内加载训练产出的模型，实现 core.MLService。
//
// Instances 视为已缩放的特征向量，直接送入模型；
// Features 视为原始特征（按 Schema 列名取值），先用模型包中嵌入的缩放器变换。
type LocalModel struct {
	art    *model.Artifact
	scaler feature.Scaler
}

// NewLocalModel 包装已加载的模型
func NewLocalModel(art *model.Artifact) (*LocalModel, error) {
	if err := art.Validate(); err != nil {
		return nil, err
	}
	sc, err := art.FeatureScaler()
	if err != nil {
		return nil, err
	}
	return &LocalModel{art: art, scaler: sc}, nil
}

// LoadLocalModel 从模型包（.tar.gz）或模型文件加载
func LoadLocalModel(ctx context.Context, path string) (*LocalModel, error) {
	art, err := artifact.LoadModel(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewLocalModel(art)
}

// Predict 实现 core.MLService
func (m *LocalModel) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || (len(req.Instances) == 0 && len(req.Features) == 0) {
		return nil, fmt.Errorf("instances or features are required: %w", core.ErrInvalidRequest)
	}
	rows := req.Instances
	if len(rows) == 0 {
		var err error
		if rows, err = m.rowsFromFeatures(req.Features); err != nil {
			return nil, err
		}
	}

	width := m.art.Schema.NumFeatures()
	preds := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != width {
			return nil, fmt.Errorf("instance %d has %d features, model expects %d: %w", i, len(row), width, core.ErrShapeMismatch)
		}
		p, err := m.art.PredictRow(row)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return &core.MLPredictResponse{Predictions: preds, ModelVersion: m.art.RunID}, nil
}

// rowsFromFeatures 按 Schema 列序取值，缺列返回 INVALID_INPUT；有缩放器时整体变换
func (m *LocalModel) rowsFromFeatures(features []map[string]float64) ([][]float64, error) {
	names := m.art.Schema.FeatureNames()
	raw := mat.NewDense(len(features), len(names), nil)
	for i, f := range features {
		for j, name := range names {
			v, ok := f[name]
			if !ok {
				return nil, fmt.Errorf("features[%d] is missing %q: %w", i, name, core.ErrInvalidRequest)
			}
			raw.Set(i, j, v)
		}
	}
	x := raw
	if m.scaler != nil {
		var err error
		if x, err = m.scaler.Transform(raw); err != nil {
			return nil, err
		}
	}
	rows := make([][]float64, len(features))
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows, nil
}

// Health 模型已加载即健康
func (m *LocalModel) Health(ctx context.Context) error {
	if m.art == nil {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: model not loaded")
	}
	return nil
}

// Close 无外部资源
func (m *LocalModel) Close(ctx context.Context) error { return nil }

// ModelVersion 返回训练时的 run_id
func (m *LocalModel) ModelVersion() string { return m.art.RunID }

var _ core.MLService = (*LocalModel)(nil)
