package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Regressor 是回归模型的最小抽象：在特征矩阵上训练，对每一行输出一个连续值。
// 目前的实现是随机森林（RandomForestRegressor），交叉验证只依赖此接口。
type Regressor interface {
	Name() string
	Fit(ctx context.Context, X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
}

// RowPredictor 对单个（已缩放的）特征向量做预测，推理服务使用。
type RowPredictor interface {
	PredictRow(features []float64) (float64, error)
}

// Factory 创建一个未训练的 Regressor，交叉验证的每一折都用一个新实例。
type Factory func() Regressor
