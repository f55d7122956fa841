package feature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/winekit/core"
)

// Scaler 是按列缩放特征的统一接口：只在训练集上 Fit，对训练集和测试集做同样的 Transform。
type Scaler interface {
	// Kind 返回缩放器类型名（"standard" / "minmax"），用于序列化
	Kind() string
	// Fit 从 X 的每一列学习缩放参数
	Fit(X mat.Matrix) error
	// Transform 用已学到的参数变换 X，返回新矩阵
	Transform(X mat.Matrix) (*mat.Dense, error)
	// TransformRow 变换单行（推理时使用），dst 与 src 可以是同一个切片
	TransformRow(dst, src []float64) error
}

// StandardScaler Z-score 标准化（Standardization）
// 公式: z = (x - μ) / σ
// 特点: 均值变为 0，标准差变为 1；σ 使用总体方差（除以 n），方差为 0 的列 σ 取 1
type StandardScaler struct {
	Mean     []float64 `json:"mean"`      // 每列均值
	Var      []float64 `json:"var"`       // 每列总体方差
	Scale    []float64 `json:"scale"`     // 每列缩放系数 σ
	NSamples int       `json:"n_samples"` // Fit 时的样本数
}

// NewStandardScaler 创建 Z-score 标准化器
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

func (s *StandardScaler) Kind() string { return KindStandard }

// Fit 逐列计算均值与总体方差
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 {
		return core.ErrEmptyDataset
	}
	s.Mean = make([]float64, c)
	s.Var = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		s.Mean[j], s.Var[j] = stat.PopMeanVariance(col, nil)
		s.Scale[j] = nonZeroScale(math.Sqrt(s.Var[j]))
	}
	s.NSamples = r
	return nil
}

// Transform 标准化矩阵
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	return transformRows(s, X)
}

// TransformRow 标准化单行
func (s *StandardScaler) TransformRow(dst, src []float64) error {
	if s.Scale == nil {
		return fmt.Errorf("standard scaler: %w", core.ErrNotFitted)
	}
	if len(src) != len(s.Mean) || len(dst) != len(src) {
		return fmt.Errorf("standard scaler fitted on %d columns, got %d: %w", len(s.Mean), len(src), core.ErrShapeMismatch)
	}
	for j, v := range src {
		dst[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return nil
}

// MinMaxScaler Min-Max 归一化
// 公式: x' = (x - min) / (max - min)
// 特点: 将训练集的值缩放到 [0, 1] 区间；max == min 的列分母取 1
type MinMaxScaler struct {
	Min []float64 `json:"min"` // 每列最小值
	Max []float64 `json:"max"` // 每列最大值
}

// NewMinMaxScaler 创建 Min-Max 归一化器
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

func (n *MinMaxScaler) Kind() string { return KindMinMax }

// Fit 逐列记录最小值与最大值
func (n *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 {
		return core.ErrEmptyDataset
	}
	n.Min = make([]float64, c)
	n.Max = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		n.Min[j] = floats.Min(col)
		n.Max[j] = floats.Max(col)
	}
	return nil
}

// Transform 归一化矩阵
func (n *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	return transformRows(n, X)
}

// TransformRow 归一化单行
func (n *MinMaxScaler) TransformRow(dst, src []float64) error {
	if n.Min == nil {
		return fmt.Errorf("minmax scaler: %w", core.ErrNotFitted)
	}
	if len(src) != len(n.Min) || len(dst) != len(src) {
		return fmt.Errorf("minmax scaler fitted on %d columns, got %d: %w", len(n.Min), len(src), core.ErrShapeMismatch)
	}
	for j, v := range src {
		dst[j] = (v - n.Min[j]) / nonZeroScale(n.Max[j]-n.Min[j])
	}
	return nil
}

func transformRows(s Scaler, X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, core.ErrEmptyDataset
	}
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		if err := s.TransformRow(row, row); err != nil {
			return nil, err
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func nonZeroScale(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

// FitTransform 在 X 上 Fit 后返回变换结果
func FitTransform(s Scaler, X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
