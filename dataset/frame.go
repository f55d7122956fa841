// Package dataset 负责表格数据的读写、按行筛选以及训练/测试切分。
//
// 所有数值都以 float64 存放在 gonum 的 mat.Dense 中；特征表和标签表落盘时
// 不带表头和索引列，列顺序由 core.Schema 描述。
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/core"
)

// Frame 是读入内存的原始数据集：特征矩阵 + 目标列，已按 Schema 顺序排列。
// 读入后不再修改，筛选和切分都返回新的对象。
type Frame struct {
	Schema *core.Schema
	X      *mat.Dense
	Y      []float64
}

// NewFrame 用已有的特征矩阵和目标列创建 Frame，并校验行列数。
func NewFrame(schema *core.Schema, x *mat.Dense, y []float64) (*Frame, error) {
	r, c := x.Dims()
	if r != len(y) {
		return nil, fmt.Errorf("features have %d rows, target has %d: %w", r, len(y), core.ErrShapeMismatch)
	}
	if err := schema.CheckWidth(c); err != nil {
		return nil, err
	}
	return &Frame{Schema: schema, X: x, Y: y}, nil
}

// Rows 返回行数。
func (f *Frame) Rows() int { return len(f.Y) }

// Row 以 列名 -> 值 的形式返回第 i 行（含目标列），用于表达式筛选。
func (f *Frame) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(f.Schema.Features)+1)
	for j, c := range f.Schema.Features {
		row[c.Name] = f.X.At(i, j)
	}
	row[f.Schema.Target.Name] = f.Y[i]
	return row
}

// Select 按行下标取子集，返回新的特征矩阵和目标列。
func (f *Frame) Select(idx []int) (*mat.Dense, []float64, error) {
	if len(idx) == 0 {
		return nil, nil, core.ErrEmptyDataset
	}
	x, y := SelectRows(f.X, f.Y, idx)
	return x, y, nil
}

// Filter 保留 keep 返回 true 的行。keep 返回错误时立即终止。
func (f *Frame) Filter(keep func(row map[string]float64) (bool, error)) (*Frame, error) {
	idx := make([]int, 0, f.Rows())
	for i := 0; i < f.Rows(); i++ {
		ok, err := keep(f.Row(i))
		if err != nil {
			return nil, fmt.Errorf("filter row %d: %w", i, err)
		}
		if ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == f.Rows() {
		return f, nil
	}
	x, y, err := f.Select(idx)
	if err != nil {
		return nil, fmt.Errorf("filter removed every row: %w", err)
	}
	return &Frame{Schema: f.Schema, X: x, Y: y}, nil
}

// SelectRows 从任意矩阵按行下标取子集。idx 不能为空。
func SelectRows(x *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, c := x.Dims()
	sx := mat.NewDense(len(idx), c, nil)
	sy := make([]float64, len(idx))
	for i, src := range idx {
		sx.SetRow(i, x.RawRowView(src))
		sy[i] = y[src]
	}
	return sx, sy
}
