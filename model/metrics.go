package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/winekit/core"
)

func checkPair(yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%d labels but %d predictions: %w", len(yTrue), len(yPred), core.ErrShapeMismatch)
	}
	if len(yTrue) == 0 {
		return core.ErrEmptyDataset
	}
	return nil
}

// MSE 均方误差
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE 均方根误差
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE 平均绝对误差
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2 决定系数 1 - SS_res/SS_tot，最大为 1，可以为负。
// 标签为常数（SS_tot = 0）时：完全预测正确返回 1，否则返回 0。
func R2(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	_, variance := stat.PopMeanVariance(yTrue, nil)
	if variance == 0 {
		if floats.Distance(yTrue, yPred, 2) == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}
