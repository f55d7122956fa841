package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/dataset"
)

// CVResult 是 K 折交叉验证的结果。
//
// 注意：折是在训练集内部切的，只作为训练期诊断，不能代替测试集上的评估。
type CVResult struct {
	Folds    int       `json:"folds"`
	FoldRMSE []float64 `json:"fold_rmse"`
	MeanRMSE float64   `json:"mean_rmse"`
	StdRMSE  float64   `json:"std_rmse"`
}

// CrossValidate 按顺序（不打乱）把样本切成 k 折，每折用 newModel 创建的新模型
// 在其余折上训练、在该折上计算 RMSE。各折并发执行，结果按折序排列。
func CrossValidate(ctx context.Context, newModel Factory, X mat.Matrix, y []float64, k int) (*CVResult, error) {
	r, _ := X.Dims()
	if r != len(y) {
		return nil, fmt.Errorf("cross validate: features have %d rows, labels have %d: %w", r, len(y), core.ErrShapeMismatch)
	}
	folds, err := dataset.KFold(r, k)
	if err != nil {
		return nil, err
	}
	x := mat.DenseCopyOf(X)

	scores := make([]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	for i, fold := range folds {
		g.Go(func() error {
			xTrain, yTrain := dataset.SelectRows(x, y, fold.Train)
			xTest, yTest := dataset.SelectRows(x, y, fold.Test)
			m := newModel()
			if err := m.Fit(gctx, xTrain, yTrain); err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			pred, err := m.Predict(xTest)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			scores[i], err = RMSE(yTest, pred)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, std := stat.PopMeanStdDev(scores, nil)
	return &CVResult{
		Folds:    len(folds),
		FoldRMSE: scores,
		MeanRMSE: mean,
		StdRMSE:  std,
	}, nil
}
