package model

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/feature"
	"github.com/rushteam/winekit/internal/testutil"
)

func wineXY(n int, seed int64) (*mat.Dense, []float64) {
	rows := testutil.WineRows(n, seed)
	x := mat.NewDense(n, 11, nil)
	y := make([]float64, n)
	for i, r := range rows {
		x.SetRow(i, r[:11])
		y[i] = r[11]
	}
	return x, y
}

func TestParseMaxFeatures(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int
	}{
		{"sqrt", 3},
		{"SQRT", 3},
		{"log2", 3},
		{"auto", 11},
		{"none", 11},
		{"", 11},
		{"1.0", 11},
		{"0.5", 5},
		{"0.01", 1},
		{"4", 4},
		{"40", 11},
	} {
		got, err := ParseMaxFeatures(tc.in, 11)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	for _, bad := range []string{"cube", "0", "-3", "1.5", "0.0"} {
		_, err := ParseMaxFeatures(bad, 11)
		assert.True(t, core.IsInvalidInput(err), bad)
	}
}

func TestRegressionTree_StepFunction(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 11, 12})
	y := []float64{0, 0, 0, 5, 5, 5}
	tree := fitTree(x, y, []int{0, 1, 2, 3, 4, 5}, treeParams{minSamplesSplit: 2, minSamplesLeaf: 1, maxFeatures: 1}, rand.New(rand.NewSource(1)))

	assert.Equal(t, 3, len(tree.Nodes))
	assert.Equal(t, 2, tree.Leaves())
	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, 6.5, tree.Nodes[0].Threshold)
	assert.Equal(t, 0.0, tree.PredictRow([]float64{3}))
	assert.Equal(t, 5.0, tree.PredictRow([]float64{7}))
	assert.Equal(t, []float64{1}, tree.Importances)
}

func TestRegressionTree_MaxDepthAndMinLeaf(t *testing.T) {
	x, y := wineXY(200, 3)
	all := make([]int, 200)
	for i := range all {
		all[i] = i
	}
	shallow := fitTree(x, y, all, treeParams{maxDepth: 2, minSamplesSplit: 2, minSamplesLeaf: 1, maxFeatures: 11}, rand.New(rand.NewSource(1)))
	assert.LessOrEqual(t, shallow.Depth(), 2)

	wide := fitTree(x, y, all, treeParams{minSamplesSplit: 2, minSamplesLeaf: 20, maxFeatures: 11}, rand.New(rand.NewSource(1)))
	for _, n := range wide.Nodes {
		if n.Feature < 0 {
			assert.GreaterOrEqual(t, n.Samples, 20)
		}
	}
}

func TestRandomForest_DeterministicAcrossWorkers(t *testing.T) {
	x, y := wineXY(300, 7)
	ctx := context.Background()

	var preds [][]float64
	for _, workers := range []int{1, 4, 16} {
		f := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(core.DefaultSeed), WithWorkers(workers))
		require.NoError(t, f.Fit(ctx, x, y))
		p, err := f.Predict(x)
		require.NoError(t, err)
		preds = append(preds, p)
	}
	assert.Equal(t, preds[0], preds[1])
	assert.Equal(t, preds[0], preds[2])

	other := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(1))
	require.NoError(t, other.Fit(ctx, x, y))
	p, err := other.Predict(x)
	require.NoError(t, err)
	assert.NotEqual(t, preds[0], p)
}

func TestRandomForest_LearnsSignal(t *testing.T) {
	x, y := wineXY(400, 11)
	xTest, yTest := wineXY(200, 12)

	f := NewRandomForestRegressor(WithNEstimators(40))
	require.NoError(t, f.Fit(context.Background(), x, y))

	pred, err := f.Predict(xTest)
	require.NoError(t, err)
	r2, err := R2(yTest, pred)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.3)
	assert.LessOrEqual(t, r2, 1.0)

	assert.Len(t, f.Importances, 11)
	assert.InDelta(t, 1.0, sumOf(f.Importances), 1e-9)
	// alcohol 是合成数据里最强的信号
	best := 0
	for j, v := range f.Importances {
		if v > f.Importances[best] {
			best = j
		}
	}
	assert.Equal(t, 10, best)
}

func TestRandomForest_Errors(t *testing.T) {
	ctx := context.Background()
	f := NewRandomForestRegressor(WithNEstimators(3))

	_, err := f.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, core.ErrNotFitted)

	err = f.Fit(ctx, mat.NewDense(3, 2, nil), []float64{1, 2})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	x, y := wineXY(30, 1)
	require.NoError(t, f.Fit(ctx, x, y))
	_, err = f.Predict(mat.NewDense(1, 5, nil))
	assert.True(t, core.IsShapeMismatch(err))
	_, err = f.PredictRow(make([]float64, 4))
	assert.True(t, core.IsShapeMismatch(err))

	bad := NewRandomForestRegressor(WithNEstimators(0))
	assert.True(t, core.IsInvalidInput(bad.Fit(ctx, x, y)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, NewRandomForestRegressor(WithNEstimators(5)).Fit(cancelled, x, y), context.Canceled)
}

func TestMetrics(t *testing.T) {
	yTrue := []float64{3, 5, 7}
	yPred := []float64{4, 5, 5}

	mse, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/3.0, mse, 1e-12)

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3.0), rmse, 1e-12)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mae, 1e-12)

	r2, err := R2(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1-5.0/8.0, r2, 1e-12)

	r2, err = R2(yTrue, yTrue)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	r2, err = R2([]float64{5, 5}, []float64{5, 5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)
	r2, err = R2([]float64{5, 5}, []float64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)

	_, err = MSE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, err = R2(nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyDataset)
}

func TestCrossValidate(t *testing.T) {
	x, y := wineXY(120, 5)
	factory := func() Regressor { return NewRandomForestRegressor(WithNEstimators(10)) }

	res, err := CrossValidate(context.Background(), factory, x, y, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Folds)
	assert.Len(t, res.FoldRMSE, 4)
	for _, s := range res.FoldRMSE {
		assert.GreaterOrEqual(t, s, 0.0)
	}
	assert.InDelta(t, sumOf(res.FoldRMSE)/4, res.MeanRMSE, 1e-12)

	again, err := CrossValidate(context.Background(), factory, x, y, 4)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	_, err = CrossValidate(context.Background(), factory, x, y[:10], 4)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestArtifact_SaveLoad(t *testing.T) {
	x, y := wineXY(100, 9)
	f := NewRandomForestRegressor(WithNEstimators(8))
	require.NoError(t, f.Fit(context.Background(), x, y))

	a := NewArtifact("run-1", core.WineQualitySchema(), f)
	scaler := feature.NewStandardScaler()
	require.NoError(t, scaler.Fit(x))
	require.NoError(t, a.SetScaler(scaler))

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, a))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, 11, loaded.Schema.NumFeatures())

	want, err := a.Predict(x)
	require.NoError(t, err)
	got, err := loaded.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	s, err := loaded.FeatureScaler()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, feature.KindStandard, s.Kind())

	_, err = loaded.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, core.IsShapeMismatch(err))
}

func TestArtifact_LoadRejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"xgboost","version":1}`), 0o644))
	_, err := Load(path)
	assert.True(t, core.IsNotSupported(err))

	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"random_forest_regressor","version":1,"schema":{"features":[{"name":"a"}],"target":{"name":"y"}},"forest":{"trees":[]}}`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, core.ErrNotFitted)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArtifact_LoadRejectsCorruptTrees(t *testing.T) {
	const head = `{"kind":"random_forest_regressor","version":1,` +
		`"schema":{"features":[{"name":"a"},{"name":"b"}],"target":{"name":"y"}},` +
		`"forest":{"n_features":2,"trees":`
	path := filepath.Join(t.TempDir(), FileName)
	for name, trees := range map[string]string{
		"null tree":       `[null]`,
		"no nodes":        `[{"nodes":[]}]`,
		"child past end":  `[{"nodes":[{"feature":0,"threshold":1,"left":1,"right":5,"value":0},{"feature":-1,"value":1}]}]`,
		"child loops":     `[{"nodes":[{"feature":0,"threshold":1,"left":0,"right":1,"value":0},{"feature":-1,"value":1}]}]`,
		"feature too big": `[{"nodes":[{"feature":2,"threshold":1,"left":1,"right":2,"value":0},{"feature":-1,"value":1},{"feature":-1,"value":2}]}]`,
	} {
		require.NoError(t, os.WriteFile(path, []byte(head+trees+`}}`), 0o644))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrCorruptArtifact, name)
	}

	ok := `[{"nodes":[{"feature":1,"threshold":0.5,"left":1,"right":2,"value":1.5},{"feature":-1,"value":1},{"feature":-1,"value":2}]}]`
	require.NoError(t, os.WriteFile(path, []byte(head+ok+`}}`), 0o644))
	a, err := Load(path)
	require.NoError(t, err)
	got, err := a.Predict(mat.NewDense(2, 2, []float64{0, 0, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)
}

func sumOf(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
