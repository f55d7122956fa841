package feature

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/winekit/core"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScaler()
	out, err := FitTransform(s, X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 10}, s.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{1.25, 0}, s.Var, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")
	assert.Equal(t, 4, s.NSamples)

	col := mat.Col(nil, 0, out)
	mean, variance := stat.PopMeanVariance(col, nil)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, variance, 1e-12)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, out))
}

func TestStandardScaler_StatsIgnoreTestRows(t *testing.T) {
	train := mat.NewDense(3, 1, []float64{1, 2, 3})
	s := NewStandardScaler()
	require.NoError(t, s.Fit(train))
	mean, scale := s.Mean[0], s.Scale[0]

	for _, test := range []*mat.Dense{
		mat.NewDense(2, 1, []float64{100, 200}),
		mat.NewDense(1, 1, []float64{-5}),
	} {
		out, err := s.Transform(test)
		require.NoError(t, err)
		assert.Equal(t, mean, s.Mean[0])
		assert.Equal(t, scale, s.Scale[0])
		assert.InDelta(t, (test.At(0, 0)-mean)/scale, out.At(0, 0), 1e-12)
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScaler()
	err := s.TransformRow(make([]float64, 2), []float64{1, 2})
	assert.ErrorIs(t, err, core.ErrNotFitted)

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	err = s.TransformRow(make([]float64, 3), []float64{1, 2, 3})
	assert.True(t, core.IsShapeMismatch(err))
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 5,
		5, 5,
		10, 5,
	})
	s := NewMinMaxScaler()
	out, err := FitTransform(s, X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, out))
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 1, out))
}

func TestScalerPersistence(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 4, 2, 5, 3, 9})
	for _, kind := range []string{KindStandard, KindMinMax} {
		s, err := NewScaler(kind)
		require.NoError(t, err)
		require.NoError(t, s.Fit(X))

		path := filepath.Join(t.TempDir(), "scaler.json")
		require.NoError(t, SaveScaler(path, s))
		loaded, err := LoadScaler(path)
		require.NoError(t, err)
		assert.Equal(t, kind, loaded.Kind())

		want, err := s.Transform(X)
		require.NoError(t, err)
		got, err := loaded.Transform(X)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(want, got, 1e-12))
	}

	_, err := NewScaler("robust")
	assert.True(t, core.IsNotSupported(err))
}
