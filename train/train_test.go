package train

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/dataset"
	"github.com/rushteam/winekit/internal/testutil"
	"github.com/rushteam/winekit/model"
	"github.com/rushteam/winekit/pipeline"
	"github.com/rushteam/winekit/preprocess"
	"github.com/rushteam/winekit/store"
)

// prepare 生成预处理后的训练/测试目录，返回训练配置
func prepare(t *testing.T, rows int) Config {
	t.Helper()
	dir := t.TempDir()
	pcfg := preprocess.DefaultConfig()
	pcfg.Input = testutil.WriteWineCSV(t, dir, rows, 7)
	pcfg.OutputDir = filepath.Join(dir, "processing")
	res, err := preprocess.Run(context.Background(), core.NewRunContext(), pcfg)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TrainDir = res.Paths.TrainDir
	cfg.TestDir = res.Paths.TestDir
	cfg.ModelDir = filepath.Join(dir, "model")
	cfg.NEstimators = 20
	cfg.CVFolds = 3
	return cfg
}

func TestRun(t *testing.T) {
	cfg := prepare(t, 300)
	res, err := Run(context.Background(), core.NewRunContext(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 240, res.TrainRows)
	assert.Equal(t, 11, res.Features)
	require.NotNil(t, res.CV)
	assert.Equal(t, 3, res.CV.Folds)
	assert.Len(t, res.CV.FoldRMSE, 3)
	assert.Greater(t, res.CV.MeanRMSE, 0.0)

	art, err := model.Load(res.ModelPath)
	require.NoError(t, err)
	assert.Len(t, art.Forest.Trees, 20)
	assert.Equal(t, core.DefaultSeed, art.Forest.RandomState)
	assert.Equal(t, res.CV, art.CV)
	sc, err := art.FeatureScaler()
	require.NoError(t, err)
	assert.NotNil(t, sc, "scaler from the train channel is embedded")

	names, err := artifact.Unpack(context.Background(), res.BundlePath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{model.FileName}, names)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := prepare(t, 200)
	cfg.CVFolds = 0
	cfg.Workers = 1
	ctx := context.Background()

	res, err := Run(ctx, core.NewRunContext(core.WithRunID("r")), cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(res.ModelPath)
	require.NoError(t, err)

	cfg.Workers = 8
	res, err = Run(ctx, core.NewRunContext(core.WithRunID("r")), cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(res.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Nil(t, res.CV)
}

func TestRun_NilRunContext(t *testing.T) {
	cfg := prepare(t, 100)
	cfg.CVFolds = 0
	cfg.Workers = 2
	withNil, err := Run(context.Background(), nil, cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(withNil.ModelPath)
	require.NoError(t, err)

	_, err = Run(context.Background(), core.NewRunContext(), cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(withNil.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, modelWithoutRunID(t, first), modelWithoutRunID(t, second), "a nil run context trains with the default seed")
}

func modelWithoutRunID(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	delete(m, "run_id")
	return m
}

func TestRun_WithoutBundle(t *testing.T) {
	cfg := prepare(t, 100)
	cfg.Bundle = false
	cfg.CVFolds = 0
	res, err := Run(context.Background(), core.NewRunContext(), cfg)
	require.NoError(t, err)
	assert.Empty(t, res.BundlePath)
	_, err = os.Stat(filepath.Join(cfg.ModelDir, artifact.BundleFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RecordsModel(t *testing.T) {
	cfg := prepare(t, 100)
	cfg.CVFolds = 0
	s := store.NewMemoryStore()
	rc := core.NewRunContext(core.WithStore(s))

	res, err := Run(context.Background(), rc, cfg)
	require.NoError(t, err)

	rec, err := artifact.NewRegistry(s, "").Get(context.Background(), rc.RunID)
	require.NoError(t, err)
	require.NotNil(t, rec.Model)
	assert.Equal(t, res.ModelPath, rec.Model.ModelPath)
	assert.Equal(t, 20, rec.Model.NEstimators)
	assert.Equal(t, "sqrt", rec.Model.MaxFeatures)
	assert.Equal(t, 80, rec.Model.TrainRows)
}

func TestRun_ShapeMismatch(t *testing.T) {
	cfg := prepare(t, 100)
	labels := filepath.Join(cfg.TrainDir, cfg.TrainLabelsFile)
	require.NoError(t, os.WriteFile(labels, []byte("5\n6\n"), 0o644))

	_, err := Run(context.Background(), core.NewRunContext(), cfg)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, statErr := os.Stat(filepath.Join(cfg.ModelDir, model.FileName))
	assert.True(t, os.IsNotExist(statErr), "no model is written")
}

func TestRun_WidthMismatch(t *testing.T) {
	cfg := prepare(t, 100)
	features := filepath.Join(cfg.TrainDir, cfg.TrainFeaturesFile)
	require.NoError(t, os.WriteFile(features, []byte("1,2\n3,4\n"), 0o644))
	labels := filepath.Join(cfg.TrainDir, cfg.TrainLabelsFile)
	require.NoError(t, os.WriteFile(labels, []byte("5\n6\n"), 0o644))

	_, err := Run(context.Background(), core.NewRunContext(), cfg)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestRun_MissingSchemaFallsBack(t *testing.T) {
	cfg := prepare(t, 100)
	cfg.CVFolds = 0
	require.NoError(t, os.Remove(filepath.Join(cfg.TrainDir, dataset.SchemaFile)))
	require.NoError(t, os.Remove(filepath.Join(cfg.TrainDir, dataset.ScalerFile)))

	res, err := Run(context.Background(), core.NewRunContext(), cfg)
	require.NoError(t, err)
	art, err := model.Load(res.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, core.WineQualitySchema(), art.Schema)
	assert.Empty(t, art.Scaler)
}

func TestConfig_Validate(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.NEstimators = 0 },
		func(c *Config) { c.MaxFeatures = "cube" },
		func(c *Config) { c.MaxFeatures = "1.5" },
		func(c *Config) { c.CVFolds = 1 },
		func(c *Config) { c.MinSamplesSplit = 1 },
		func(c *Config) { c.TrainDir = "" },
		func(c *Config) { c.ModelDir = "" },
	} {
		cfg := DefaultConfig()
		cfg.TrainDir, cfg.ModelDir = "/in", "/out"
		mutate(&cfg)
		assert.True(t, core.IsInvalidInput(cfg.Validate()), "%+v", cfg)
	}

	cfg := DefaultConfig()
	cfg.TrainDir, cfg.ModelDir = "/in", "/out"
	for _, mf := range []string{"sqrt", "log2", "none", "0.5", "3"} {
		cfg.MaxFeatures = mf
		assert.NoError(t, cfg.Validate(), mf)
	}
}

func TestNode(t *testing.T) {
	cfg := prepare(t, 100)
	state := &pipeline.State{TrainDir: cfg.TrainDir, TestDir: cfg.TestDir, ModelDir: cfg.ModelDir}
	cfg.TrainDir, cfg.TestDir, cfg.ModelDir = "", "", ""

	n := &Node{Config: cfg}
	assert.Equal(t, pipeline.KindTrain, n.Kind())
	out, err := n.Process(context.Background(), core.NewRunContext(), state)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(state.ModelDir, artifact.BundleFileName), out.BundlePath)
	assert.Contains(t, out.Metrics, "cv_rmse")
}
