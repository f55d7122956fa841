package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/config"
	_ "github.com/rushteam/winekit/config/builders"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/internal/testutil"
	"github.com/rushteam/winekit/pipeline"
	"github.com/rushteam/winekit/preprocess"
	"github.com/rushteam/winekit/store"
)

func TestSupportedTypes(t *testing.T) {
	assert.Equal(t, []string{"stage.evaluate", "stage.preprocess", "stage.train"}, config.SupportedTypes())
}

func TestValidatePipelineConfig(t *testing.T) {
	var cfg pipeline.Config
	assert.Error(t, config.ValidatePipelineConfig(&cfg))

	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "stage.train"}, {Type: "stage.deploy"}}
	err := config.ValidatePipelineConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage.deploy")

	cfg.Pipeline.Nodes = cfg.Pipeline.Nodes[:1]
	assert.NoError(t, config.ValidatePipelineConfig(&cfg))
}

func TestValidatePipelineConfig_StageOrder(t *testing.T) {
	nodes := func(types ...string) *pipeline.Config {
		var cfg pipeline.Config
		for _, typ := range types {
			cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, pipeline.NodeConfig{Type: typ})
		}
		return &cfg
	}

	for _, ok := range [][]string{
		{"stage.preprocess", "stage.train", "stage.evaluate"},
		{"stage.train", "stage.evaluate"},
		{"stage.preprocess", "stage.evaluate"},
		{"stage.evaluate"},
	} {
		assert.NoError(t, config.ValidatePipelineConfig(nodes(ok...)), "%v", ok)
	}

	for _, bad := range [][]string{
		{"stage.train", "stage.preprocess"},
		{"stage.evaluate", "stage.train"},
		{"stage.preprocess", "stage.train", "stage.train"},
		{"stage.preprocess", ""},
	} {
		err := config.ValidatePipelineConfig(nodes(bad...))
		assert.ErrorIs(t, err, core.ErrInvalidConfig, "%v", bad)
	}

	err := config.ValidatePipelineConfig(nodes("stage.evaluate", "stage.train"))
	assert.Contains(t, err.Error(), "must run before stage.evaluate")

	kind, ok := config.StageKind("stage.train")
	assert.True(t, ok)
	assert.Equal(t, pipeline.KindTrain, kind)
	assert.Panics(t, func() { config.Register("stage.deploy", pipeline.Kind("deploy"), func(map[string]interface{}) (pipeline.Node, error) { return nil, nil }) })
}

func TestBuildPreprocess_Schema(t *testing.T) {
	f := config.DefaultFactory()
	n, err := f.Build("stage.preprocess", map[string]interface{}{
		"input": "x.csv",
		"schema": map[string]interface{}{
			"features": []interface{}{
				map[string]interface{}{"name": "alcohol", "type": "float"},
				map[string]interface{}{"name": "pH", "type": "float"},
			},
			"target": map[string]interface{}{"name": "quality", "type": "int"},
		},
	})
	require.NoError(t, err)
	node := n.(*preprocess.Node)
	require.NotNil(t, node.Config.Schema)
	assert.Equal(t, []string{"alcohol", "pH"}, node.Config.Schema.FeatureNames())
	assert.Equal(t, "quality", node.Config.Schema.Target.Name)

	_, err = f.Build("stage.preprocess", map[string]interface{}{
		"input":  "x.csv",
		"schema": map[string]interface{}{"features": []interface{}{}, "target": map[string]interface{}{"name": "quality"}},
	})
	assert.True(t, core.IsInvalidInput(err))

	_, err = f.Build("stage.preprocess", map[string]interface{}{"input": "x.csv", "schema": "alcohol"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestBuild_RejectsBadStageConfig(t *testing.T) {
	f := config.DefaultFactory()
	_, err := f.Build("stage.train", map[string]interface{}{"max_features": "cube"})
	assert.True(t, core.IsInvalidInput(err))

	_, err = f.Build("stage.preprocess", map[string]interface{}{"input": "x.csv", "train_test_split_ratio": 1})
	assert.True(t, core.IsInvalidInput(err))

	_, err = f.Build("stage.unknown", nil)
	assert.Error(t, err)
}

func TestYAMLPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteWineCSV(t, dir, 250, 3)
	yml := `
pipeline:
  name: wine-quality
  seed: 5590
  nodes:
    - type: stage.preprocess
      config:
        input: ` + input + `
        output: ` + filepath.Join(dir, "processing") + `
        train_test_split_ratio: 0.2
    - type: stage.train
      config:
        n_estimators: 15
        max_features: sqrt
        cv_folds: 3
        model_dir: ` + filepath.Join(dir, "model") + `
    - type: stage.evaluate
      config:
        report: ` + filepath.Join(dir, "evaluation", "evaluation.json") + `
`
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := pipeline.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	s := store.NewMemoryStore()
	rc := core.NewRunContext(core.WithSeed(cfg.Pipeline.Seed), core.WithStore(s))
	state, err := p.Run(context.Background(), rc, nil)
	require.NoError(t, err)

	assert.Equal(t, 200.0, state.Metrics["train_rows"])
	assert.Equal(t, 50.0, state.Metrics["test_rows"])
	assert.Contains(t, state.Metrics, "cv_rmse")
	assert.LessOrEqual(t, state.Metrics["r2"], 1.0)

	rep, err := artifact.ReadReport(state.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, state.Metrics["RSME"], rep.RSME)

	rec, err := artifact.NewRegistry(s, "").Get(context.Background(), rc.RunID)
	require.NoError(t, err)
	assert.NotNil(t, rec.Model)
	assert.NotNil(t, rec.Report)
}

func TestExamplePipelineBuilds(t *testing.T) {
	cfg, err := pipeline.Load(filepath.Join("..", "examples", "pipeline.yaml"))
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 3)
}
