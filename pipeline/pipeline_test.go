package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/winekit/core"
)

type stubNode struct {
	name  string
	calls *[]string
	err   error
}

func (n *stubNode) Name() string { return n.name }
func (n *stubNode) Kind() Kind   { return KindTrain }

func (n *stubNode) Process(_ context.Context, _ *core.RunContext, s *State) (*State, error) {
	*n.calls = append(*n.calls, n.name)
	if n.err != nil {
		return nil, n.err
	}
	out := s.Clone()
	out.SetMetric(n.name, float64(len(*n.calls)))
	return out, nil
}

func TestPipeline_RunsInOrder(t *testing.T) {
	var calls []string
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "a", calls: &calls},
		&stubNode{name: "b", calls: &calls},
	}}
	in := &State{TrainDir: "/t"}
	out, err := p.Run(context.Background(), core.NewRunContext(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, out.Metrics)
	assert.Equal(t, "/t", out.TrainDir)
	assert.Empty(t, in.Metrics, "input state is not mutated")
}

func TestPipeline_StopsOnError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	p := &Pipeline{Nodes: []Node{
		&stubNode{name: "a", calls: &calls, err: boom},
		&stubNode{name: "b", calls: &calls},
	}}
	_, err := p.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, calls)
}

func TestPipeline_Cancelled(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Nodes: []Node{&stubNode{name: "a", calls: &calls}}}
	_, err := p.Run(ctx, core.NewRunContext(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "p.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("pipeline:\n  name: w\n  seed: 7\n  nodes:\n    - type: stage.train\n      config: {n_estimators: 10}\n"), 0o644))
	js := filepath.Join(dir, "p.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"pipeline":{"name":"w","seed":7,"nodes":[{"type":"stage.train","config":{"n_estimators":10}}]}}`), 0o644))

	for _, path := range []string{yml, js} {
		cfg, err := Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, "w", cfg.Pipeline.Name)
		assert.Equal(t, int64(7), cfg.Pipeline.Seed)
		require.Len(t, cfg.Pipeline.Nodes, 1)
		assert.Equal(t, "stage.train", cfg.Pipeline.Nodes[0].Type)
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildPipeline(t *testing.T) {
	var calls []string
	f := NewNodeFactory()
	f.Register("stub", func(m map[string]interface{}) (Node, error) {
		return &stubNode{name: m["name"].(string), calls: &calls}, nil
	})

	var cfg Config
	_, err := cfg.BuildPipeline(f)
	assert.Error(t, err)

	cfg.Pipeline.Nodes = []NodeConfig{{Type: "stub", Config: map[string]interface{}{"name": "x"}}}
	p, err := cfg.BuildPipeline(f)
	require.NoError(t, err)
	assert.Equal(t, "x", p.Nodes[0].Name())

	cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, NodeConfig{Type: "missing"})
	_, err = cfg.BuildPipeline(f)
	assert.Error(t, err)
}
