package evaluate

import (
	"context"
	"path/filepath"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/model"
	"github.com/rushteam/winekit/pipeline"
)

// Node 把评估阶段接入 pipeline；未配置的路径取自上游 State
type Node struct {
	Config Config
}

func (n *Node) Name() string        { return "stage.evaluate" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindEvaluate }

func (n *Node) Process(ctx context.Context, rc *core.RunContext, state *pipeline.State) (*pipeline.State, error) {
	cfg := n.Config
	if cfg.ModelPath == "" {
		cfg.ModelPath = state.BundlePath
		if cfg.ModelPath == "" && state.ModelDir != "" {
			cfg.ModelPath = filepath.Join(state.ModelDir, model.FileName)
		}
	}
	if cfg.TestDir == "" {
		cfg.TestDir = state.TestDir
	}
	res, err := Run(ctx, rc, cfg)
	if err != nil {
		return nil, err
	}
	out := state.Clone()
	out.ReportPath = res.ReportPath
	out.SetMetric("r2", res.Report.R2)
	out.SetMetric("RSME", res.Report.RSME)
	return out, nil
}
