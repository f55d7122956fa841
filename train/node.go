package train

import (
	"context"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/pipeline"
)

// Node 把训练阶段接入 pipeline；目录未配置时取上游 State 中的位置
type Node struct {
	Config Config
}

func (n *Node) Name() string        { return "stage.train" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindTrain }

func (n *Node) Process(ctx context.Context, rc *core.RunContext, state *pipeline.State) (*pipeline.State, error) {
	cfg := n.Config
	if cfg.TrainDir == "" {
		cfg.TrainDir = state.TrainDir
	}
	if cfg.TestDir == "" {
		cfg.TestDir = state.TestDir
	}
	if cfg.ModelDir == "" {
		cfg.ModelDir = state.ModelDir
	}
	res, err := Run(ctx, rc, cfg)
	if err != nil {
		return nil, err
	}
	out := state.Clone()
	out.ModelDir = cfg.ModelDir
	out.BundlePath = res.BundlePath
	if res.CV != nil {
		out.SetMetric("cv_rmse", res.CV.MeanRMSE)
	}
	return out, nil
}
