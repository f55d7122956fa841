package preprocess

import (
	"context"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/pipeline"
)

// Node 把预处理阶段接入 pipeline
type Node struct {
	Config Config
}

func (n *Node) Name() string        { return "stage.preprocess" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindPreprocess }

func (n *Node) Process(ctx context.Context, rc *core.RunContext, state *pipeline.State) (*pipeline.State, error) {
	res, err := Run(ctx, rc, n.Config)
	if err != nil {
		return nil, err
	}
	out := state.Clone()
	out.TrainDir = res.Paths.TrainDir
	out.TestDir = res.Paths.TestDir
	out.SetMetric("train_rows", float64(res.TrainRows))
	out.SetMetric("test_rows", float64(res.TestRows))
	return out, nil
}
