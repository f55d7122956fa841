package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/winekit/core"
)

// Pipeline 把一次运行拆成按顺序执行的 Node 链：Preprocess → Train → Evaluate。
// 没有分支、重试或回流，任何一个 Node 失败即中止。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rc *core.RunContext,
	state *State,
) (*State, error) {
	if state == nil {
		state = &State{}
	}
	log := rc.Log()
	cur := state
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		log.Info("stage started", "stage", node.Name(), "kind", node.Kind())
		next, err := node.Process(ctx, rc, cur)
		if err != nil {
			log.Error("stage failed", "stage", node.Name(), "error", err)
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		log.Info("stage finished", "stage", node.Name(), "elapsed", time.Since(start))
		cur = next
	}
	return cur, nil
}
