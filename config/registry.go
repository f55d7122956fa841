package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/winekit/config/builders"
// 以触发内置阶段（stage.preprocess、stage.train、stage.evaluate）的 init 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

// stageOrder 是各阶段在流水线中的先后次序：预处理 → 训练 → 评估。
// 流水线可以从任一阶段开始、在任一阶段结束，但不能倒序，也不能重复。
var stageOrder = map[pipeline.Kind]int{
	pipeline.KindPreprocess: 0,
	pipeline.KindTrain:      1,
	pipeline.KindEvaluate:   2,
}

type stage struct {
	kind    pipeline.Kind
	builder NodeBuilder
}

var (
	stages   = make(map[string]stage)
	stagesMu sync.RWMutex
)

// Register 注册一个阶段类型及其构建逻辑，在各阶段的 init 中调用，
// 例如 config.Register("stage.train", pipeline.KindTrain, BuildTrainNode)。
// kind 决定该类型在流水线中的位置，未知 kind 直接 panic。
func Register(typeName string, kind pipeline.Kind, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	if _, ok := stageOrder[kind]; !ok {
		panic(fmt.Sprintf("config: register %q with unknown stage kind %q", typeName, kind))
	}
	stagesMu.Lock()
	defer stagesMu.Unlock()
	stages[typeName] = stage{kind: kind, builder: builder}
}

// SupportedTypes 返回已注册的阶段类型（排序），用于错误提示。
func SupportedTypes() []string {
	stagesMu.RLock()
	defer stagesMu.RUnlock()
	types := make([]string, 0, len(stages))
	for t := range stages {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StageKind 返回阶段类型对应的 Kind
func StageKind(typeName string) (pipeline.Kind, bool) {
	stagesMu.RLock()
	defer stagesMu.RUnlock()
	s, ok := stages[typeName]
	return s.kind, ok
}

// DefaultFactory 返回包含全部已注册阶段的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	stagesMu.RLock()
	defer stagesMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, s := range stages {
		f.Register(typeName, s.builder)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查流水线配置：
//
//   - 至少一个阶段，每个阶段都声明了已注册的类型
//   - 阶段按 预处理 → 训练 → 评估 的次序排列，同一种阶段最多出现一次
//
// 中间可以跳过阶段（例如只跑 train → evaluate，由配置给出输入目录）。
// 失败时返回包装了 core.ErrInvalidConfig 的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		return fmt.Errorf("pipeline %q has no nodes: %w", cfg.Pipeline.Name, core.ErrInvalidConfig)
	}
	prev, prevType := -1, ""
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("node #%d has no type: %w", i, core.ErrInvalidConfig)
		}
		kind, ok := StageKind(nc.Type)
		if !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v): %w", nc.Type, SupportedTypes(), core.ErrInvalidConfig)
		}
		pos := stageOrder[kind]
		switch {
		case pos == prev:
			return fmt.Errorf("node #%d %s: %s stage appears twice: %w", i, nc.Type, kind, core.ErrInvalidConfig)
		case pos < prev:
			return fmt.Errorf("node #%d %s: %s stage must run before %s: %w", i, nc.Type, kind, prevType, core.ErrInvalidConfig)
		}
		prev, prevType = pos, nc.Type
	}
	return nil
}
