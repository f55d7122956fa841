// Package builders 在 init 中把三个内置阶段注册到 config，供配置驱动的流水线使用。
package builders

import (
	"fmt"

	"github.com/rushteam/winekit/config"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/evaluate"
	"github.com/rushteam/winekit/pipeline"
	"github.com/rushteam/winekit/pkg/conv"
	"github.com/rushteam/winekit/preprocess"
	"github.com/rushteam/winekit/train"
)

func init() {
	config.Register("stage.preprocess", pipeline.KindPreprocess, BuildPreprocessNode)
	config.Register("stage.train", pipeline.KindTrain, BuildTrainNode)
	config.Register("stage.evaluate", pipeline.KindEvaluate, BuildEvaluateNode)
}

// BuildPreprocessNode 从默认配置出发，按 map 中出现的键覆盖
func BuildPreprocessNode(cfg map[string]interface{}) (pipeline.Node, error) {
	c := preprocess.DefaultConfig()
	c.Input = conv.ConfigGet(cfg, "input", c.Input)
	c.OutputDir = conv.ConfigGet(cfg, "output", c.OutputDir)
	c.TestRatio = conv.ConfigGetFloat64(cfg, "train_test_split_ratio", c.TestRatio)
	c.Seed = conv.ConfigGetInt64(cfg, "seed", c.Seed)
	c.Delimiter = conv.ConfigGet(cfg, "delimiter", c.Delimiter)
	c.Filter = conv.ConfigGet(cfg, "filter", c.Filter)
	c.Scaler = conv.ConfigGet(cfg, "scaler", c.Scaler)
	c.Float32Train = conv.ConfigGet(cfg, "float32_train", c.Float32Train)
	var schema core.Schema
	ok, err := conv.ConfigDecode(cfg, "schema", &schema)
	if err != nil {
		return nil, fmt.Errorf("stage.preprocess: %v: %w", err, core.ErrInvalidConfig)
	}
	if ok {
		c.Schema = &schema
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("stage.preprocess: %w", err)
	}
	return &preprocess.Node{Config: c}, nil
}

// BuildTrainNode 目录类字段未配置时留空，运行时取上游阶段的输出
func BuildTrainNode(cfg map[string]interface{}) (pipeline.Node, error) {
	c := train.DefaultConfig()
	c.NEstimators = int(conv.ConfigGetInt64(cfg, "n_estimators", int64(c.NEstimators)))
	c.MaxFeatures = conv.ConfigGetString(cfg, "max_features", c.MaxFeatures)
	c.MaxDepth = int(conv.ConfigGetInt64(cfg, "max_depth", int64(c.MaxDepth)))
	c.MinSamplesSplit = int(conv.ConfigGetInt64(cfg, "min_samples_split", int64(c.MinSamplesSplit)))
	c.MinSamplesLeaf = int(conv.ConfigGetInt64(cfg, "min_samples_leaf", int64(c.MinSamplesLeaf)))
	c.Seed = conv.ConfigGetInt64(cfg, "seed", c.Seed)
	c.CVFolds = int(conv.ConfigGetInt64(cfg, "cv_folds", int64(c.CVFolds)))
	c.Workers = int(conv.ConfigGetInt64(cfg, "workers", int64(c.Workers)))
	c.Bundle = conv.ConfigGet(cfg, "bundle", c.Bundle)
	c.ModelDir = conv.ConfigGet(cfg, "model_dir", c.ModelDir)
	c.TrainDir = conv.ConfigGet(cfg, "train", "")
	c.TestDir = conv.ConfigGet(cfg, "test", "")

	// 目录要到运行时才齐全，这里先用占位目录校验其余字段
	probe := c
	probe.TrainDir, probe.ModelDir = ".", "."
	if err := probe.Validate(); err != nil {
		return nil, fmt.Errorf("stage.train: %w", err)
	}
	return &train.Node{Config: c}, nil
}

// BuildEvaluateNode 模型与测试集路径未配置时取上游阶段的输出
func BuildEvaluateNode(cfg map[string]interface{}) (pipeline.Node, error) {
	c := evaluate.DefaultConfig()
	c.ModelPath = conv.ConfigGet(cfg, "model", "")
	c.TestDir = conv.ConfigGet(cfg, "test", "")
	c.ReportPath = conv.ConfigGet(cfg, "report", c.ReportPath)
	return &evaluate.Node{Config: c}, nil
}
