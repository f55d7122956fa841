// Package winekit 是一个红酒质量回归流水线工具包。
//
// 设计要点：
// - Pipeline-first: 三个阶段通过 Node 串联（Preprocess → Train → Evaluate），阶段之间只通过文件系统交接
// - Deterministic: 切分、自助采样和特征抽样共用一个种子，同样的输入得到同样的产物
// - Run-scoped: 日志、运行登记存储、推理客户端都由入口构建，通过 core.RunContext 传入
package winekit

import "github.com/rushteam/winekit/pipeline"

// 轻量 facade：便于用户直接 import "winekit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type State = pipeline.State

const (
	KindPreprocess = pipeline.KindPreprocess
	KindTrain      = pipeline.KindTrain
	KindEvaluate   = pipeline.KindEvaluate
)
