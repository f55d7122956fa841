package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// TreeNode 是扁平存储的树节点，Feature < 0 表示叶子。
// 内部节点：x[Feature] <= Threshold 走 Left，否则走 Right。
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`   // 落在该节点的样本均值
	Samples   int     `json:"samples"` // 落在该节点的样本数（含自助采样的重复样本）
}

// RegressionTree 是 CART 回归树，分裂准则为均方误差（MSE）。
//
// 节点按前序存在 Nodes 中，根节点下标为 0，便于直接 JSON 序列化。
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`

	// Importances 每个特征的 MSE 下降量（已归一化到和为 1；树只有根节点时全为 0）
	Importances []float64 `json:"importances"`
}

// treeParams 是单棵树的生长参数，由森林统一下发。
type treeParams struct {
	maxDepth        int // 0 表示不限深度
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 每次分裂最多考察的特征数
}

// treeBuilder 持有一次建树过程中的共享状态。
type treeBuilder struct {
	params treeParams
	x      *mat.Dense
	y      []float64
	rnd    *rand.Rand
	tree   *RegressionTree

	// 排序用的临时缓冲
	pairs []valueIndex
}

type valueIndex struct {
	v float64
	i int
}

// fitTree 在 samples 指定的行（可重复）上生长一棵树。
func fitTree(x *mat.Dense, y []float64, samples []int, params treeParams, rnd *rand.Rand) *RegressionTree {
	_, p := x.Dims()
	t := &RegressionTree{Importances: make([]float64, p)}
	b := &treeBuilder{
		params: params,
		x:      x,
		y:      y,
		rnd:    rnd,
		tree:   t,
		pairs:  make([]valueIndex, len(samples)),
	}
	b.grow(slices.Clone(samples), 0)

	total := 0.0
	for _, v := range t.Importances {
		total += v
	}
	if total > 0 {
		for j := range t.Importances {
			t.Importances[j] /= total
		}
	}
	return t
}

// grow 递归生长以 idx 为样本的子树，返回节点下标。
func (b *treeBuilder) grow(idx []int, depth int) int {
	n := len(idx)
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, TreeNode{Feature: -1, Value: sum / float64(n), Samples: n})

	if n < b.params.minSamplesSplit || n < 2*b.params.minSamplesLeaf {
		return id
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return id
	}
	// 纯节点：方差为 0
	if sumSq-sum*sum/float64(n) <= 1e-12*math.Max(1, sumSq) {
		return id
	}

	s, ok := b.bestSplit(idx, sum)
	if !ok {
		return id
	}
	b.tree.Importances[s.feature] += s.gain

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, n-s.nLeft)
	for _, i := range idx {
		if b.x.At(i, s.feature) <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	node := &b.tree.Nodes[id]
	node.Feature = s.feature
	node.Threshold = s.threshold
	node.Left = l
	node.Right = r
	return id
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	gain      float64 // 加权 MSE 下降量
}

// bestSplit 在随机抽取的特征子集上寻找 MSE 下降最大的切分点。
//
// 对候选特征按取值排序后做一次前缀和扫描，只在相邻的不同取值之间切分。
// 常数特征不计入 maxFeatures，继续抽取下一个特征。
func (b *treeBuilder) bestSplit(idx []int, sum float64) (split, bool) {
	_, p := b.x.Dims()
	n := len(idx)
	parent := sum * sum / float64(n)
	minLeaf := b.params.minSamplesLeaf

	best := split{feature: -1}
	bestProxy := parent

	pairs := b.pairs[:n]
	visited := 0
	for _, f := range b.rnd.Perm(p) {
		if visited >= b.params.maxFeatures {
			break
		}
		for k, i := range idx {
			pairs[k] = valueIndex{v: b.x.At(i, f), i: i}
		}
		slices.SortStableFunc(pairs, func(a, c valueIndex) int {
			switch {
			case a.v < c.v:
				return -1
			case a.v > c.v:
				return 1
			}
			return 0
		})
		if pairs[0].v == pairs[n-1].v {
			continue
		}
		visited++

		sumLeft := 0.0
		for k := 0; k < n-1; k++ {
			sumLeft += b.y[pairs[k].i]
			nLeft := k + 1
			lo, hi := pairs[k].v, pairs[k+1].v
			if lo == hi || nLeft < minLeaf || n-nLeft < minLeaf {
				continue
			}
			sumRight := sum - sumLeft
			proxy := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(n-nLeft)
			if proxy > bestProxy+1e-12*math.Abs(bestProxy) {
				bestProxy = proxy
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				best = split{feature: f, threshold: thr, nLeft: nLeft, gain: proxy - parent}
			}
		}
	}
	return best, best.feature >= 0
}

// Validate 检查从文件加载的树结构：至少一个节点，内部节点的特征下标在 [0, nFeatures) 内，
// 子节点下标大于父节点且不越界（前序存储保证这一点，也排除了环）。
func (t *RegressionTree) Validate(nFeatures int) error {
	if t == nil || len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, nFeatures)
		}
		for _, c := range [2]int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d out of range (%d nodes)", i, c, len(t.Nodes))
			}
		}
	}
	return nil
}

// PredictRow 沿树走到叶子，返回叶子均值。
func (t *RegressionTree) PredictRow(x []float64) float64 {
	i := 0
	for {
		node := &t.Nodes[i]
		if node.Feature < 0 {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// Depth 返回树的最大深度（只有根节点时为 0）。
func (t *RegressionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Leaves 返回叶子数量。
func (t *RegressionTree) Leaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.Feature < 0 {
			c++
		}
	}
	return c
}
