package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/winekit/core"
)

// RandomForestRegressor 随机森林回归。
//
// 每棵树在自助采样（bootstrap）的样本上生长，每次分裂只考察 MaxFeatures 个随机特征，
// 预测值为所有树的平均。
//
// 可复现性：森林种子先顺序派生出每棵树的种子，再并发建树，
// 结果与 Workers 数量和调度顺序无关。
type RandomForestRegressor struct {
	NEstimators     int    `json:"n_estimators"`
	MaxFeatures     string `json:"max_features"` // sqrt / log2 / auto / 整数 / (0,1] 小数
	MaxDepth        int    `json:"max_depth"`    // 0 表示不限深度
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	Bootstrap       bool   `json:"bootstrap"`
	RandomState     int64  `json:"random_state"`

	// Workers 并发建树的 goroutine 数，<=0 时取 GOMAXPROCS；不参与序列化
	Workers int `json:"-"`

	NFeatures   int               `json:"n_features"`
	Trees       []*RegressionTree `json:"trees"`
	Importances []float64         `json:"feature_importances"`
}

// ForestOption 配置随机森林
type ForestOption func(*RandomForestRegressor)

func WithNEstimators(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

func WithMaxFeatures(s string) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxFeatures = s }
}

func WithMaxDepth(d int) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxDepth = d }
}

func WithMinSamplesSplit(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.MinSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.MinSamplesLeaf = n }
}

func WithBootstrap(b bool) ForestOption {
	return func(f *RandomForestRegressor) { f.Bootstrap = b }
}

func WithRandomState(seed int64) ForestOption {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

func WithWorkers(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.Workers = n }
}

// NewRandomForestRegressor 创建随机森林，默认值：750 棵树、sqrt 特征抽样、种子 5590。
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     750,
		MaxFeatures:     "sqrt",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     core.DefaultSeed,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *RandomForestRegressor) Name() string { return "random_forest" }

// Clone 返回同参数、未训练的副本（交叉验证用）。
func (f *RandomForestRegressor) Clone() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     f.NEstimators,
		MaxFeatures:     f.MaxFeatures,
		MaxDepth:        f.MaxDepth,
		MinSamplesSplit: f.MinSamplesSplit,
		MinSamplesLeaf:  f.MinSamplesLeaf,
		Bootstrap:       f.Bootstrap,
		RandomState:     f.RandomState,
		Workers:         f.Workers,
	}
}

// Validate 校验超参数
func (f *RandomForestRegressor) Validate() error {
	if f.NEstimators <= 0 {
		return fmt.Errorf("n_estimators must be positive, got %d: %w", f.NEstimators, core.ErrInvalidParam)
	}
	if f.MinSamplesSplit < 2 {
		return fmt.Errorf("min_samples_split must be >= 2, got %d: %w", f.MinSamplesSplit, core.ErrInvalidParam)
	}
	if f.MinSamplesLeaf < 1 {
		return fmt.Errorf("min_samples_leaf must be >= 1, got %d: %w", f.MinSamplesLeaf, core.ErrInvalidParam)
	}
	if f.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d: %w", f.MaxDepth, core.ErrInvalidParam)
	}
	_, err := ParseMaxFeatures(f.MaxFeatures, 1)
	return err
}

// Fit 训练森林；X 的行数必须与 y 的长度一致。
func (f *RandomForestRegressor) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r != len(y) {
		return fmt.Errorf("features have %d rows, labels have %d: %w", r, len(y), core.ErrShapeMismatch)
	}
	if r == 0 {
		return core.ErrEmptyDataset
	}
	maxFeatures, err := ParseMaxFeatures(f.MaxFeatures, c)
	if err != nil {
		return err
	}
	x := mat.DenseCopyOf(X)
	params := treeParams{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: f.MinSamplesSplit,
		minSamplesLeaf:  f.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	seeds := make([]int64, f.NEstimators)
	rnd := rand.New(rand.NewSource(f.RandomState))
	for i := range seeds {
		seeds[i] = rnd.Int63()
	}

	workers := f.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	trees := make([]*RegressionTree, f.NEstimators)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr := rand.New(rand.NewSource(seed))
			trees[i] = fitTree(x, y, sampleRows(r, f.Bootstrap, tr), params, tr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.NFeatures = c
	f.Trees = trees
	f.Importances = make([]float64, c)
	for _, t := range trees {
		for j, v := range t.Importances {
			f.Importances[j] += v / float64(len(trees))
		}
	}
	return nil
}

// sampleRows 返回一棵树的训练样本：自助采样为 n 次有放回抽样，否则为全部行。
func sampleRows(n int, bootstrap bool, rnd *rand.Rand) []int {
	out := make([]int, n)
	for i := range out {
		if bootstrap {
			out[i] = rnd.Intn(n)
		} else {
			out[i] = i
		}
	}
	return out
}

// Predict 对 X 的每一行求所有树的平均预测。
func (f *RandomForestRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("random forest: %w", core.ErrNotFitted)
	}
	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, fmt.Errorf("model expects %d features, got %d: %w", f.NFeatures, c, core.ErrShapeMismatch)
	}
	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = f.predictRow(row)
	}
	return out, nil
}

// PredictRow 预测单个特征向量
func (f *RandomForestRegressor) PredictRow(features []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("random forest: %w", core.ErrNotFitted)
	}
	if len(features) != f.NFeatures {
		return 0, fmt.Errorf("model expects %d features, got %d: %w", f.NFeatures, len(features), core.ErrShapeMismatch)
	}
	return f.predictRow(features), nil
}

func (f *RandomForestRegressor) predictRow(x []float64) float64 {
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.PredictRow(x)
	}
	return sum / float64(len(f.Trees))
}

// ParseMaxFeatures 把 max_features 参数解析为每次分裂考察的特征数（至少 1，至多 nFeatures）。
//
//	"sqrt"                   -> floor(sqrt(n))
//	"log2"                   -> floor(log2(n))
//	"auto" / "none" / ""     -> n
//	整数（如 "4"）           -> 该数
//	小数（如 "0.5", "1.0"）  -> floor(frac * n)
func ParseMaxFeatures(s string, nFeatures int) (int, error) {
	var k int
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	case "", "auto", "none":
		k = nFeatures
	default:
		if n, err := strconv.Atoi(v); err == nil {
			if n <= 0 {
				return 0, fmt.Errorf("max_features %q must be positive: %w", s, core.ErrInvalidParam)
			}
			k = n
			break
		}
		frac, err := strconv.ParseFloat(v, 64)
		if err != nil || frac <= 0 || frac > 1 {
			return 0, fmt.Errorf("max_features %q is not sqrt, log2, auto, an integer or a fraction in (0,1]: %w", s, core.ErrInvalidParam)
		}
		k = int(frac * float64(nFeatures))
	}
	return min(max(k, 1), nFeatures), nil
}
