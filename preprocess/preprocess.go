// Package preprocess 是流水线的第一个阶段：
// 读取原始表 → （可选）按表达式筛选行 → 切分训练/测试集 → 只用训练集拟合缩放器 →
// 变换两个分区 → 原子地写出四张表。
package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/dataset"
	"github.com/rushteam/winekit/feature"
	"github.com/rushteam/winekit/pkg/dsl"
)

// Config 是预处理阶段的配置
type Config struct {
	// Input 原始表路径（带表头）
	Input string `yaml:"input" json:"input" validate:"required"`

	// OutputDir 输出根目录，表写到 <OutputDir>/train 和 <OutputDir>/test
	OutputDir string `yaml:"output" json:"output" validate:"required"`

	// TestRatio 测试集比例，(0,1)
	TestRatio float64 `yaml:"train_test_split_ratio" json:"train_test_split_ratio" validate:"gt=0,lt=1"`

	// Seed 切分种子；为 0 时使用 RunContext 的种子
	Seed int64 `yaml:"seed" json:"seed"`

	// Delimiter 原始表的分隔符
	Delimiter string `yaml:"delimiter" json:"delimiter" validate:"len=1"`

	// Filter CEL 行过滤表达式，空表示不过滤，例如 `row.alcohol > 8.0`
	Filter string `yaml:"filter" json:"filter"`

	// Scaler 缩放器类型
	Scaler string `yaml:"scaler" json:"scaler" validate:"oneof=standard minmax"`

	// Float32Train 训练特征表按 float32 精度写出
	Float32Train bool `yaml:"float32_train" json:"float32_train"`

	// Schema 列描述；为 nil 时使用红酒数据集的默认 Schema
	Schema *core.Schema `yaml:"schema" json:"schema"`
}

// DefaultConfig 返回默认配置（路径沿用处理容器内的约定目录）
func DefaultConfig() Config {
	return Config{
		Input:        "/opt/ml/processing/input/winequality-red.csv",
		OutputDir:    "/opt/ml/processing/output",
		TestRatio:    0.2,
		Delimiter:    ";",
		Scaler:       feature.KindStandard,
		Float32Train: true,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := core.ValidateConfig(c); err != nil {
		return err
	}
	if c.Schema != nil {
		return c.Schema.Validate()
	}
	return nil
}

// Paths 是四张表及附属文件的输出位置
type Paths struct {
	TrainDir      string `json:"train_dir"`
	TestDir       string `json:"test_dir"`
	TrainFeatures string `json:"train_features"`
	TrainLabels   string `json:"train_labels"`
	TestFeatures  string `json:"test_features"`
	TestLabels    string `json:"test_labels"`
}

// OutputPaths 返回输出根目录下的固定文件位置
func OutputPaths(outputDir string) Paths {
	trainDir := filepath.Join(outputDir, dataset.TrainDirName)
	testDir := filepath.Join(outputDir, dataset.TestDirName)
	return Paths{
		TrainDir:      trainDir,
		TestDir:       testDir,
		TrainFeatures: filepath.Join(trainDir, dataset.TrainFeaturesFile),
		TrainLabels:   filepath.Join(trainDir, dataset.TrainLabelsFile),
		TestFeatures:  filepath.Join(testDir, dataset.TestFeaturesFile),
		TestLabels:    filepath.Join(testDir, dataset.TestLabelsFile),
	}
}

// Result 是预处理的结果摘要
type Result struct {
	Paths     Paths `json:"paths"`
	RawRows   int   `json:"raw_rows"`
	Dropped   int   `json:"dropped"` // 被过滤表达式丢弃的行数
	TrainRows int   `json:"train_rows"`
	TestRows  int   `json:"test_rows"`
	Features  int   `json:"features"`
	Seed      int64 `json:"seed"`
}

// Run 执行预处理。输入缺失或格式错误时直接返回错误；四张表要么全部写出，要么都不写。
func Run(ctx context.Context, rc *core.RunContext, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rc = rc.OrDefault()
	log := rc.Log().With("stage", "preprocess")
	schema := cfg.Schema
	if schema == nil {
		schema = core.WineQualitySchema()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rc.Seed
	}

	frame, err := dataset.ReadRaw(cfg.Input, schema, dataset.ReadOptions{Delimiter: []rune(cfg.Delimiter)[0]})
	if err != nil {
		return nil, err
	}
	res := &Result{RawRows: frame.Rows(), Features: schema.NumFeatures(), Seed: seed}
	log.Info("raw dataset loaded", "path", cfg.Input, "rows", frame.Rows(), "features", schema.NumFeatures())

	if cfg.Filter != "" {
		rf, err := dsl.CompileRowFilter(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, err.Error()))
		}
		frame, err = frame.Filter(rf.Match)
		if err != nil {
			return nil, err
		}
		res.Dropped = res.RawRows - frame.Rows()
		log.Info("rows filtered", "filter", cfg.Filter, "kept", frame.Rows(), "dropped", res.Dropped)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	split, err := dataset.TrainTestSplit(frame.Rows(), cfg.TestRatio, seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain, err := frame.Select(split.Train)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := frame.Select(split.Test)
	if err != nil {
		return nil, err
	}
	log.Info("split dataset", "ratio", cfg.TestRatio, "seed", seed, "train_rows", len(yTrain), "test_rows", len(yTest))

	scaler, err := feature.NewScaler(cfg.Scaler)
	if err != nil {
		return nil, err
	}
	trainScaled, err := feature.FitTransform(scaler, xTrain)
	if err != nil {
		return nil, err
	}
	testScaled, err := scaler.Transform(xTest)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := OutputPaths(cfg.OutputDir)
	if err := dataset.EnsureDirs(paths.TrainDir, paths.TestDir); err != nil {
		return nil, err
	}
	trainBits := 64
	if cfg.Float32Train {
		trainBits = 32
	}
	files := []dataset.TableFile{
		{Path: paths.TrainFeatures, Write: func(w io.Writer) error { return dataset.WriteMatrix(w, trainScaled, trainBits) }},
		{Path: paths.TrainLabels, Write: func(w io.Writer) error { return dataset.WriteVector(w, yTrain) }},
		{Path: paths.TestFeatures, Write: func(w io.Writer) error { return dataset.WriteMatrix(w, testScaled, 64) }},
		{Path: paths.TestLabels, Write: func(w io.Writer) error { return dataset.WriteVector(w, yTest) }},
	}
	for _, dir := range []string{paths.TrainDir, paths.TestDir} {
		files = append(files,
			dataset.TableFile{Path: filepath.Join(dir, dataset.SchemaFile), Write: jsonWriter(schema)},
			dataset.TableFile{Path: filepath.Join(dir, dataset.ScalerFile), Write: scalerWriter(scaler)},
		)
	}
	if err := dataset.WriteAll(files); err != nil {
		return nil, err
	}

	r, c := trainScaled.Dims()
	log.Info("train features written", "path", paths.TrainFeatures, "rows", r, "cols", c)
	log.Info("train labels written", "path", paths.TrainLabels, "rows", len(yTrain))
	r, c = testScaled.Dims()
	log.Info("test features written", "path", paths.TestFeatures, "rows", r, "cols", c)
	log.Info("test labels written", "path", paths.TestLabels, "rows", len(yTest))

	res.Paths = paths
	res.TrainRows = len(yTrain)
	res.TestRows = len(yTest)
	return res, nil
}

func jsonWriter(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func scalerWriter(s feature.Scaler) func(io.Writer) error {
	return func(w io.Writer) error {
		data, err := feature.MarshalScaler(s)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
}
