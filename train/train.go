// Package train 是流水线的第二个阶段：读取训练表，拟合随机森林，
// 在训练集上做 K 折交叉验证（仅作诊断），写出模型文件和模型包。
package train

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/dataset"
	"github.com/rushteam/winekit/feature"
	"github.com/rushteam/winekit/model"
)

func init() {
	core.RegisterValidation("max_features", func(v string) bool {
		_, err := model.ParseMaxFeatures(v, 1)
		return err == nil
	})
}

// Config 是训练阶段的配置
type Config struct {
	// 超参数
	NEstimators     int    `yaml:"n_estimators" json:"n_estimators" validate:"gt=0"`
	MaxFeatures     string `yaml:"max_features" json:"max_features" validate:"max_features"`
	MaxDepth        int    `yaml:"max_depth" json:"max_depth" validate:"gte=0"`
	MinSamplesSplit int    `yaml:"min_samples_split" json:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf" json:"min_samples_leaf" validate:"gte=1"`

	// Seed 森林种子；为 0 时使用 RunContext 的种子
	Seed int64 `yaml:"seed" json:"seed"`

	// CVFolds 交叉验证折数，0 表示不做
	CVFolds int `yaml:"cv_folds" json:"cv_folds" validate:"gte=0,ne=1"`

	// Workers 并发建树数，0 表示 GOMAXPROCS
	Workers int `yaml:"workers" json:"workers" validate:"gte=0"`

	// 目录
	ModelDir string `yaml:"model_dir" json:"model_dir" validate:"required"`
	TrainDir string `yaml:"train" json:"train" validate:"required"`
	// TestDir 只做记录，训练阶段不读取测试集
	TestDir string `yaml:"test" json:"test"`

	TrainFeaturesFile string `yaml:"train_file_features" json:"train_file_features" validate:"required"`
	TrainLabelsFile   string `yaml:"train_file_labels" json:"train_file_labels" validate:"required"`
	TestFeaturesFile  string `yaml:"test_file_features" json:"test_file_features"`
	TestLabelsFile    string `yaml:"test_file_labels" json:"test_file_labels"`

	// Bundle 是否额外打包 model.tar.gz
	Bundle bool `yaml:"bundle" json:"bundle"`
}

// DefaultConfig 返回默认配置；目录取自训练容器约定的环境变量
func DefaultConfig() Config {
	return Config{
		NEstimators:       750,
		MaxFeatures:       "sqrt",
		MinSamplesSplit:   2,
		MinSamplesLeaf:    1,
		CVFolds:           10,
		ModelDir:          os.Getenv("SM_MODEL_DIR"),
		TrainDir:          os.Getenv("SM_CHANNEL_TRAIN"),
		TestDir:           os.Getenv("SM_CHANNEL_TEST"),
		TrainFeaturesFile: dataset.TrainFeaturesFile,
		TrainLabelsFile:   dataset.TrainLabelsFile,
		TestFeaturesFile:  dataset.TestFeaturesFile,
		TestLabelsFile:    dataset.TestLabelsFile,
		Bundle:            true,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	return core.ValidateConfig(c)
}

// Result 是训练结果摘要
type Result struct {
	ModelPath  string          `json:"model_path"`
	BundlePath string          `json:"bundle_path,omitempty"`
	TrainRows  int             `json:"train_rows"`
	Features   int             `json:"features"`
	CV         *model.CVResult `json:"cv,omitempty"`
}

// Run 执行训练。特征表与标签表行数不一致、或列数与 Schema 不一致时直接返回错误。
func Run(ctx context.Context, rc *core.RunContext, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rc = rc.OrDefault()
	log := rc.Log().With("stage", "train")
	seed := cfg.Seed
	if seed == 0 {
		seed = rc.Seed
	}

	featuresPath := filepath.Join(cfg.TrainDir, cfg.TrainFeaturesFile)
	labelsPath := filepath.Join(cfg.TrainDir, cfg.TrainLabelsFile)
	X, err := dataset.ReadMatrix(featuresPath)
	if err != nil {
		return nil, err
	}
	y, err := dataset.ReadVector(labelsPath)
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	log.Info("training data loaded", "features_shape", fmt.Sprintf("(%d, %d)", rows, cols), "labels_shape", fmt.Sprintf("(%d,)", len(y)))
	if rows != len(y) {
		return nil, fmt.Errorf("%s has %d rows, %s has %d: %w", featuresPath, rows, labelsPath, len(y), core.ErrShapeMismatch)
	}

	schema, err := loadSchema(cfg.TrainDir)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckWidth(cols); err != nil {
		return nil, err
	}
	scaler, err := loadScaler(cfg.TrainDir)
	if err != nil {
		return nil, err
	}

	newForest := func() *model.RandomForestRegressor {
		return model.NewRandomForestRegressor(
			model.WithNEstimators(cfg.NEstimators),
			model.WithMaxFeatures(cfg.MaxFeatures),
			model.WithMaxDepth(cfg.MaxDepth),
			model.WithMinSamplesSplit(cfg.MinSamplesSplit),
			model.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
			model.WithRandomState(seed),
			model.WithWorkers(cfg.Workers),
		)
	}

	log.Info("training random forest", "n_estimators", cfg.NEstimators, "max_features", cfg.MaxFeatures, "seed", seed)
	forest := newForest()
	if err := forest.Fit(ctx, X, y); err != nil {
		return nil, err
	}
	log.Info("training complete", "trees", len(forest.Trees))

	var cv *model.CVResult
	if cfg.CVFolds > 0 {
		cv, err = model.CrossValidate(ctx, func() model.Regressor { return newForest() }, X, y, cfg.CVFolds)
		if err != nil {
			return nil, fmt.Errorf("cross validation: %w", err)
		}
		// 训练集内部的折，不是留出集上的误差
		log.Info("cross-validated RMSE on training data", "folds", cv.Folds, "rmse", cv.MeanRMSE, "std", cv.StdRMSE)
	}

	art := model.NewArtifact(rc.RunID, schema, forest)
	art.CV = cv
	if scaler != nil {
		if err := art.SetScaler(scaler); err != nil {
			return nil, err
		}
	}

	if err := dataset.EnsureDirs(cfg.ModelDir); err != nil {
		return nil, err
	}
	res := &Result{
		ModelPath: filepath.Join(cfg.ModelDir, model.FileName),
		TrainRows: rows,
		Features:  cols,
		CV:        cv,
	}
	if err := model.Save(res.ModelPath, art); err != nil {
		return nil, err
	}
	log.Info("model saved", "path", res.ModelPath)

	if cfg.Bundle {
		res.BundlePath = filepath.Join(cfg.ModelDir, artifact.BundleFileName)
		if err := artifact.Pack(ctx, res.BundlePath, cfg.ModelDir, model.FileName); err != nil {
			return nil, err
		}
		log.Info("model bundle written", "path", res.BundlePath)
	}

	if rc.Store != nil {
		rec := &artifact.ModelRecord{
			ModelPath:   res.ModelPath,
			BundlePath:  res.BundlePath,
			NEstimators: cfg.NEstimators,
			MaxFeatures: cfg.MaxFeatures,
			Seed:        seed,
			TrainRows:   rows,
			CV:          cv,
		}
		if err := artifact.NewRegistry(rc.Store, "").RecordModel(ctx, rc.RunID, rec); err != nil {
			return nil, fmt.Errorf("record model: %w", err)
		}
	}
	return res, nil
}

// loadSchema 读取训练目录中的 schema.json；不存在时使用默认 Schema
func loadSchema(dir string) (*core.Schema, error) {
	s, err := core.LoadSchema(filepath.Join(dir, dataset.SchemaFile))
	if errors.Is(err, os.ErrNotExist) {
		return core.WineQualitySchema(), nil
	}
	return s, err
}

// loadScaler 读取训练目录中的 scaler.json；不存在时返回 (nil, nil)
func loadScaler(dir string) (feature.Scaler, error) {
	s, err := feature.LoadScaler(filepath.Join(dir, dataset.ScalerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return s, err
}
