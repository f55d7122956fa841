// Package evaluate 是流水线的最后一个阶段：加载模型包，在测试集上预测，
// 写出只有 r2 和 RSME 两个键的 evaluation.json。
package evaluate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/dataset"
	"github.com/rushteam/winekit/model"
)

// Config 是评估阶段的配置
type Config struct {
	// ModelPath 模型包（.tar.gz）或模型文件（model.json）路径
	ModelPath string `yaml:"model" json:"model" validate:"required"`

	// TestDir 测试表所在目录
	TestDir string `yaml:"test" json:"test" validate:"required"`

	TestFeaturesFile string `yaml:"test_file_features" json:"test_file_features" validate:"required"`
	TestLabelsFile   string `yaml:"test_file_labels" json:"test_file_labels" validate:"required"`

	// ReportPath 评估报告输出路径
	ReportPath string `yaml:"report" json:"report" validate:"required"`
}

// DefaultConfig 返回默认配置（路径沿用处理容器内的约定目录）
func DefaultConfig() Config {
	return Config{
		ModelPath:        "/opt/ml/processing/model/" + artifact.BundleFileName,
		TestDir:          "/opt/ml/processing/test",
		TestFeaturesFile: dataset.TestFeaturesFile,
		TestLabelsFile:   dataset.TestLabelsFile,
		ReportPath:       "/opt/ml/processing/evaluation/" + artifact.ReportFileName,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	return core.ValidateConfig(c)
}

// Result 是评估结果
type Result struct {
	Report     *artifact.Report `json:"report"`
	ReportPath string           `json:"report_path"`
	TestRows   int              `json:"test_rows"`
	// RMSE 便于日志阅读；报告里的 RSME 键是 MSE
	RMSE float64 `json:"rmse"`
}

// Run 执行评估
func Run(ctx context.Context, rc *core.RunContext, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rc = rc.OrDefault()
	log := rc.Log().With("stage", "evaluate")

	art, err := artifact.LoadModel(ctx, cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	log.Info("model loaded", "path", cfg.ModelPath, "trees", len(art.Forest.Trees))

	X, err := dataset.ReadMatrix(filepath.Join(cfg.TestDir, cfg.TestFeaturesFile))
	if err != nil {
		return nil, err
	}
	y, err := dataset.ReadVector(filepath.Join(cfg.TestDir, cfg.TestLabelsFile))
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	log.Info("test data loaded", "features_shape", fmt.Sprintf("(%d, %d)", rows, cols), "labels_shape", fmt.Sprintf("(%d,)", len(y)))
	if rows != len(y) {
		return nil, fmt.Errorf("test features have %d rows, labels have %d: %w", rows, len(y), core.ErrShapeMismatch)
	}

	pred, err := art.Predict(X)
	if err != nil {
		return nil, err
	}
	r2, err := model.R2(y, pred)
	if err != nil {
		return nil, err
	}
	mse, err := model.MSE(y, pred)
	if err != nil {
		return nil, err
	}
	rmse, err := model.RMSE(y, pred)
	if err != nil {
		return nil, err
	}
	rep := &artifact.Report{R2: r2, RSME: mse}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	log.Info("evaluation complete", "r2", r2, "mse", mse, "rmse", rmse)

	if err := artifact.WriteReport(cfg.ReportPath, rep); err != nil {
		return nil, err
	}
	log.Info("report written", "path", cfg.ReportPath)

	if rc.Store != nil {
		if err := artifact.NewRegistry(rc.Store, "").RecordReport(ctx, rc.RunID, rep); err != nil {
			return nil, fmt.Errorf("record report: %w", err)
		}
	}
	return &Result{Report: rep, ReportPath: cfg.ReportPath, TestRows: rows, RMSE: rmse}, nil
}
