package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// ReportFileName 是评估报告的默认文件名
const ReportFileName = "evaluation.json"

// Report 是评估报告，序列化后恰好两个键：r2 和 RSME。
//
// RSME 这个键名沿用下游已有的约定，值是测试集上的均方误差（MSE），不是 RMSE。
type Report struct {
	R2   float64 `json:"r2"`
	RSME float64 `json:"RSME"`
}

// Validate 检查指标落在合法范围：r2 <= 1，RSME >= 0，且都是有限数
func (r *Report) Validate() error {
	if math.IsNaN(r.R2) || math.IsInf(r.R2, 0) || r.R2 > 1 {
		return fmt.Errorf("report: r2 %v out of range", r.R2)
	}
	if math.IsNaN(r.RSME) || math.IsInf(r.RSME, 0) || r.RSME < 0 {
		return fmt.Errorf("report: RSME %v out of range", r.RSME)
	}
	return nil
}

// WriteReport 创建 path 的父目录并写出报告
func WriteReport(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport 读取报告
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
