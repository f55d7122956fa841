package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// ColumnType 是列的取值类型。目前所有列都是数值列。
type ColumnType string

const (
	ColumnFloat ColumnType = "float"
	ColumnInt   ColumnType = "int"
)

// Column 是 Schema 中的一列。
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Schema 是三个阶段共享的列描述：有序的特征列 + 一个目标列。
//
// 预处理按列名（而不是列位置）从原始表中取值；训练和评估用它校验特征表宽度，
// 模型文件中也会嵌入一份，保证推理时的特征顺序与训练一致。
type Schema struct {
	Features []Column `json:"features" yaml:"features"`
	Target   Column   `json:"target" yaml:"target"`
}

// WineQualitySchema 返回红酒质量数据集（winequality-red.csv）的默认 Schema。
func WineQualitySchema() *Schema {
	names := []string{
		"fixed acidity",
		"volatile acidity",
		"citric acid",
		"residual sugar",
		"chlorides",
		"free sulfur dioxide",
		"total sulfur dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
	features := make([]Column, 0, len(names))
	for _, n := range names {
		features = append(features, Column{Name: n, Type: ColumnFloat})
	}
	return &Schema{
		Features: features,
		Target:   Column{Name: "quality", Type: ColumnInt},
	}
}

// NumFeatures 返回特征列数量。
func (s *Schema) NumFeatures() int { return len(s.Features) }

// FeatureNames 返回有序的特征列名。
func (s *Schema) FeatureNames() []string {
	out := make([]string, len(s.Features))
	for i, c := range s.Features {
		out[i] = c.Name
	}
	return out
}

// Validate 校验 Schema：至少一个特征列，列名非空且不重复，目标列不与特征列重名。
func (s *Schema) Validate() error {
	if s == nil || len(s.Features) == 0 {
		return fmt.Errorf("schema has no feature columns: %w", ErrInvalidInput)
	}
	if s.Target.Name == "" {
		return fmt.Errorf("schema has no target column: %w", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(s.Features)+1)
	for _, c := range append(append([]Column{}, s.Features...), s.Target) {
		if c.Name == "" {
			return fmt.Errorf("schema has an unnamed column: %w", ErrInvalidInput)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("schema column %q declared twice: %w", c.Name, ErrInvalidInput)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// CheckWidth 校验特征表列数与 Schema 一致。
func (s *Schema) CheckWidth(cols int) error {
	if cols != len(s.Features) {
		return fmt.Errorf("feature table has %d columns, schema declares %d: %w",
			cols, len(s.Features), ErrShapeMismatch)
	}
	return nil
}

// SaveSchema 把 Schema 以 JSON 写入 path。
func SaveSchema(path string, s *Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadSchema 从 JSON 文件读取 Schema。
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
