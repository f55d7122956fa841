package feature

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rushteam/winekit/core"
)

// 缩放器类型
const (
	KindStandard = "standard"
	KindMinMax   = "minmax"
)

// NewScaler 按类型名创建未 Fit 的缩放器；空字符串视为 "standard"。
func NewScaler(kind string) (Scaler, error) {
	switch kind {
	case "", KindStandard:
		return NewStandardScaler(), nil
	case KindMinMax:
		return NewMinMaxScaler(), nil
	default:
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotSupported,
			fmt.Sprintf("feature: unknown scaler kind %q", kind))
	}
}

// scalerFile 是缩放器落盘格式：{"kind": "...", "params": {...}}
type scalerFile struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// MarshalScaler 序列化已 Fit 的缩放器
func MarshalScaler(s Scaler) ([]byte, error) {
	params, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal scaler params: %w", err)
	}
	return json.MarshalIndent(scalerFile{Kind: s.Kind(), Params: params}, "", "  ")
}

// UnmarshalScaler 反序列化缩放器
func UnmarshalScaler(data []byte) (Scaler, error) {
	var f scalerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scaler: %w", err)
	}
	s, err := NewScaler(f.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(f.Params, s); err != nil {
		return nil, fmt.Errorf("parse %s scaler params: %w", f.Kind, err)
	}
	return s, nil
}

// SaveScaler 写出缩放器到 path
func SaveScaler(path string, s Scaler) error {
	data, err := MarshalScaler(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadScaler 从 path 读取缩放器
func LoadScaler(path string) (Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalScaler(data)
}
