// Package conv 提供从 YAML/JSON 解析结果（map[string]any）中取值的泛型工具，用于简化各模块中的重复逻辑。
package conv

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 从 config 取 int64。YAML/JSON 常得到 int 或 float64，此处兼容并统一为 int64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case int32:
		return int64(val)
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	default:
		return defaultVal
	}
}

// ConfigGetFloat64 从 config 取 float64；YAML 中写成整数（如 1）的值同样可取。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if m == nil {
		return defaultVal
	}
	if f, ok := ToFloat64(m[key]); ok {
		return f
	}
	return defaultVal
}

// ConfigGetString 从 config 取字符串；数字（如 YAML 中的 max_features: 4）按整数格式化。
func ConfigGetString(m map[string]any, key string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	switch val := m[key].(type) {
	case string:
		return val
	case int, int64, int32:
		return strconv.FormatInt(ConfigGetInt64(m, key, 0), 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return defaultVal
	}
}

// ConfigDecode 把 m[key] 这一段嵌套配置按 yaml 标签解码到 out。
// 键不存在或值为 nil 时返回 (false, nil)，out 保持不变。
func ConfigDecode(m map[string]any, key string, out any) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("config %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("config %s: %w", key, err)
	}
	return true, nil
}
