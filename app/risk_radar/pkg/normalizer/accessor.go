package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// String 读取字符串字段，数字和布尔值转为文本
func String(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Float 读取数值字段，支持数字字符串
func Float(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// maxExactInt float64 能精确表示的最大整数
const maxExactInt = 1 << 53

// Int 读取整数字段，返回值以及是否成功解析，超大的数值饱和到 ±2^53
func Int(m map[string]any, key string) (int, bool) {
	f := Float(m, key, math.NaN())
	if math.IsNaN(f) {
		return 0, false
	}
	return int(math.Round(Clamp(f, -maxExactInt, maxExactInt))), true
}

// Bool 读取布尔字段，返回值以及字段是否存在且可识别
func Bool(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case float64:
		return v != 0, true
	}
	return false, false
}

// Clamp 将 v 限制在 [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Map 读取对象字段，不存在或类型不符时返回空对象
func Map(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// Maps 读取对象数组字段，跳过非对象元素
func Maps(m map[string]any, key string) []map[string]any {
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if mm, ok := v.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

// Strings 读取字符串数组字段
//
// 单个字符串视为只有一个元素的数组，空白元素被丢弃，返回值永远不为 nil。
func Strings(m map[string]any, key string) []string {
	out := []string{}
	switch v := m[key].(type) {
	case []any:
		for _, e := range v {
			var s string
			switch t := e.(type) {
			case string:
				s = t
			case nil:
				continue
			case map[string]any, []any:
				b, _ := json.Marshal(t)
				s = string(b)
			default:
				s = fmt.Sprint(t)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
