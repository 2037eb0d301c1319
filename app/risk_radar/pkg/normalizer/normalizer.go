// Package normalizer 将 LLM 返回的松散 JSON 文本修复、补全为确定的结构。
//
// 包内所有函数都不会因为输入畸形而返回错误或 panic：无法解析的内容
// 一律退化为调用方给出的默认值，默认值本身也是合法的结构。
package normalizer

import (
	"encoding/json"
	"strings"
)

// ItemsKey 顶层为数组时包装使用的字段名
const ItemsKey = "items"

// Schema 声明式的字段默认值：字段名 -> 默认值
//
// 默认值只能使用 JSON 解码后的类型（string、float64、bool、[]any、map[string]any），
// 以保证默认值经过序列化再解析后保持不变。
type Schema map[string]any

// Default 返回默认值的深拷贝
func (s Schema) Default() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = deepCopy(v)
	}
	return out
}

// Normalize 解析并补全 raw，等价于 CoerceSchema(ParseOrRepair(raw, s.Default()), s)
func (s Schema) Normalize(raw string) map[string]any {
	return CoerceSchema(ParseOrRepair(raw, s.Default()), s)
}

// ParseOrRepair 解析 LLM 返回的 JSON 文本
//
// 1. 直接解析
// 2. 去掉 ``` 代码块标记以及第一个 { 之前、最后一个 } 之后的内容后再次解析
// 3. 仍然失败时返回 def 的深拷贝
//
// 顶层为数组时包装为 {"items": [...]}。
func ParseOrRepair(raw string, def map[string]any) map[string]any {
	if m, ok := Repair(raw); ok {
		return m
	}
	return copyMap(def)
}

// Repair 按 ParseOrRepair 的步骤解析 raw，无法修复时返回 false
func Repair(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if m, ok := decodeObject(text); ok {
		return m, true
	}

	text = stripFences(text)
	if m, ok := decodeObject(text); ok {
		return m, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if m, ok := decodeObject(text[start : end+1]); ok {
			return m, true
		}
	}
	return nil, false
}

// CoerceSchema 为缺失字段注入默认值，保留未知字段
//
// 默认值为对象而实际值不是对象时使用默认值替换，两者都是对象时递归补全。
func CoerceSchema(parsed map[string]any, schema Schema) map[string]any {
	if parsed == nil {
		parsed = make(map[string]any, len(schema))
	}
	for key, def := range schema {
		val, ok := parsed[key]
		if !ok || val == nil {
			parsed[key] = deepCopy(def)
			continue
		}
		defMap, isMap := def.(map[string]any)
		if !isMap {
			continue
		}
		valMap, ok := val.(map[string]any)
		if !ok {
			parsed[key] = deepCopy(def)
			continue
		}
		parsed[key] = CoerceSchema(valMap, Schema(defMap))
	}
	return parsed
}

func decodeObject(text string) (map[string]any, bool) {
	if text == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		return map[string]any{ItemsKey: t}, true
	default:
		return nil, false
	}
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimPrefix(text, "JSON")
	}
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return deepCopy(m).(map[string]any)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}
