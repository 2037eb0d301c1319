package model

import (
	"strconv"
	"strings"
)

// Level 统一的风险等级刻度：低 < 中 < 高
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

// 告警等级
const (
	AlertNormal    = "普通"
	AlertImportant = "重要"
	AlertCritical  = "紧急"
)

// InvestigateThreshold 1-10 分制下默认需要深入调研的分数线
const InvestigateThreshold = 6

// ParseLevel 解析各阶段使用的风险等级写法
//
// 支持 低/中/高/极高/严重、低风险/中风险/高风险/极高风险、low/medium/high/extreme/critical/severe
// 以及 1-10 的整数分数。无法识别时返回 false。
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelLow, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return LevelFromScore(n), true
	}
	switch {
	case strings.Contains(s, "高"), strings.Contains(s, "严重"), strings.Contains(s, "high"),
		strings.Contains(s, "extreme"), strings.Contains(s, "critical"), strings.Contains(s, "severe"):
		return LevelHigh, true
	case strings.Contains(s, "中"), strings.Contains(s, "medium"), strings.Contains(s, "moderate"):
		return LevelMedium, true
	case strings.Contains(s, "低"), strings.Contains(s, "low"):
		return LevelLow, true
	}
	return LevelLow, false
}

// LevelFromScore 将 1-10 分映射为等级：1-3 低，4-6 中，7-10 高
func LevelFromScore(score int) Level {
	switch {
	case score >= 7:
		return LevelHigh
	case score >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// String 返回简写标签 低/中/高
func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "高"
	case LevelMedium:
		return "中"
	default:
		return "低"
	}
}

// Label 返回条目标签 低风险/中风险/高风险
func (l Level) Label() string {
	return l.String() + "风险"
}

// AlertLevel 由风险等级推导告警等级
func (l Level) AlertLevel() string {
	switch l {
	case LevelHigh:
		return AlertCritical
	case LevelMedium:
		return AlertImportant
	default:
		return AlertNormal
	}
}

// Max 返回较高的等级，相同时保留 l
func (l Level) Max(other Level) Level {
	if other > l {
		return other
	}
	return l
}
