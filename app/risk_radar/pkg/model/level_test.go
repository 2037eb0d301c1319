package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"低", LevelLow, true},
		{"中风险", LevelMedium, true},
		{"高风险", LevelHigh, true},
		{"极高", LevelHigh, true},
		{"极高风险", LevelHigh, true},
		{"High", LevelHigh, true},
		{" medium ", LevelMedium, true},
		{"low", LevelLow, true},
		{"extreme", LevelHigh, true},
		{"严重", LevelHigh, true},
		{"Severe", LevelHigh, true},
		{"8", LevelHigh, true},
		{"5", LevelMedium, true},
		{"2", LevelLow, true},
		{"未知", LevelLow, false},
		{"", LevelLow, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLevelAlertMapping(t *testing.T) {
	assert.Equal(t, AlertCritical, LevelHigh.AlertLevel())
	assert.Equal(t, AlertImportant, LevelMedium.AlertLevel())
	assert.Equal(t, AlertNormal, LevelLow.AlertLevel())

	assert.Equal(t, "中风险", LevelMedium.Label())
	assert.Equal(t, "高", LevelHigh.String())
}

func TestLevelMax(t *testing.T) {
	assert.Equal(t, LevelHigh, LevelMedium.Max(LevelHigh))
	assert.Equal(t, LevelMedium, LevelMedium.Max(LevelLow))
	assert.Equal(t, LevelMedium, LevelMedium.Max(LevelMedium))
}
