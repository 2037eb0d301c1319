package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
)

// Archive 按时间戳命名的 JSON 报告目录
type Archive struct {
	dir string
	now func() time.Time
}

// NewArchive 创建报告归档目录
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir, now: time.Now}
}

// Dir 返回归档目录
func (a *Archive) Dir() string {
	return a.dir
}

// Save 写入 prefix_YYYYmmdd_HHMMSS_<id>.json，返回文件路径
func (a *Archive) Save(prefix string, v any) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", prefix, err)
	}

	name := fmt.Sprintf("%s_%s_%s.json", prefix, a.now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Sweep 删除修改时间早于 maxAge 的 JSON 文件，返回删除数量
func (a *Archive) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := a.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(a.dir, e.Name())
			if err := os.Remove(path); err != nil {
				logger.Log.Warnf("清理归档失败 %s: %v", path, err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
