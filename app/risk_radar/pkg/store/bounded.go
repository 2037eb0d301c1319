// Package store 提供基于 JSON 文件的有界存储
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
)

// lockTimeout 获取文件锁的最长等待时间
const lockTimeout = 10 * time.Second

// Bounded 有界的 JSON 数组文件，超出容量时丢弃最早的记录（FIFO）
//
// 每次写入都在进程内互斥锁与跨进程文件锁的保护下完成完整的读-改-写，
// 新内容先写入临时文件再原子替换。
type Bounded[T any] struct {
	name string
	path string
	cap  int
	mu   sync.Mutex
	lock *flock.Flock
}

// NewBounded 创建有界存储，cap <= 0 表示不限制
func NewBounded[T any](name, path string, cap int) *Bounded[T] {
	return &Bounded[T]{
		name: name,
		path: path,
		cap:  cap,
		lock: flock.New(path + ".lock"),
	}
}

// Path 返回存储文件路径
func (b *Bounded[T]) Path() string {
	return b.path
}

// Load 读取全部记录，文件不存在或内容损坏时返回空列表
func (b *Bounded[T]) Load(ctx context.Context) ([]T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	unlock, err := b.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return b.read(false)
}

// Recent 返回最近的 n 条记录
func (b *Bounded[T]) Recent(ctx context.Context, n int) ([]T, error) {
	items, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return tail(items, n), nil
}

// Append 追加记录并截断到容量上限，返回写入后的总数
func (b *Bounded[T]) Append(ctx context.Context, items ...T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	return b.update(ctx, func(current []T) []T {
		return append(current, items...)
	})
}

// Replace 用 items 覆盖存储，超出容量时保留最后的记录
func (b *Bounded[T]) Replace(ctx context.Context, items []T) (int, error) {
	return b.update(ctx, func([]T) []T {
		return append([]T(nil), items...)
	})
}

func (b *Bounded[T]) update(ctx context.Context, fn func([]T) []T) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return 0, fmt.Errorf("create store dir: %w", err)
	}

	unlock, err := b.acquire(ctx, true)
	if err != nil {
		return 0, err
	}
	defer unlock()

	current, err := b.read(true)
	if err != nil {
		return 0, err
	}

	next := tail(fn(current), b.cap)
	if err := b.write(next); err != nil {
		return 0, err
	}
	metrics.StoreSize(b.name, len(next))
	return len(next), nil
}

func (b *Bounded[T]) acquire(ctx context.Context, exclusive bool) (func(), error) {
	if !exclusive {
		// 读取时锁文件所在目录可能尚不存在
		if _, err := os.Stat(filepath.Dir(b.path)); errors.Is(err, os.ErrNotExist) {
			return func() {}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = b.lock.TryLockContext(ctx, 50*time.Millisecond)
	} else {
		ok, err = b.lock.TryRLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", b.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: timeout", b.path)
	}
	return func() { _ = b.lock.Unlock() }, nil
}

// read 在持有独占锁时把损坏的文件改名为 .corrupt-<时间戳> 留存，再按空列表处理
func (b *Bounded[T]) read(quarantine bool) ([]T, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		if !quarantine {
			logger.Log.Warnf("存储文件 %s 内容损坏，按空列表读取: %v", b.path, err)
			return []T{}, nil
		}
		bad := b.path + ".corrupt-" + time.Now().Format("20060102150405.000000000")
		if rerr := os.Rename(b.path, bad); rerr != nil {
			return nil, fmt.Errorf("quarantine %s: %w", b.path, rerr)
		}
		logger.Log.Warnf("存储文件 %s 内容损坏，已另存为 %s: %v", b.path, bad, err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (b *Bounded[T]) write(items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", b.name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

func tail[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
