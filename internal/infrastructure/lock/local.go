// Package lock 提供章节生成锁
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// LockPathFunc 返回 (book, chapter) 对应的锁文件路径
type LockPathFunc func(bookID, chapterID string) string

// LocalLocker 进程内键集合 + flock 咨询锁文件
// 进程内集合挡住同进程并发，flock 挡住共享数据目录的其他进程
type LocalLocker struct {
	lockPath LockPathFunc

	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker 创建本地生成锁
func NewLocalLocker(lockPath LockPathFunc) *LocalLocker {
	return &LocalLocker{
		lockPath: lockPath,
		held:     make(map[string]struct{}),
	}
}

// Acquire 尝试获取生成锁，失败立即返回
func (l *LocalLocker) Acquire(ctx context.Context, bookID, chapterID string) (service.ReleaseFunc, error) {
	key := bookID + "/" + chapterID

	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return nil, apperrors.ErrAlreadyGenerating.WithDetail(key)
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	path := l.lockPath(bookID, chapterID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.forget(key)
		return nil, apperrors.ErrStorage.WithError(fmt.Errorf("create lock dir: %w", err))
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		l.forget(key)
		return nil, apperrors.ErrStorage.WithError(fmt.Errorf("acquire lock %s: %w", path, err))
	}
	if !ok {
		l.forget(key)
		return nil, apperrors.ErrAlreadyGenerating.WithDetail(key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fl.Unlock(); err != nil {
				logger.Warn(ctx, "failed to release generation lock", "path", path, "error", err.Error())
			}
			l.forget(key)
		})
	}, nil
}

func (l *LocalLocker) forget(key string) {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
}
